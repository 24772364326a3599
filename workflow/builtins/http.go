package builtins

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Azure/go-workflow-engine/workflow"
)

// httpAction issues an HTTP request using a retrying transport. Step-
// level retry_attempts governs whether the *step* is retried by the
// executor; this action's own transport-level retries (bounded low, 2
// by default) absorb transient connection failures below that layer so
// the two compose without the step-level backoff and the transport
// backoff fighting each other.
type httpAction struct {
	method string
	url    string
	body   string
	client *retryablehttp.Client
}

func newHTTPAction(config map[string]interface{}) (workflow.Action, error) {
	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	url, _ := config["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http action requires a %q config string", "url")
	}
	body, _ := config["body"].(string)

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil // the executor's own logging covers step outcomes
	return httpAction{method: method, url: url, body: body, client: client}, nil
}

func (a httpAction) ExecuteContext(ctx context.Context, wctx workflow.Context) workflow.ActionResult {
	var bodyReader io.Reader
	if a.body != "" {
		bodyReader = bytes.NewBufferString(a.body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, a.method, a.url, bodyReader)
	if err != nil {
		return workflow.Failure(fmt.Sprintf("build request: %v", err), nil)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return workflow.Failure(fmt.Sprintf("http request failed: %v", err), nil)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return workflow.Failure(fmt.Sprintf("http status %d", resp.StatusCode), map[string]interface{}{
			"status_code": resp.StatusCode,
		})
	}
	return workflow.Success(map[string]interface{}{
		"status_code": resp.StatusCode,
		"body":        string(respBody),
	}, nil)
}

func (a httpAction) Execute(wctx workflow.Context) workflow.ActionResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.ExecuteContext(ctx, wctx)
}

func (a httpAction) CanExecute(workflow.Context) bool { return true }
func (a httpAction) Name() string                     { return "http" }
func (a httpAction) Description() string              { return "issues a retrying HTTP request" }
