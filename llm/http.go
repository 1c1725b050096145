package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/BaSui01/llmpool/llm/providers"
)

// doHTTP performs one HTTP round trip for an adapter-built request.
func doHTTP(ctx context.Context, client *http.Client, req *providers.HTTPRequest) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return client.Do(httpReq)
}

// readBody drains and closes-by-caller-convention the response body,
// returning its bytes and status code.
func readBody(resp *http.Response) ([]byte, int, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
