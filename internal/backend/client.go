package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

const requestIDHeader = "X-Request-ID"

// Client is an HTTP client for the inventory back end
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     logr.Logger
}

func NewClient(baseURL, token string, httpClient *http.Client, logger logr.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req)
}

func (c *Client) Post(ctx context.Context, path string, body any) (Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (Response, error) {
	requestID := uuid.NewString()

	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger := c.logger.WithValues("method", req.Method, "path", req.URL.Path, "requestID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return Response{}, ctxErr
		}

		logger.V(1).Info("Request failed", "err", err.Error())

		return Response{}, pipeline.NewErrRetryableError(fmt.Errorf("%w: %w", common.ErrTransport, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, pipeline.NewErrRetryableError(fmt.Errorf("%w: failed to read response body: %w", common.ErrTransport, err))
	}

	logger.V(2).Info("Request done", "status", resp.StatusCode, "size", len(body))

	err = statusError(resp.StatusCode, body)
	if err != nil {
		return Response{Status: resp.StatusCode, Body: body}, err
	}

	ret := Response{
		Status: resp.StatusCode,
		Body:   body,
		Empty:  resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0,
	}

	return ret, nil
}

func statusError(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return common.ErrAuth
	case status == http.StatusForbidden:
		return common.ErrPermission
	case status == http.StatusNotFound:
		return common.ErrNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		return pipeline.NewErrRetryableError(fmt.Errorf("%w: back end returned status %d: %s", common.ErrTransport, status, truncate(body)))
	default:
		return fmt.Errorf("%w: back end returned status %d: %s", common.ErrTransport, status, truncate(body))
	}
}

func truncate(body []byte) string {
	const limit = 256

	if len(body) > limit {
		return string(body[:limit]) + "..."
	}

	return string(body)
}

// Decode unmarshals a response body into out, mapping failures to a transport error.
func Decode(resp Response, out any) error {
	err := json.Unmarshal(resp.Body, out)
	if err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", common.ErrTransport, err)
	}

	return nil
}

// IsAuth reports whether err must stop every fallback and reach the session owner.
func IsAuth(err error) bool {
	return errors.Is(err, common.ErrAuth)
}
