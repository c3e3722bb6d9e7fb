package backend_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

func newServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()

	var received http.Request

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = *r.Clone(context.Background())

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	return server, &received
}

func TestClientGet(t *testing.T) {
	server, received := newServer(t, http.StatusOK, `[{"id":"vm-1"}]`)

	client := backend.NewClient(server.URL+"/api/", "token", server.Client(), logr.Discard())

	resp, err := client.Get(context.Background(), "/vmware/snapshot", url.Values{"refresh": []string{"1"}})
	require.NoError(t, err)

	assert.False(t, resp.Empty)
	assert.JSONEq(t, `[{"id":"vm-1"}]`, string(resp.Body))
	assert.Equal(t, "/api/vmware/snapshot", received.URL.Path)
	assert.Equal(t, "1", received.URL.Query().Get("refresh"))
	assert.Equal(t, "Bearer token", received.Header.Get("Authorization"))
	assert.NotEmpty(t, received.Header.Get("X-Request-ID"))
}

func TestClientStatusMapping(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		retryable bool
		empty     bool
	}{
		{name: "no content", status: http.StatusNoContent, empty: true},
		{name: "blank body", status: http.StatusOK, body: "  ", empty: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: common.ErrAuth},
		{name: "forbidden", status: http.StatusForbidden, wantErr: common.ErrPermission},
		{name: "not found", status: http.StatusNotFound, wantErr: common.ErrNotFound},
		{name: "server error", status: http.StatusBadGateway, wantErr: common.ErrTransport, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, wantErr: common.ErrTransport},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := newServer(t, tc.status, tc.body)
			client := backend.NewClient(server.URL, "", server.Client(), logr.Discard())

			resp, err := client.Post(context.Background(), "vmware/refresh", map[string]bool{"force": true})

			if tc.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tc.empty, resp.Empty)

				return
			}

			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.retryable, pipeline.IsRetryable(err))
		})
	}
}

func TestClientNetworkError(t *testing.T) {
	server, _ := newServer(t, http.StatusOK, "")
	server.Close()

	client := backend.NewClient(server.URL, "", nil, logr.Discard())

	_, err := client.Get(context.Background(), "vmware/snapshot", nil)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.True(t, pipeline.IsRetryable(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Get(ctx, "vmware/snapshot", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, pipeline.IsRetryable(err))
}

func TestDecode(t *testing.T) {
	out := map[string]any{}

	assert.NoError(t, backend.Decode(backend.Response{Body: []byte(`{"a":1}`)}, &out))
	assert.ErrorIs(t, backend.Decode(backend.Response{Body: []byte(`{`)}, &out), common.ErrTransport)
}
