package discovery_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/backend/mock"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/discovery"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

func ok(body string) backend.Response {
	return backend.Response{Status: 200, Body: []byte(body)}
}

func TestDiscoverHostsFallbackOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)

	gomock.InOrder(
		api.EXPECT().Get(gomock.Any(), "/hyperv/config", nil).Return(ok(`{"hosts": []}`), nil),
		api.EXPECT().Get(gomock.Any(), "/hyperv/hosts", nil).Return(ok(`[{"host":"H1"},{"host":"h1"}]`), nil),
	)

	hosts, err := discovery.NewResolver(api, entity.ProviderHyperV).DiscoverHosts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"h1"}, hosts)
}

func TestDiscoverHostsShapes(t *testing.T) {
	type testCase struct {
		name      string
		responses map[string]backend.Response
		errors    map[string]error
		expected  []string
	}

	cases := []testCase{
		{
			name:      "config list wins",
			responses: map[string]backend.Response{"/hyperv/config": ok(`{"hosts": [" HV02 ", "hv01", "HV01"]}`)},
			expected:  []string{"hv01", "hv02"},
		},
		{
			name:      "bare config array",
			responses: map[string]backend.Response{"/hyperv/config": ok(`["b", "a"]`)},
			expected:  []string{"a", "b"},
		},
		{
			name: "hosts results wrapper",
			responses: map[string]backend.Response{
				"/hyperv/config": {Status: 204, Empty: true},
				"/hyperv/hosts":  ok(`{"results": [{"name": "HV03"}, "hv04"]}`),
			},
			expected: []string{"hv03", "hv04"},
		},
		{
			name: "batch keys when the others fail",
			responses: map[string]backend.Response{
				"/hyperv/vms/batch": ok(`{"HV05": [{"id": "1"}], "hv06": []}`),
			},
			errors: map[string]error{
				"/hyperv/config": common.ErrNotFound,
				"/hyperv/hosts":  common.ErrPermission,
			},
			expected: []string{"hv05", "hv06"},
		},
		{
			name: "batch results wrapper",
			responses: map[string]backend.Response{
				"/hyperv/config":    ok(`{}`),
				"/hyperv/hosts":     ok(`[]`),
				"/hyperv/vms/batch": ok(`{"results": {"HV07": []}}`),
			},
			expected: []string{"hv07"},
		},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			api := mock.NewMockAPI(ctrl)

			api.EXPECT().Get(gomock.Any(), gomock.Any(), nil).DoAndReturn(func(_ context.Context, path string, _ url.Values) (backend.Response, error) {
				if err, found := c.errors[path]; found {
					return backend.Response{}, err
				}

				resp, found := c.responses[path]
				if !found {
					return backend.Response{}, common.ErrNotFound
				}

				return resp, nil
			}).AnyTimes()

			hosts, err := discovery.NewResolver(api, entity.ProviderHyperV).DiscoverHosts(context.Background())
			require.NoError(t, err)

			assert.Equal(t, c.expected, hosts)
		})
	}
}

func TestDiscoverHostsAuthShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)

	api.EXPECT().Get(gomock.Any(), "/hyperv/config", nil).Return(backend.Response{}, common.ErrNotFound)
	api.EXPECT().Get(gomock.Any(), "/hyperv/hosts", nil).Return(backend.Response{}, fmt.Errorf("wrapped: %w", common.ErrAuth))

	_, err := discovery.NewResolver(api, entity.ProviderHyperV).DiscoverHosts(context.Background())

	require.ErrorIs(t, err, common.ErrAuth)
	assert.NotErrorIs(t, err, common.ErrNoHosts)
}

func TestDiscoverHostsExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)

	api.EXPECT().Get(gomock.Any(), "/hyperv/config", nil).Return(ok(`{"hosts": []}`), nil)
	api.EXPECT().Get(gomock.Any(), "/hyperv/hosts", nil).Return(backend.Response{}, common.ErrTransport)
	api.EXPECT().Get(gomock.Any(), "/hyperv/vms/batch", nil).Return(ok(`not json`), nil)

	_, err := discovery.NewResolver(api, entity.ProviderHyperV).DiscoverHosts(context.Background())

	require.ErrorIs(t, err, common.ErrNoHosts)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Contains(t, err.Error(), "hosts:")
	assert.Contains(t, err.Error(), "batch:")
}

func TestDiscoverHostsAllEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)

	api.EXPECT().Get(gomock.Any(), gomock.Any(), nil).Return(backend.Response{Status: 204, Empty: true}, nil).Times(3)

	_, err := discovery.NewResolver(api, entity.ProviderHyperV).DiscoverHosts(context.Background())

	assert.Equal(t, common.ErrNoHosts, err)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, []string{}, discovery.Canonical(nil))
	assert.Equal(t, []string{"a", "b"}, discovery.Canonical([]string{" B", "a", "A ", "", "b"}))
}
