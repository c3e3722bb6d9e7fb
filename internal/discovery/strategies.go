package discovery

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

var hostKeys = []string{"host", "hostname", "host_name", "name", "id"}

// ConfigStrategy reads the explicit host list of GET /{provider}/config.
type ConfigStrategy struct {
	api      backend.API
	provider entity.Provider
}

func NewConfigStrategy(api backend.API, provider entity.Provider) ConfigStrategy {
	return ConfigStrategy{api: api, provider: provider}
}

func (s ConfigStrategy) Name() string {
	return "config"
}

func (s ConfigStrategy) Hosts(ctx context.Context) ([]string, error) {
	payload, err := get(ctx, s.api, fmt.Sprintf("/%s/config", s.provider))
	if err != nil || payload == nil {
		return nil, err
	}

	switch v := payload.(type) {
	case []interface{}:
		return hostList(v), nil
	case map[string]interface{}:
		for _, key := range []string{"hosts", "host_list", "hyperv_hosts"} {
			list, ok := v[key].([]interface{})
			if ok {
				return hostList(list), nil
			}
		}
	}

	return nil, nil
}

// HostsStrategy reads GET /{provider}/hosts, a list or {"results": [...]}.
type HostsStrategy struct {
	api      backend.API
	provider entity.Provider
}

func NewHostsStrategy(api backend.API, provider entity.Provider) HostsStrategy {
	return HostsStrategy{api: api, provider: provider}
}

func (s HostsStrategy) Name() string {
	return "hosts"
}

func (s HostsStrategy) Hosts(ctx context.Context) ([]string, error) {
	payload, err := get(ctx, s.api, fmt.Sprintf("/%s/hosts", s.provider))
	if err != nil || payload == nil {
		return nil, err
	}

	switch v := payload.(type) {
	case []interface{}:
		return hostList(v), nil
	case map[string]interface{}:
		list, ok := v["results"].([]interface{})
		if ok {
			return hostList(list), nil
		}
	}

	return nil, nil
}

// BatchStrategy derives hosts from the keys of GET /{provider}/vms/batch, grouped by host.
type BatchStrategy struct {
	api      backend.API
	provider entity.Provider
}

func NewBatchStrategy(api backend.API, provider entity.Provider) BatchStrategy {
	return BatchStrategy{api: api, provider: provider}
}

func (s BatchStrategy) Name() string {
	return "batch"
}

func (s BatchStrategy) Hosts(ctx context.Context) ([]string, error) {
	payload, err := get(ctx, s.api, fmt.Sprintf("/%s/vms/batch", s.provider))
	if err != nil || payload == nil {
		return nil, err
	}

	grouped, ok := payload.(map[string]interface{})
	if !ok {
		return nil, nil
	}

	if results, ok := grouped["results"].(map[string]interface{}); ok {
		grouped = results
	}

	return slices.Collect(maps.Keys(grouped)), nil
}

func get(ctx context.Context, api backend.API, path string) (interface{}, error) {
	resp, err := api.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	if resp.Empty {
		return nil, nil
	}

	var ret interface{}

	err = backend.Decode(resp, &ret)
	if err != nil {
		return nil, err
	}

	return ret, nil
}

// hostList accepts plain names or host objects.
func hostList(list []interface{}) []string {
	ret := make([]string, 0, len(list))

	for _, item := range list {
		switch v := item.(type) {
		case string:
			ret = append(ret, v)
		case map[string]interface{}:
			for _, key := range hostKeys {
				name, ok := v[key].(string)
				if ok && name != "" {
					ret = append(ret, name)
					break
				}
			}
		}
	}

	return ret
}
