package snapshot

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

var metadataKeys = map[string]struct{}{
	"generated_at": {},
	"source":       {},
	"stale":        {},
	"stale_reason": {},
	"hosts_status": {},
	"empty":        {},
}

// ExtractRecords finds the record list of payload. Shapes are tried in order: a bare
// array, a map keyed by provider, a map with a single array valued key, then every
// array value of a map grouped by host. A snapshot envelope is unwrapped through its
// "data" key first. A map without any list yields an empty list, anything else is a
// transport failure.
func ExtractRecords(payload interface{}, provider entity.Provider) ([]interface{}, error) {
	if envelope, ok := payload.(map[string]interface{}); ok {
		if data, found := envelope["data"]; found {
			payload = data
		}
	}

	switch v := payload.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		if list, ok := v[string(provider)].([]interface{}); ok {
			return list, nil
		}

		arrays := arrayKeys(v)

		if len(arrays) == 1 {
			list, _ := v[arrays[0]].([]interface{})

			return list, nil
		}

		if len(arrays) > 1 {
			return flatten(v, arrays), nil
		}

		return []interface{}{}, nil
	}

	return nil, fmt.Errorf("%w: unexpected %T payload for %s", common.ErrTransport, payload, provider)
}

func arrayKeys(m map[string]interface{}) []string {
	ret := []string{}

	for _, key := range slices.Sorted(maps.Keys(m)) {
		if _, isMetadata := metadataKeys[key]; isMetadata {
			continue
		}

		if _, ok := m[key].([]interface{}); ok {
			ret = append(ret, key)
		}
	}

	return ret
}

// flatten concatenates per host lists, tagging records missing a host with their group.
func flatten(grouped map[string]interface{}, keys []string) []interface{} {
	ret := []interface{}{}

	for _, key := range keys {
		list, _ := grouped[key].([]interface{})

		for _, item := range list {
			record, ok := item.(map[string]interface{})
			if ok {
				if _, hasHost := record["host"]; !hasHost {
					record = maps.Clone(record)
					record["host"] = key
				}

				item = record
			}

			ret = append(ret, item)
		}
	}

	return ret
}

func readMetadata(payload interface{}) Raw {
	ret := Raw{HostsStatus: entity.HostsStatus{}}

	envelope, ok := payload.(map[string]interface{})
	if !ok {
		return ret
	}

	if s, ok := envelope["generated_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ret.GeneratedAt = &ts
		}
	}

	if s, ok := envelope["source"].(string); ok {
		ret.Source = entity.SnapshotSource(s)
	}

	ret.Stale, _ = envelope["stale"].(bool)

	if s, ok := envelope["stale_reason"].(string); ok && s != "" {
		ret.StaleReason = &s
	}

	ret.HostsStatus = ReadHostsStatus(envelope["hosts_status"])
	ret.Empty, _ = envelope["empty"].(bool)

	return ret
}

// ReadHostsStatus accepts {"host": {"state": "ok"}} or {"host": "ok"}.
func ReadHostsStatus(value interface{}) entity.HostsStatus {
	ret := entity.HostsStatus{}

	statuses, ok := value.(map[string]interface{})
	if !ok {
		return ret
	}

	for host, status := range statuses {
		switch v := status.(type) {
		case string:
			ret[host] = entity.HostStatus{State: v}
		case map[string]interface{}:
			state, _ := v["state"].(string)
			ret[host] = entity.HostStatus{State: state}
		}
	}

	return ret
}
