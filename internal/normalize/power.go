package normalize

import (
	"strings"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

var powerStates = map[string]string{
	"poweredon":     entity.PowerStateOn,
	"poweron":       entity.PowerStateOn,
	"on":            entity.PowerStateOn,
	"running":       entity.PowerStateOn,
	"vmrunning":     entity.PowerStateOn,
	"up":            entity.PowerStateOn,
	"started":       entity.PowerStateOn,
	"active":        entity.PowerStateOn,
	"poweredoff":    entity.PowerStateOff,
	"poweroff":      entity.PowerStateOff,
	"off":           entity.PowerStateOff,
	"down":          entity.PowerStateOff,
	"stopped":       entity.PowerStateOff,
	"vmstopped":     entity.PowerStateOff,
	"deallocated":   entity.PowerStateOff,
	"vmdeallocated": entity.PowerStateOff,
	"shutoff":       entity.PowerStateOff,
	"shutdown":      entity.PowerStateOff,
	"suspended":     entity.PowerStateSuspended,
	"vmsuspended":   entity.PowerStateSuspended,
	"paused":        entity.PowerStateSuspended,
	"saved":         entity.PowerStateSuspended,
	"hibernated":    entity.PowerStateSuspended,
	"unknown":       entity.PowerStateUnknown,
	"unrecognized":  entity.PowerStateUnknown,
	"notapplicable": entity.PowerStateUnknown,
}

// numeric state codes per provider
var powerCodes = map[entity.Provider]map[string]string{
	// vCloud VM status
	entity.ProviderCedia: {
		"4": entity.PowerStateOn,
		"8": entity.PowerStateOff,
		"3": entity.PowerStateSuspended,
	},
	// Hyper-V EnabledState
	entity.ProviderHyperV: {
		"2":     entity.PowerStateOn,
		"3":     entity.PowerStateOff,
		"6":     entity.PowerStateSuspended,
		"9":     entity.PowerStateSuspended,
		"32768": entity.PowerStateSuspended,
		"32769": entity.PowerStateSuspended,
	},
}

// PowerState maps a provider power state to the unified vocabulary. Unknown non-empty
// values are passed through as received.
func PowerState(provider entity.Provider, raw interface{}) string {
	value, ok := toString(raw)
	if !ok || value == "" {
		return entity.PowerStateUnknown
	}

	if code, ok := powerCodes[provider][value]; ok {
		return code
	}

	key := strings.ToLower(value)
	// azure: PowerState/running
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}

	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)

	if state, ok := powerStates[key]; ok {
		return state
	}

	return value
}
