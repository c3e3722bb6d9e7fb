package query

import (
	"strconv"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

type Field string

const (
	FieldID          Field = "id"
	FieldName        Field = "name"
	FieldProvider    Field = "provider"
	FieldState       Field = "power_state"
	FieldEnvironment Field = "environment"
	FieldHost        Field = "host"
	FieldCluster     Field = "cluster"
	FieldOS          Field = "guest_os"
	FieldVLAN        Field = "vlan"
	FieldIP          Field = "ip"
	FieldCPUCount    Field = "cpu_count"
	FieldCPUUsage    Field = "cpu_usage_pct"
	FieldMemory      Field = "memory_size_MiB"
	FieldRAMUsage    Field = "ram_usage_pct"
)

// searchFields are matched by the global search.
var searchFields = []Field{FieldName, FieldOS, FieldHost, FieldCluster, FieldEnvironment}

// groupLabels lists the groupable fields with the name used in their missing value bucket.
var groupLabels = map[Field]string{
	FieldState:       "estado",
	FieldEnvironment: "ambiente",
	FieldHost:        "host",
	FieldVLAN:        "VLAN",
	FieldCluster:     "cluster",
	FieldOS:          "sistema operativo",
}

func (f Field) Valid() bool {
	_, ok := accessors[f]

	return ok
}

func (f Field) Groupable() bool {
	_, ok := groupLabels[f]

	return ok
}

func (f Field) numeric() bool {
	switch f {
	case FieldCPUCount, FieldCPUUsage, FieldMemory, FieldRAMUsage:
		return true
	default:
		return false
	}
}

var accessors = map[Field]func(entity.VM) []string{
	FieldID:          func(vm entity.VM) []string { return text(vm.ID) },
	FieldName:        func(vm entity.VM) []string { return text(vm.Name) },
	FieldProvider:    func(vm entity.VM) []string { return text(string(vm.Provider)) },
	FieldState:       func(vm entity.VM) []string { return text(vm.PowerState) },
	FieldEnvironment: func(vm entity.VM) []string { return text(vm.Environment) },
	FieldHost:        func(vm entity.VM) []string { return text(vm.Host) },
	FieldCluster:     func(vm entity.VM) []string { return text(vm.Cluster) },
	FieldOS:          func(vm entity.VM) []string { return text(vm.GuestOS) },
	FieldVLAN:        func(vm entity.VM) []string { return vm.VLANs },
	FieldIP:          func(vm entity.VM) []string { return vm.IPAddresses },
	FieldCPUCount:    func(vm entity.VM) []string { return number(vm.CPUCount) },
	FieldCPUUsage:    func(vm entity.VM) []string { return number(vm.CPUUsagePct) },
	FieldMemory:      func(vm entity.VM) []string { return number(vm.MemorySizeMiB) },
	FieldRAMUsage:    func(vm entity.VM) []string { return number(vm.RAMUsagePct) },
}

// Values returns the values of field for vm, empty when missing.
func Values(vm entity.VM, field Field) []string {
	accessor, ok := accessors[field]
	if !ok {
		return nil
	}

	return accessor(vm)
}

func text(s string) []string {
	if s == "" {
		return nil
	}

	return []string{s}
}

func number[T int | int64 | float64](v *T) []string {
	if v == nil {
		return nil
	}

	return []string{strconv.FormatFloat(float64(*v), 'f', -1, 64)}
}

func numericValue(vm entity.VM, field Field) (float64, bool) {
	var ret *float64

	switch field {
	case FieldCPUCount:
		if vm.CPUCount != nil {
			ret = ptr(float64(*vm.CPUCount))
		}
	case FieldMemory:
		if vm.MemorySizeMiB != nil {
			ret = ptr(float64(*vm.MemorySizeMiB))
		}
	case FieldCPUUsage:
		ret = vm.CPUUsagePct
	case FieldRAMUsage:
		ret = vm.RAMUsagePct
	}

	if ret == nil {
		return 0, false
	}

	return *ret, true
}

func ptr[T any](v T) *T {
	return &v
}
