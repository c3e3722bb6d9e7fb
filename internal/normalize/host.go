package normalize

import (
	"strings"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

var hostFields = struct {
	ID, Name, Cluster, CPUUsage, MemoryUsage, Health, Connection, TotalVMs []string
	MemoryUsed, MemoryTotal                                                []UnitField
}{
	ID:          []string{"id", "host_id", "moid", "host", "name", "hostname", "HostName", "ComputerName"},
	Name:        []string{"name", "host", "hostname", "HostName", "ComputerName", "host_name", "id"},
	Cluster:     []string{"cluster", "cluster_name", "ClusterName"},
	CPUUsage:    []string{"cpu_usage_pct", "cpu_usage", "CpuUsage", "cpu.usage", "cpu_pct"},
	MemoryUsage: []string{"memory_usage_pct", "memory_usage", "mem_usage", "ram_usage_pct", "MemoryUsage"},
	Health:      []string{"health", "overall_status", "overallStatus", "HealthState", "status"},
	Connection:  []string{"connection_state", "connectionState", "ConnectionState", "state"},
	TotalVMs:    []string{"total_vms", "vm_count", "vms", "TotalVMs", "summary.vm_count"},
	MemoryUsed:  []UnitField{{Key: "memory_used_bytes"}, {Key: "memory_used_mib"}, {Key: "memory_used"}, {Key: "MemoryUsed"}},
	MemoryTotal: []UnitField{{Key: "memory_total_bytes"}, {Key: "memory_total_mib"}, {Key: "memory_total"}, {Key: "memory_size_MiB"}, {Key: "TotalMemory"}},
}

// NormalizeHost maps a host record into the unified host schema.
func (b base) NormalizeHost(raw Record) entity.Host {
	f := hostFields

	host := entity.Host{
		ID:              strings.ToLower(firstString(raw, f.ID...)),
		Name:            firstString(raw, f.Name...),
		Provider:        b.provider,
		Cluster:         firstString(raw, f.Cluster...),
		Health:          firstString(raw, f.Health...),
		ConnectionState: firstString(raw, f.Connection...),
	}

	host.CPUUsagePct = pct(firstNumber(raw, f.CPUUsage...))
	host.MemoryUsagePct = pct(firstNumber(raw, f.MemoryUsage...))

	if host.MemoryUsagePct == nil {
		used, usedOK := firstQuantity(raw, f.MemoryUsed...)
		total, totalOK := firstQuantity(raw, f.MemoryTotal...)

		if usedOK && totalOK && total.Bytes() > 0 {
			host.MemoryUsagePct = pct(used.Bytes()/total.Bytes()*100, true)
		}
	}

	vms, ok := firstValue(raw, f.TotalVMs...)
	if ok {
		if list, isList := asList(vms); isList {
			host.TotalVMs = ptr(len(list))
		} else {
			host.TotalVMs = intPtr(toNumber(vms))
		}
	}

	return host
}
