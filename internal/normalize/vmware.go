package normalize

import (
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// VMware normalizes vSphere style records (flat REST summaries or property collector dumps).
type VMware struct {
	base
}

func NewVMware(classifier Classifier) VMware {
	return VMware{
		base: newBase(entity.ProviderVMware, classifier, fields{
			ID:         []string{"vm", "moid", "instance_uuid", "config.instanceUuid"},
			PowerState: []string{"runtime.powerState"},
			Host:       []string{"runtime.host", "esxi_host"},
			Cluster:    []string{"compute_cluster"},
			GuestOS:    []string{"guest_OS", "guest.osFullName", "config.guestFullName", "guest_full_name"},
			CPUCount:   []string{"config.hardware.numCPU", "cpu.count"},
			CPUUsage:   []string{"quickStats.cpuUsagePct"},
			RAMUsage:   []string{"quickStats.guestMemoryUsagePct"},
			// vSphere documents memorySizeMB in MiB
			Memory: []UnitField{
				{Key: "memory_size_MiB", Unit: UnitMiB},
				{Key: "memorySizeMB", Unit: UnitMiB},
				{Key: "config.hardware.memoryMB", Unit: UnitMiB},
			},
			IPs:      []string{"guest.ipAddress", "guest_ip_addresses"},
			Networks: []string{"portgroups", "network_names"},
			DiskHints: DiskHints{
				Used:     []UnitField{{Key: "used_kb", Unit: UnitKiB}, {Key: "committed", Unit: UnitBytes}},
				Capacity: []UnitField{{Key: "capacity_kb", Unit: UnitKiB}, {Key: "capacityInKB", Unit: UnitKiB}, {Key: "capacity", Unit: UnitBytes}},
			},
		}),
	}
}

func (n VMware) Normalize(raw Record) entity.VM {
	vm := n.normalize(raw)

	// vSphere REST reports usage in MHz next to the host capacity
	if vm.CPUUsagePct == nil {
		usage, usageOK := firstNumber(raw, "cpu_usage_mhz", "quickStats.overallCpuUsage")
		capacity, capacityOK := firstNumber(raw, "cpu_capacity_mhz", "runtime.maxCpuUsage")

		if usageOK && capacityOK && capacity > 0 {
			vm.CPUUsagePct = pct(usage/capacity*100, true)
		}
	}

	if vm.RAMUsagePct == nil && vm.MemorySizeMiB != nil && *vm.MemorySizeMiB > 0 {
		used, ok := firstQuantity(raw, UnitField{Key: "quickStats.guestMemoryUsage", Unit: UnitMiB}, UnitField{Key: "memory_used_mib"})
		if ok {
			vm.RAMUsagePct = pct(used.In(UnitMiB)/float64(*vm.MemorySizeMiB)*100, true)
		}
	}

	if len(vm.NICs) == 0 {
		vm.NICs = nicNames(raw, "nics", "label", "mac_address")
	}

	return n.finish(vm)
}

// nicNames reads a list of NIC objects, preferring labelKey over macKey.
func nicNames(raw Record, listKey, labelKey, macKey string) []string {
	ret := []string{}

	value, ok := lookup(raw, listKey)
	if !ok {
		return ret
	}

	list, ok := asList(value)
	if !ok {
		return toStringList(value)
	}

	for _, item := range list {
		record, ok := asRecord(item)
		if !ok {
			ret = append(ret, toStringList(item)...)
			continue
		}

		name := firstString(record, labelKey, "name", macKey)
		if name != "" {
			ret = append(ret, name)
		}
	}

	return ret
}
