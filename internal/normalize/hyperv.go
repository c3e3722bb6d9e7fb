package normalize

import (
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// HyperV normalizes host agent records (PowerShell Get-VM output serialized as JSON).
type HyperV struct {
	base
}

func NewHyperV(classifier Classifier) HyperV {
	return HyperV{
		base: newBase(entity.ProviderHyperV, classifier, fields{
			ID:         []string{"VMId", "VmId", "vm_uuid"},
			Name:       []string{"VMName", "Name"},
			PowerState: []string{"State", "EnabledState"},
			Host:       []string{"HostName", "ComputerName", "host"},
			Cluster:    []string{"ClusterName"},
			GuestOS:    []string{"OSName", "GuestOS", "OperatingSystem"},
			CPUCount:   []string{"ProcessorCount"},
			CPUUsage:   []string{"CPUUsage", "CpuUsage"},
			// Get-VM memory properties are bytes
			Memory: []UnitField{
				{Key: "MemoryStartup", Unit: UnitBytes},
				{Key: "MemoryAssigned", Unit: UnitBytes},
				{Key: "MemoryMaximum", Unit: UnitBytes},
				{Key: "memory_mb", Unit: UnitMiB},
			},
			IPs:      []string{"IPAddresses"},
			VLANs:    []string{"VlanIds", "VLANs"},
			Networks: []string{"SwitchNames", "SwitchName"},
			Disks:    []string{"Disks", "HardDrives", "VHDs"},
			DiskHints: DiskHints{
				Used:     []UnitField{{Key: "FileSize", Unit: UnitBytes}, {Key: "used_bytes", Unit: UnitBytes}},
				Capacity: []UnitField{{Key: "Size", Unit: UnitBytes}, {Key: "size_bytes", Unit: UnitBytes}},
			},
		}),
	}
}

func (n HyperV) Normalize(raw Record) entity.VM {
	vm := n.normalize(raw)

	if vm.RAMUsagePct == nil {
		demand, demandOK := firstQuantity(raw, UnitField{Key: "MemoryDemand", Unit: UnitBytes})
		assigned, assignedOK := firstQuantity(raw, UnitField{Key: "MemoryAssigned", Unit: UnitBytes})

		if demandOK && assignedOK && assigned.Bytes() > 0 {
			vm.RAMUsagePct = pct(demand.Bytes()/assigned.Bytes()*100, true)
		}
	}

	adapters, ok := firstValue(raw, "NetworkAdapters", "network_adapters")
	if ok {
		n.readAdapters(&vm, adapters)
	}

	return n.finish(vm)
}

// readAdapters merges Get-VMNetworkAdapter output into the record.
func (n HyperV) readAdapters(vm *entity.VM, adapters interface{}) {
	list, ok := asList(adapters)
	if !ok {
		return
	}

	nics := []string{}

	for _, item := range list {
		adapter, ok := asRecord(item)
		if !ok {
			continue
		}

		name := firstString(adapter, "Name", "MacAddress")
		if name != "" {
			nics = append(nics, name)
		}

		vm.IPAddresses = append(vm.IPAddresses, firstStringList(adapter, "IPAddresses", "ip_addresses")...)
		vm.VLANs = append(vm.VLANs, firstStringList(adapter, "VlanId", "AccessVlanId", "vlan")...)
		vm.Networks = append(vm.Networks, firstStringList(adapter, "SwitchName", "network")...)
	}

	if len(nics) > 0 {
		vm.NICs = nics
	}
}
