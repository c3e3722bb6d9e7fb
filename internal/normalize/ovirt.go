package normalize

import (
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// OVirt normalizes oVirt/KVM engine API records.
type OVirt struct {
	base
}

func NewOVirt(classifier Classifier) OVirt {
	return OVirt{
		base: newBase(entity.ProviderOVirt, classifier, fields{
			GuestOS: []string{"guest_operating_system.distribution", "os.type"},
			// the engine API reports memory in bytes
			Memory: []UnitField{{Key: "memory", Unit: UnitBytes}},
			DiskHints: DiskHints{
				Used:     []UnitField{{Key: "actual_size", Unit: UnitBytes}, {Key: "total_size", Unit: UnitBytes}},
				Capacity: []UnitField{{Key: "provisioned_size", Unit: UnitBytes}},
			},
		}),
	}
}

func (n OVirt) Normalize(raw Record) entity.VM {
	vm := n.normalize(raw)

	if vm.CPUCount == nil {
		vm.CPUCount = topologyCPUs(raw)
	}

	statistics, _ := lookup(raw, "statistics")

	if vm.CPUUsagePct == nil {
		vm.CPUUsagePct = pctPtr(MetricValue(statistics, "cpu.current.total", -1))
	}

	if vm.CPUUsagePct == nil {
		vm.CPUUsagePct = pctPtr(MetricValue(statistics, "cpu.current.guest", -1))
	}

	if vm.RAMUsagePct == nil {
		used := MetricValue(statistics, "memory.used", -1)
		installed := MetricValue(statistics, "memory.installed", -1)

		if used != nil && installed != nil && *installed > 0 {
			vm.RAMUsagePct = pct(*used / *installed * 100, true)
		}
	}

	attachments, ok := lookup(raw, "disk_attachments")
	if ok && len(vm.Disks) == 0 {
		vm.Disks = n.attachedDisks(attachments)
	}

	nics, ok := lookup(raw, "nics")
	if ok {
		n.readNICs(&vm, nics)
	}

	return n.finish(vm)
}

func topologyCPUs(raw Record) *int {
	cores, coresOK := firstNumber(raw, "cpu.topology.cores")
	sockets, socketsOK := firstNumber(raw, "cpu.topology.sockets")
	threads, threadsOK := firstNumber(raw, "cpu.topology.threads")

	if !coresOK && !socketsOK {
		return nil
	}

	if !coresOK {
		cores = 1
	}

	if !socketsOK {
		sockets = 1
	}

	if !threadsOK || threads <= 0 {
		threads = 1
	}

	return intPtr(cores*sockets*threads, true)
}

func (n OVirt) attachedDisks(attachments interface{}) []entity.DiskUsage {
	ret := []entity.DiskUsage{}

	list, ok := asList(attachments)
	if !ok {
		return ret
	}

	for _, item := range list {
		attachment, ok := asRecord(item)
		if !ok {
			continue
		}

		disk, ok := lookup(attachment, "disk")
		if !ok {
			disk = attachment
		}

		ret = append(ret, ParseDisks(disk, n.fields.DiskHints)...)
	}

	return ret
}

// readNICs reads names, networks and the guest agent reported addresses.
func (n OVirt) readNICs(vm *entity.VM, nics interface{}) {
	list, ok := asList(nics)
	if !ok {
		return
	}

	names := []string{}

	for _, item := range list {
		nic, ok := asRecord(item)
		if !ok {
			continue
		}

		name := firstString(nic, "name", "mac.address")
		if name != "" {
			names = append(names, name)
		}

		network := firstString(nic, "vnic_profile.name", "network.name")
		if network != "" {
			vm.Networks = append(vm.Networks, network)
		}

		devices, _ := lookup(nic, "reported_devices")
		deviceList, _ := asList(devices)

		for _, d := range deviceList {
			device, ok := asRecord(d)
			if !ok {
				continue
			}

			ips, _ := lookup(device, "ips")
			ipList, _ := asList(ips)

			for _, i := range ipList {
				ip, ok := asRecord(i)
				if !ok {
					continue
				}

				address := firstString(ip, "address")
				if address != "" {
					vm.IPAddresses = append(vm.IPAddresses, address)
				}
			}
		}
	}

	if len(names) > 0 {
		vm.NICs = names
	}
}

func pctPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}

	return pct(*v, true)
}
