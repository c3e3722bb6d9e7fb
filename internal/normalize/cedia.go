package normalize

import (
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// maximum number of per-disk metric series read from a vCloud metric document
const maxCediaDisks = 16

// Cedia normalizes vCloud style records, optionally enriched with a metrics document
// under "metrics".
type Cedia struct {
	base
}

func NewCedia(classifier Classifier) Cedia {
	return Cedia{
		base: newBase(entity.ProviderCedia, classifier, fields{
			PowerState: []string{"status"},
			Host:       []string{"hostName", "containerName", "vapp"},
			Cluster:    []string{"vdc", "orgVdcName", "vdcName"},
			GuestOS:    []string{"guestOs", "detectedGuestOs", "osType"},
			CPUCount:   []string{"numberOfCpus", "cpu"},
			// vCloud memoryMB is MiB
			Memory:   []UnitField{{Key: "memoryMB", Unit: UnitMiB}, {Key: "memory", Unit: UnitMiB}},
			IPs:      []string{"ipAddress", "ipAddresses"},
			Networks: []string{"networkName", "networks"},
			DiskHints: DiskHints{
				Used:     []UnitField{{Key: "usedMB", Unit: UnitMiB}},
				Capacity: []UnitField{{Key: "sizeMb", Unit: UnitMiB}, {Key: "sizeMB", Unit: UnitMiB}},
			},
		}),
	}
}

func (n Cedia) Normalize(raw Record) entity.VM {
	vm := n.normalize(raw)

	metrics, ok := firstValue(raw, "metrics", "metric", "perf")
	if !ok {
		return n.finish(vm)
	}

	if vm.CPUUsagePct == nil {
		vm.CPUUsagePct = pctPtr(MetricValue(metrics, "cpu.usage.average", -1))
	}

	if vm.RAMUsagePct == nil {
		vm.RAMUsagePct = pctPtr(MetricValue(metrics, "mem.usage.average", -1))
	}

	if len(vm.Disks) == 0 {
		vm.Disks = metricDisks(metrics)
	}

	return n.finish(vm)
}

// metricDisks rebuilds disks from indexed disk.used.latest / disk.provisioned.latest series.
// vCloud reports both in KILOBYTE.
func metricDisks(metrics interface{}) []entity.DiskUsage {
	ret := []entity.DiskUsage{}

	for i := 0; i < maxCediaDisks; i++ {
		used := metricQuantity(metrics, "disk.used.latest", i)
		provisioned := metricQuantity(metrics, "disk.provisioned.latest", i)

		disk, ok := DiskFromQuantities(used, provisioned, nil)
		if !ok {
			if i == 0 {
				continue
			}

			break
		}

		ret = append(ret, disk)
	}

	if len(ret) == 0 {
		// single disk VMs report an unindexed series
		disk, ok := DiskFromQuantities(metricQuantity(metrics, "disk.used.latest", -1), metricQuantity(metrics, "disk.provisioned.latest", -1), nil)
		if ok {
			ret = append(ret, disk)
		}
	}

	return ret
}

func metricQuantity(metrics interface{}, key string, index int) *Quantity {
	m, ok := FindMetric(metrics, key, index)
	if !ok {
		return nil
	}

	unit, ok := ParseUnit(m.Unit)
	if !ok {
		unit = UnitKiB
	}

	q, ok := NewQuantity(m.Value, unit)
	if !ok {
		return nil
	}

	return &q
}
