package normalize

import (
	"strings"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// Azure normalizes Azure Resource Manager virtual machine records. It is the only
// provider filling the cloud attributes.
type Azure struct {
	base
}

func NewAzure(classifier Classifier) Azure {
	return Azure{
		base: newBase(entity.ProviderAzure, classifier, fields{
			ID:         []string{"vmId", "properties.vmId"},
			PowerState: []string{"powerState", "properties.instanceView.powerState", "displayStatus"},
			GuestOS:    []string{"osName", "properties.storageProfile.osDisk.osType", "storageProfile.osDisk.osType", "osType"},
			CPUCount:   []string{"numberOfCores", "vCPUs"},
			CPUUsage:   []string{"percentage_cpu", "Percentage CPU"},
			// VM size capabilities report memoryInMB in MiB
			Memory:   []UnitField{{Key: "memoryInMB", Unit: UnitMiB}, {Key: "memoryMB", Unit: UnitMiB}, {Key: "memoryGB", Unit: UnitGiB}},
			IPs:      []string{"privateIps", "publicIps"},
			Networks: []string{"vnets", "subnets"},
			NICs:     []string{"networkInterfaces", "properties.networkProfile.networkInterfaces"},
			Disks:    []string{"dataDisks", "storageProfile.dataDisks"},
			DiskHints: DiskHints{
				// diskSizeGB is documented in GiB
				Capacity: []UnitField{{Key: "diskSizeGB", Unit: UnitGiB}, {Key: "diskSizeGiB", Unit: UnitGiB}},
			},
		}),
	}
}

func (n Azure) Normalize(raw Record) entity.VM {
	vm := n.normalize(raw)

	tags := n.tags(raw)
	if vm.Environment == "" {
		vm.Environment = firstTag(tags, "environment", "env", "Environment")
	}

	vm.Tags = tags

	vm.VMSize = optional(firstString(raw, "vmSize", "hardwareProfile.vmSize", "properties.hardwareProfile.vmSize", "size"))
	vm.Location = optional(firstString(raw, "location", "region"))

	group := firstString(raw, "resourceGroup", "resource_group")
	if group == "" {
		group = resourceGroupFromID(firstString(raw, "id"))
	}

	vm.ResourceGroup = optional(group)

	if vm.Cluster == "" {
		vm.Cluster = group
	}

	if vm.Host == "" {
		vm.Host = firstString(raw, "computerName", "osProfile.computerName")
	}

	// NIC references are resource ids
	for i, nic := range vm.NICs {
		vm.NICs[i] = lastSegment(nic)
	}

	osDisk, ok := firstValue(raw, "osDisk", "storageProfile.osDisk", "properties.storageProfile.osDisk")
	if ok {
		vm.Disks = append(ParseDisks(osDisk, n.fields.DiskHints), vm.Disks...)
	}

	if vm.CPUUsagePct == nil {
		metrics, _ := lookup(raw, "metrics")
		vm.CPUUsagePct = pctPtr(MetricValue(metrics, "Percentage CPU", -1))
	}

	return n.finish(vm)
}

func (n Azure) tags(raw Record) map[string]string {
	ret := map[string]string{}

	value, _ := firstValue(raw, "tags", "properties.tags")

	record, ok := asRecord(value)
	if !ok {
		return ret
	}

	for k, v := range record {
		s, ok := toString(v)
		if ok {
			ret[k] = s
		}
	}

	return ret
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, key := range keys {
		for k, v := range tags {
			if strings.EqualFold(k, key) && v != "" {
				return v
			}
		}
	}

	return ""
}

// resourceGroupFromID extracts <rg> from /subscriptions/<s>/resourceGroups/<rg>/providers/...
func resourceGroupFromID(id string) string {
	parts := strings.Split(id, "/")

	for i := 0; i < len(parts)-1; i++ {
		if strings.EqualFold(parts[i], "resourceGroups") {
			return parts[i+1]
		}
	}

	return ""
}

func lastSegment(s string) string {
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return s
	}

	return s[i+1:]
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
