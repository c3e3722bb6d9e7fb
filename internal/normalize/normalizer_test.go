package normalize_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/normalize"
)

func record(t *testing.T, s string) normalize.Record {
	t.Helper()

	ret, ok := decode(t, s).(map[string]interface{})
	require.True(t, ok, "fixture is an object")

	return ret
}

func normalizer(t *testing.T, provider entity.Provider) normalize.Normalizer {
	t.Helper()

	n, err := normalize.New(provider, nil)
	require.NoError(t, err)

	return n
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := normalize.New("xen", nil)
	assert.Error(t, err)
}

func TestNormalizeVMware(t *testing.T) {
	vm := normalizer(t, entity.ProviderVMware).Normalize(record(t, `{
		"vm": "vm-42",
		"name": "prod-web-01",
		"power_state": "POWERED_ON",
		"host": "esx-01",
		"cluster": "c1",
		"cpu_count": 4,
		"memory_size_MiB": 8192,
		"guest_OS": "UBUNTU_64",
		"ip_addresses": ["10.0.0.2", "10.0.0.1", "10.0.0.2"],
		"disks": ["50 GiB / 100 GiB (50%)"]
	}`))

	assert.Equal(t, "vm-42", vm.ID)
	assert.Equal(t, "prod-web-01", vm.Name)
	assert.Equal(t, entity.ProviderVMware, vm.Provider)
	assert.Equal(t, entity.PowerStateOn, vm.PowerState)
	assert.Equal(t, "Production", vm.Environment)
	assert.Equal(t, "esx-01", vm.Host)
	assert.Equal(t, "c1", vm.Cluster)
	assert.Equal(t, 4, *vm.CPUCount)
	assert.Equal(t, int64(8192), *vm.MemorySizeMiB)
	assert.Equal(t, "UBUNTU_64", vm.GuestOS)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, vm.IPAddresses)
	require.Len(t, vm.Disks, 1)
	assert.Equal(t, 50.0, *vm.Disks[0].Pct)
	assert.Nil(t, vm.CPUUsagePct)
	assert.Nil(t, vm.VMSize, "cloud attributes are azure only")
}

func TestNormalizeHyperV(t *testing.T) {
	vm := normalizer(t, entity.ProviderHyperV).Normalize(record(t, `{
		"VMName": "tst-app",
		"VMId": "ABC",
		"State": "Running",
		"HostName": "HV01",
		"ProcessorCount": 2,
		"MemoryAssigned": 4294967296,
		"MemoryDemand": 2147483648,
		"NetworkAdapters": [
			{"Name": "nic0", "IPAddresses": ["fe80::1", "10.1.1.1"], "VlanId": 120, "SwitchName": "vSwitch"}
		],
		"HardDrives": [
			{"Path": "C:\\vm.vhdx", "FileSize": 10737418240, "Size": 42949672960}
		]
	}`))

	assert.Equal(t, "ABC", vm.ID)
	assert.Equal(t, "tst-app", vm.Name)
	assert.Equal(t, entity.PowerStateOn, vm.PowerState)
	assert.Equal(t, "HV01", vm.Host)
	assert.Equal(t, "Test", vm.Environment)
	assert.Equal(t, 2, *vm.CPUCount)
	assert.Equal(t, int64(4096), *vm.MemorySizeMiB)
	assert.Equal(t, 50.0, *vm.RAMUsagePct)
	assert.Equal(t, []string{"nic0"}, vm.NICs)
	assert.Equal(t, []string{"10.1.1.1", "fe80::1"}, vm.IPAddresses)
	assert.Equal(t, []string{"120"}, vm.VLANs)
	assert.Equal(t, []string{"vSwitch"}, vm.Networks)
	require.Len(t, vm.Disks, 1)
	assert.Equal(t, 10.0, *vm.Disks[0].AllocatedGiB)
	assert.Equal(t, 25.0, *vm.Disks[0].Pct)
}

func TestNormalizeOVirt(t *testing.T) {
	vm := normalizer(t, entity.ProviderOVirt).Normalize(record(t, `{
		"id": "123",
		"name": "dev-db",
		"status": "up",
		"host": {"id": "h1", "name": "kvm01"},
		"cluster": {"name": "Default"},
		"cpu": {"topology": {"cores": 2, "sockets": 2, "threads": 1}},
		"memory": 8589934592,
		"os": {"type": "rhel_9x64"},
		"statistics": [
			{"name": "cpu.current.total", "values": {"value": [{"datum": 12.5}]}},
			{"name": "memory.installed", "values": {"value": [{"datum": 8589934592}]}},
			{"name": "memory.used", "values": {"value": [{"datum": 4294967296}]}}
		],
		"disk_attachments": [
			{"disk": {"name": "root", "actual_size": 5368709120, "provisioned_size": 21474836480}}
		],
		"nics": [
			{"name": "nic1", "vnic_profile": {"name": "ovirtmgmt"}, "reported_devices": [{"ips": [{"address": "192.168.1.5"}]}]}
		]
	}`))

	assert.Equal(t, "123", vm.ID)
	assert.Equal(t, entity.PowerStateOn, vm.PowerState)
	assert.Equal(t, "kvm01", vm.Host)
	assert.Equal(t, "Default", vm.Cluster)
	assert.Equal(t, "Development", vm.Environment)
	assert.Equal(t, 4, *vm.CPUCount)
	assert.Equal(t, int64(8192), *vm.MemorySizeMiB)
	assert.Equal(t, "rhel_9x64", vm.GuestOS)
	assert.Equal(t, 12.5, *vm.CPUUsagePct)
	assert.Equal(t, 50.0, *vm.RAMUsagePct)
	assert.Equal(t, []string{"nic1"}, vm.NICs)
	assert.Equal(t, []string{"ovirtmgmt"}, vm.Networks)
	assert.Equal(t, []string{"192.168.1.5"}, vm.IPAddresses)
	require.Len(t, vm.Disks, 1)
	assert.Equal(t, 5.0, *vm.Disks[0].AllocatedGiB)
	assert.Equal(t, 20.0, *vm.Disks[0].SizeGiB)
	assert.Equal(t, 25.0, *vm.Disks[0].Pct)
}

func TestNormalizeCedia(t *testing.T) {
	vm := normalizer(t, entity.ProviderCedia).Normalize(record(t, `{
		"id": "urn:vcloud:vm:1",
		"name": "sbx-runner",
		"status": 4,
		"vdc": "VDC-A",
		"numberOfCpus": 2,
		"memoryMB": 2048,
		"metrics": {"entry": [
			{"key": "cpu.usage.average", "value": {"value": "35.5", "unit": "PERCENT"}},
			{"key": "disk.used.latest.0", "value": {"value": "1048576", "unit": "KILOBYTE"}},
			{"key": "disk.provisioned.latest.0", "value": {"value": "4194304", "unit": "KILOBYTE"}},
			{"key": "mem.usage.average", "value": {"value": "-1"}}
		]}
	}`))

	assert.Equal(t, "urn:vcloud:vm:1", vm.ID)
	assert.Equal(t, entity.PowerStateOn, vm.PowerState)
	assert.Equal(t, "Sandbox", vm.Environment)
	assert.Equal(t, "VDC-A", vm.Cluster)
	assert.Equal(t, 2, *vm.CPUCount)
	assert.Equal(t, int64(2048), *vm.MemorySizeMiB)
	assert.Equal(t, 35.5, *vm.CPUUsagePct)
	assert.Nil(t, vm.RAMUsagePct, "negative sample is discarded")
	require.Len(t, vm.Disks, 1)
	assert.Equal(t, 1.0, *vm.Disks[0].AllocatedGiB)
	assert.Equal(t, 4.0, *vm.Disks[0].SizeGiB)
	assert.Equal(t, 25.0, *vm.Disks[0].Pct)
}

func TestNormalizeAzure(t *testing.T) {
	vm := normalizer(t, entity.ProviderAzure).Normalize(record(t, `{
		"id": "/subscriptions/s/resourceGroups/rg-prod/providers/Microsoft.Compute/virtualMachines/vm1",
		"name": "vm1",
		"location": "westeurope",
		"powerState": "VM deallocated",
		"hardwareProfile": {"vmSize": "Standard_B2s"},
		"tags": {"Environment": "Production", "owner": "ops"},
		"storageProfile": {
			"osDisk": {"name": "osdisk", "diskSizeGB": 128, "osType": "Linux"},
			"dataDisks": [{"name": "data", "diskSizeGB": 256}]
		},
		"networkInterfaces": [{"id": "/subscriptions/s/resourceGroups/rg-prod/providers/Microsoft.Network/networkInterfaces/nic-1"}],
		"privateIps": ["10.2.0.4"]
	}`))

	assert.Equal(t, entity.PowerStateOff, vm.PowerState)
	assert.Equal(t, "Production", vm.Environment)
	assert.Equal(t, "Linux", vm.GuestOS)
	require.NotNil(t, vm.VMSize)
	assert.Equal(t, "Standard_B2s", *vm.VMSize)
	require.NotNil(t, vm.Location)
	assert.Equal(t, "westeurope", *vm.Location)
	require.NotNil(t, vm.ResourceGroup)
	assert.Equal(t, "rg-prod", *vm.ResourceGroup)
	assert.Equal(t, map[string]string{"Environment": "Production", "owner": "ops"}, vm.Tags)
	assert.Equal(t, []string{"nic-1"}, vm.NICs)
	assert.Equal(t, []string{"10.2.0.4"}, vm.IPAddresses)
	require.Len(t, vm.Disks, 2)
	assert.Equal(t, 128.0, *vm.Disks[0].SizeGiB)
	assert.Equal(t, 256.0, *vm.Disks[1].SizeGiB)
	assert.Nil(t, vm.Disks[1].Pct)
}

func TestNormalizeTotality(t *testing.T) {
	malformed := []string{
		`{}`,
		`{"id": 5}`,
		`{"name": [], "id": {"nested": true}}`,
		`{"id": "a", "disks": "garbage"}`,
		`{"id": "a", "disks": [1, 2, "x", null, {"used": 3}]}`,
		`{"id": "a", "memory": "lots", "cpu_count": "abc", "cpu_usage": -5}`,
		`{"id": "a", "statistics": {"entry": 5}, "metrics": [null, {"name": null}]}`,
		`{"id": "a", "tags": "x", "storageProfile": 3}`,
		`{"id": "a", "NetworkAdapters": [1, {"IPAddresses": 5}], "nics": "eth0"}`,
		`{"id": "a", "disk_attachments": [5, {"disk": "x"}], "cpu": {"topology": "x"}}`,
		`{"id": "a", "power_state": 12, "State": true, "ip_addresses": [1, null, ""]}`,
	}

	for _, provider := range entity.Providers {
		n := normalizer(t, provider)

		for _, raw := range malformed {
			var vm entity.VM

			require.NotPanics(t, func() {
				vm = n.Normalize(record(t, raw))
			}, "%s: %s", provider, raw)

			assert.Equal(t, provider, vm.Provider)
			assert.NotEmpty(t, vm.PowerState)
			assert.NotEmpty(t, vm.Environment)
			assert.NotNil(t, vm.IPAddresses)
			assert.NotNil(t, vm.VLANs)
			assert.NotNil(t, vm.Networks)
			assert.NotNil(t, vm.NICs)
			assert.NotNil(t, vm.Disks)

			if vm.CPUUsagePct != nil {
				assert.GreaterOrEqual(t, *vm.CPUUsagePct, 0.0)
			}
		}
	}
}

func TestNormalizedRecordShape(t *testing.T) {
	vm := normalizer(t, entity.ProviderVMware).Normalize(normalize.Record{"id": "vm-1"})

	b, err := json.Marshal(vm)
	require.NoError(t, err)

	fields := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &fields))

	for _, key := range []string{
		"id", "name", "provider", "power_state", "environment", "host", "cluster",
		"cpu_count", "cpu_usage_pct", "memory_size_MiB", "ram_usage_pct", "guest_os",
		"ip_addresses", "vlans", "networks", "disks", "nics",
	} {
		assert.Contains(t, fields, key)
	}

	assert.Nil(t, fields["cpu_count"])
	assert.Equal(t, []interface{}{}, fields["disks"])
	assert.Equal(t, entity.EnvironmentUnknown, fields["environment"])
}

func TestNormalizeBatch(t *testing.T) {
	n := normalizer(t, entity.ProviderVMware)

	vms, rejected := normalize.NormalizeBatch(n, []interface{}{
		map[string]interface{}{"id": "vm-1", "name": "a"},
		"not an object",
		map[string]interface{}{"power_state": "poweredOn"},
		map[string]interface{}{"id": "vm-1", "name": "b"},
		map[string]interface{}{"name": "named-only"},
	})

	require.Len(t, vms, 2)
	assert.Equal(t, "vm-1", vms[0].ID)
	assert.Equal(t, "named-only", vms[1].ID)

	require.Len(t, rejected, 3)
	assert.ErrorIs(t, rejected[0].Err, normalize.ErrNotAnObject)
	assert.Equal(t, 1, rejected[0].Index)
	assert.ErrorIs(t, rejected[1].Err, normalize.ErrNoIdentity)
	assert.ErrorIs(t, rejected[2].Err, normalize.ErrDuplicateID)
}

func TestNormalizeHost(t *testing.T) {
	n := normalizer(t, entity.ProviderHyperV)

	host := n.NormalizeHost(record(t, `{
		"host": "H1",
		"cluster": "c1",
		"cpu_usage": 12,
		"memory_used_bytes": 1073741824,
		"memory_total_bytes": 4294967296,
		"vms": [1, 2],
		"connection_state": "connected"
	}`))

	assert.Equal(t, "h1", host.ID)
	assert.Equal(t, "H1", host.Name)
	assert.Equal(t, entity.ProviderHyperV, host.Provider)
	assert.Equal(t, "c1", host.Cluster)
	assert.Equal(t, 12.0, *host.CPUUsagePct)
	assert.Equal(t, 25.0, *host.MemoryUsagePct)
	assert.Equal(t, 2, *host.TotalVMs)
	assert.Equal(t, "connected", host.ConnectionState)

	hosts := normalize.NormalizeHosts(n, []interface{}{"HV02", map[string]interface{}{"name": "hv03"}, nil})
	require.Len(t, hosts, 2)
	assert.Equal(t, "hv02", hosts[0].ID)
	assert.Equal(t, "hv03", hosts[1].ID)
}
