package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// Normalizer maps one provider raw record shape into the unified schema. Implementations
// are pure and total: any input yields a well formed record.
type Normalizer interface {
	Provider() entity.Provider
	Normalize(raw Record) entity.VM
	NormalizeHost(raw Record) entity.Host
}

var (
	ErrNotAnObject = errors.New("record is not an object")
	ErrNoIdentity  = errors.New("record has no id nor name")
	ErrDuplicateID = errors.New("duplicated id")
)

// New returns the normalizer of provider.
func New(provider entity.Provider, classifier Classifier) (Normalizer, error) {
	if classifier == nil {
		classifier = NewPrefixClassifier(nil)
	}

	switch provider {
	case entity.ProviderVMware:
		return NewVMware(classifier), nil
	case entity.ProviderHyperV:
		return NewHyperV(classifier), nil
	case entity.ProviderOVirt:
		return NewOVirt(classifier), nil
	case entity.ProviderCedia:
		return NewCedia(classifier), nil
	case entity.ProviderAzure:
		return NewAzure(classifier), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// Rejected is a raw record dropped from a batch.
type Rejected struct {
	Index int
	Raw   interface{}
	Err   error
}

// NormalizeBatch normalizes every record, dropping the ones that are not objects, have no
// identity, or repeat an id. A dropped record never aborts the batch.
func NormalizeBatch(n Normalizer, records []interface{}) ([]entity.VM, []Rejected) {
	vms := make([]entity.VM, 0, len(records))
	rejected := []Rejected{}
	seen := make(map[string]struct{}, len(records))

	for i, raw := range records {
		record, ok := asRecord(raw)
		if !ok {
			rejected = append(rejected, Rejected{Index: i, Raw: raw, Err: fmt.Errorf("%w: got %s", ErrNotAnObject, describe(raw))})
			continue
		}

		vm, err := safeNormalize(n, record)
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Raw: raw, Err: err})
			continue
		}

		if vm.ID == "" {
			rejected = append(rejected, Rejected{Index: i, Raw: raw, Err: ErrNoIdentity})
			continue
		}

		if _, ok := seen[vm.ID]; ok {
			rejected = append(rejected, Rejected{Index: i, Raw: raw, Err: fmt.Errorf("%w: %s", ErrDuplicateID, vm.ID)})
			continue
		}

		seen[vm.ID] = struct{}{}
		vms = append(vms, vm)
	}

	return vms, rejected
}

// NormalizeHosts normalizes host records, dropping the ones without identity.
func NormalizeHosts(n Normalizer, records []interface{}) []entity.Host {
	ret := make([]entity.Host, 0, len(records))

	for _, raw := range records {
		record, ok := asRecord(raw)
		if !ok {
			// plain host names
			name, _ := toString(raw)
			if name == "" {
				continue
			}

			record = Record{"name": name}
		}

		host := n.NormalizeHost(record)
		if host.ID == "" {
			continue
		}

		ret = append(ret, host)
	}

	return ret
}

func safeNormalize(n Normalizer, record Record) (vm entity.VM, err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	vm = n.Normalize(record)

	return vm, nil
}

// fields lists, per unified attribute, the raw keys a provider may use, in priority order.
type fields struct {
	ID          []string
	Name        []string
	PowerState  []string
	Environment []string
	Host        []string
	Cluster     []string
	GuestOS     []string
	CPUCount    []string
	CPUUsage    []string
	RAMUsage    []string
	Memory      []UnitField
	IPs         []string
	VLANs       []string
	Networks    []string
	NICs        []string
	Disks       []string
	DiskHints   DiskHints
}

var commonFields = fields{
	ID:          []string{"id", "vm_id", "uuid"},
	Name:        []string{"name", "vm_name", "displayName"},
	PowerState:  []string{"power_state", "powerState", "state", "status"},
	Environment: []string{"environment", "env"},
	Host:        []string{"host", "host_name", "hostname"},
	Cluster:     []string{"cluster", "cluster_name"},
	GuestOS:     []string{"guest_os", "os", "operating_system"},
	CPUCount:    []string{"cpu_count", "num_cpu", "vcpus", "cpus"},
	CPUUsage:    []string{"cpu_usage_pct", "cpu_usage", "cpu_pct"},
	RAMUsage:    []string{"ram_usage_pct", "memory_usage_pct", "mem_usage_pct", "ram_usage"},
	Memory:      []UnitField{{Key: "memory_size_MiB"}, {Key: "memory_mib"}, {Key: "memory_gib"}, {Key: "memory_bytes"}, {Key: "memory"}},
	IPs:         []string{"ip_addresses", "ips", "ip_address", "ip"},
	VLANs:       []string{"vlans", "vlan", "vlan_ids"},
	Networks:    []string{"networks", "network", "network_names"},
	NICs:        []string{"nics", "network_adapters", "mac_addresses"},
	Disks:       []string{"disks"},
}

// merge prepends provider specific keys to the common ones.
func (f fields) merge(extra fields) fields {
	return fields{
		ID:          append(extra.ID, f.ID...),
		Name:        append(extra.Name, f.Name...),
		PowerState:  append(extra.PowerState, f.PowerState...),
		Environment: append(extra.Environment, f.Environment...),
		Host:        append(extra.Host, f.Host...),
		Cluster:     append(extra.Cluster, f.Cluster...),
		GuestOS:     append(extra.GuestOS, f.GuestOS...),
		CPUCount:    append(extra.CPUCount, f.CPUCount...),
		CPUUsage:    append(extra.CPUUsage, f.CPUUsage...),
		RAMUsage:    append(extra.RAMUsage, f.RAMUsage...),
		Memory:      append(extra.Memory, f.Memory...),
		IPs:         append(extra.IPs, f.IPs...),
		VLANs:       append(extra.VLANs, f.VLANs...),
		Networks:    append(extra.Networks, f.Networks...),
		NICs:        append(extra.NICs, f.NICs...),
		Disks:       append(extra.Disks, f.Disks...),
		DiskHints:   extra.DiskHints,
	}
}

type base struct {
	provider   entity.Provider
	classifier Classifier
	fields     fields
}

func newBase(provider entity.Provider, classifier Classifier, extra fields) base {
	return base{
		provider:   provider,
		classifier: classifier,
		fields:     commonFields.merge(extra),
	}
}

func (b base) Provider() entity.Provider {
	return b.provider
}

// normalize fills every attribute reachable through the field table.
func (b base) normalize(raw Record) entity.VM {
	f := b.fields

	vm := entity.VM{
		ID:          firstString(raw, f.ID...),
		Name:        firstString(raw, f.Name...),
		Provider:    b.provider,
		Environment: firstString(raw, f.Environment...),
		Host:        firstString(raw, f.Host...),
		Cluster:     firstString(raw, f.Cluster...),
		GuestOS:     firstString(raw, f.GuestOS...),
		IPAddresses: firstStringList(raw, f.IPs...),
		VLANs:       firstStringList(raw, f.VLANs...),
		Networks:    firstStringList(raw, f.Networks...),
		NICs:        firstStringList(raw, f.NICs...),
		Disks:       []entity.DiskUsage{},
	}

	state, _ := firstValue(raw, f.PowerState...)
	vm.PowerState = PowerState(b.provider, state)

	vm.CPUCount = intPtr(firstNumber(raw, f.CPUCount...))
	vm.CPUUsagePct = pct(firstNumber(raw, f.CPUUsage...))
	vm.RAMUsagePct = pct(firstNumber(raw, f.RAMUsage...))

	memory, ok := firstQuantity(raw, f.Memory...)
	if ok {
		vm.MemorySizeMiB = ptr(int64(round(memory.In(UnitMiB), 0)))
	}

	disks, ok := firstValue(raw, f.Disks...)
	if ok {
		vm.Disks = ParseDisks(disks, f.DiskHints)
	}

	return vm
}

// finish enforces the record invariants: identity, environment, normalized sets and
// non nil collections.
func (b base) finish(vm entity.VM) entity.VM {
	if vm.ID == "" {
		vm.ID = vm.Name
	}

	if vm.Name == "" {
		vm.Name = vm.ID
	}

	vm.Provider = b.provider
	vm.Host = strings.TrimSpace(vm.Host)
	vm.Cluster = strings.TrimSpace(vm.Cluster)

	env := strings.TrimSpace(vm.Environment)
	if env == "" || strings.EqualFold(env, entity.EnvironmentUnknown) {
		env = b.classifier.Classify(vm.Name, vm.Cluster, vm.Host)
	}

	vm.Environment = env

	if vm.PowerState == "" {
		vm.PowerState = entity.PowerStateUnknown
	}

	vm.IPAddresses = uniqueSorted(vm.IPAddresses)
	vm.VLANs = uniqueSorted(vm.VLANs)
	vm.Networks = uniqueOrdered(vm.Networks)
	vm.NICs = uniqueOrdered(vm.NICs)

	if vm.Disks == nil {
		vm.Disks = []entity.DiskUsage{}
	}

	return vm
}
