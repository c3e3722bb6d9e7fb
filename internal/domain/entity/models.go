package entity

import (
	"slices"
	"time"
)

type Provider string

const (
	ProviderVMware Provider = "vmware"
	ProviderHyperV Provider = "hyperv"
	ProviderOVirt  Provider = "ovirt"
	ProviderCedia  Provider = "cedia"
	ProviderAzure  Provider = "azure"
)

// Providers lists every supported back end in display order.
var Providers = []Provider{ProviderVMware, ProviderHyperV, ProviderOVirt, ProviderCedia, ProviderAzure}

func (p Provider) Valid() bool {
	for _, provider := range Providers {
		if p == provider {
			return true
		}
	}

	return false
}

const (
	PowerStateOn        = "POWERED_ON"
	PowerStateOff       = "POWERED_OFF"
	PowerStateSuspended = "SUSPENDED"
	PowerStateUnknown   = "UNKNOWN"
)

const EnvironmentUnknown = "unknown"

// VM is the unified record every provider is normalized into.
// Numeric unknowns are nil, text unknowns are empty and collections are never nil.
type VM struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Provider    Provider `json:"provider"`
	PowerState  string   `json:"power_state"`
	Environment string   `json:"environment"`
	Host        string   `json:"host"`
	Cluster     string   `json:"cluster"`

	CPUCount      *int     `json:"cpu_count"`
	CPUUsagePct   *float64 `json:"cpu_usage_pct"`
	MemorySizeMiB *int64   `json:"memory_size_MiB"`
	RAMUsagePct   *float64 `json:"ram_usage_pct"`

	GuestOS     string      `json:"guest_os"`
	IPAddresses []string    `json:"ip_addresses"`
	VLANs       []string    `json:"vlans"`
	Networks    []string    `json:"networks"`
	Disks       []DiskUsage `json:"disks"`
	NICs        []string    `json:"nics"`

	// Cloud only
	VMSize        *string           `json:"vm_size,omitempty"`
	ResourceGroup *string           `json:"resource_group,omitempty"`
	Location      *string           `json:"location,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

type DiskUsage struct {
	Text           string   `json:"text"`
	Pct            *float64 `json:"pct"`
	AllocatedGiB   *float64 `json:"allocatedGiB"`
	SizeGiB        *float64 `json:"sizeGiB"`
	ProvisionedKiB *float64 `json:"provisionedKiB"`
	UsedKiB        *float64 `json:"usedKiB"`
}

type Host struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Provider        Provider `json:"provider"`
	Cluster         string   `json:"cluster"`
	CPUUsagePct     *float64 `json:"cpu_usage_pct"`
	MemoryUsagePct  *float64 `json:"memory_usage_pct"`
	Health          string   `json:"health"`
	ConnectionState string   `json:"connection_state"`
	TotalVMs        *int     `json:"total_vms"`
}

type SnapshotSource string

const (
	SourceMemory SnapshotSource = "memory"
	SourceDB     SnapshotSource = "db"
	SourceCache  SnapshotSource = "cache"
	SourceLegacy SnapshotSource = "legacy"
)

type HostStatus struct {
	State string `json:"state"`
}

const HostStateOK = "ok"

type HostsStatus map[string]HostStatus

// Failing returns the sorted list of hosts whose state is not ok.
func (h HostsStatus) Failing() []string {
	ret := []string{}

	for host, status := range h {
		if status.State != HostStateOK {
			ret = append(ret, host)
		}
	}

	slices.Sort(ret)

	return ret
}

// Snapshot is one fetch result with the server metadata threaded through.
type Snapshot struct {
	Data        map[Provider][]VM `json:"data"`
	GeneratedAt *time.Time        `json:"generated_at"`
	Source      SnapshotSource    `json:"source"`
	Stale       bool              `json:"stale"`
	StaleReason *string           `json:"stale_reason"`
	HostsStatus HostsStatus       `json:"hosts_status"`
	Empty       bool              `json:"empty,omitempty"`
}

type CacheEntry struct {
	Key  string    `json:"key"`
	Data []VM      `json:"data"`
	TS   time.Time `json:"ts"`
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusExpired   JobStatus = "expired"
)

func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 1
	case JobStatusRunning:
		return 2
	case JobStatusSucceeded, JobStatusFailed, JobStatusExpired:
		return 3
	default:
		return 0
	}
}

func (s JobStatus) Terminal() bool {
	return s.rank() == 3
}

// Advance returns the status a job holds after observing next. Statuses never regress
// and a terminal status is never replaced.
func (s JobStatus) Advance(next JobStatus) JobStatus {
	if s.Terminal() || next.rank() <= s.rank() {
		return s
	}

	return next
}

const (
	JobMessagePartial  = "partial"
	JobMessageCooldown = "cooldown_active"
)

type RefreshJob struct {
	JobID         string      `json:"job_id"`
	Status        JobStatus   `json:"status"`
	Message       string      `json:"message"`
	HostsStatus   HostsStatus `json:"hosts_status"`
	CooldownUntil *time.Time  `json:"cooldown_until"`
}

// Partial reports whether the job signals a partial success so far.
func (j RefreshJob) Partial() bool {
	return j.Message == JobMessagePartial || len(j.HostsStatus.Failing()) > 0
}
