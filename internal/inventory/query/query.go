package query

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

type Mode string

const (
	ModeExact    Mode = "exact"
	ModeContains Mode = "contains"
	ModeWildcard Mode = "wildcard"
)

// MissingPrefix starts the label of the bucket holding VMs without a value.
const MissingPrefix = "Sin "

// missingKey is the key of the bucket holding VMs without a value.
const missingKey = ""

type Filter struct {
	Field Field  `json:"field"`
	Mode  Mode   `json:"mode"`
	Value string `json:"value"`
}

type Sort struct {
	Field Field `json:"field,omitempty"`
	Desc  bool  `json:"desc,omitempty"`
}

// State is everything the user selected on a view. It is persisted per provider.
type State struct {
	Search    string          `json:"search"`
	Filters   []Filter        `json:"filters"`
	Sort      Sort            `json:"sort"`
	GroupBy   Field           `json:"group_by,omitempty"`
	Collapsed map[string]bool `json:"collapsed,omitempty"`
}

func NewState() State {
	return State{
		Filters:   []Filter{},
		Collapsed: map[string]bool{},
	}
}

func (s State) Validate() error {
	for _, f := range s.Filters {
		if !f.Field.Valid() {
			return fmt.Errorf("unknown filter field %q", f.Field)
		}

		switch f.Mode {
		case ModeExact, ModeContains, ModeWildcard:
		default:
			return fmt.Errorf("unknown filter mode %q", f.Mode)
		}
	}

	if s.Sort.Field != "" && !s.Sort.Field.Valid() {
		return fmt.Errorf("unknown sort field %q", s.Sort.Field)
	}

	if s.GroupBy != "" && !s.GroupBy.Groupable() {
		return fmt.Errorf("field %q cannot be grouped", s.GroupBy)
	}

	return nil
}

// WithFilter replaces the filter on f.Field. An empty value removes it.
func (s State) WithFilter(f Filter) State {
	filters := make([]Filter, 0, len(s.Filters)+1)

	for _, existing := range s.Filters {
		if existing.Field != f.Field {
			filters = append(filters, existing)
		}
	}

	if f.Value != "" {
		if f.Mode == "" {
			f.Mode = ModeExact
		}

		filters = append(filters, f)
	}

	s.Filters = filters

	return s
}

// ToggleSort sorts by field ascending, or flips the direction when already sorted by it.
func (s State) ToggleSort(field Field) State {
	if s.Sort.Field == field {
		s.Sort.Desc = !s.Sort.Desc

		return s
	}

	s.Sort = Sort{Field: field}

	return s
}

// ToggleCollapsed flips the collapse state of a group. It survives data refreshes.
func (s State) ToggleCollapsed(key string) State {
	collapsed := maps.Clone(s.Collapsed)
	if collapsed == nil {
		collapsed = map[string]bool{}
	}

	if collapsed[key] {
		delete(collapsed, key)
	} else {
		collapsed[key] = true
	}

	s.Collapsed = collapsed

	return s
}

type Group struct {
	Key       string      `json:"key"`
	Label     string      `json:"label"`
	VMs       []entity.VM `json:"vms"`
	Collapsed bool        `json:"collapsed"`
}

type Result struct {
	Total   int         `json:"total"`
	Matched int         `json:"matched"`
	VMs     []entity.VM `json:"vms"`
	// Groups is nil when no grouping is selected.
	Groups []Group `json:"groups,omitempty"`
}

// Apply filters, sorts then groups vms. The input is never modified.
func Apply(vms []entity.VM, s State) Result {
	matched := make([]entity.VM, 0, len(vms))

	for _, vm := range vms {
		if Match(vm, s) {
			matched = append(matched, vm)
		}
	}

	SortVMs(matched, s.Sort)

	ret := Result{
		Total:   len(vms),
		Matched: len(matched),
		VMs:     matched,
	}

	if s.GroupBy != "" {
		ret.Groups = GroupVMs(matched, s.GroupBy, s.Collapsed)
	}

	return ret
}

// Match reports whether vm passes the global search and every field filter.
func Match(vm entity.VM, s State) bool {
	search := strings.ToLower(strings.TrimSpace(s.Search))

	if search != "" && !slices.ContainsFunc(searchFields, func(f Field) bool {
		return anyValue(vm, f, func(v string) bool { return strings.Contains(v, search) })
	}) {
		return false
	}

	for _, f := range s.Filters {
		if !matchFilter(vm, f) {
			return false
		}
	}

	return true
}

func matchFilter(vm entity.VM, f Filter) bool {
	value := strings.ToLower(strings.TrimSpace(f.Value))
	if value == "" {
		return true
	}

	switch f.Mode {
	case ModeContains:
		return anyValue(vm, f.Field, func(v string) bool { return strings.Contains(v, value) })
	case ModeWildcard:
		return anyValue(vm, f.Field, func(v string) bool { return wildcard.Match(value, v) })
	default:
		return anyValue(vm, f.Field, func(v string) bool { return v == value })
	}
}

// anyValue applies match to the lower cased values of field.
func anyValue(vm entity.VM, field Field, match func(string) bool) bool {
	for _, v := range Values(vm, field) {
		if match(strings.ToLower(v)) {
			return true
		}
	}

	return false
}

// SortVMs sorts in place, keeping the relative order of equal VMs. Missing values go last
// in both directions.
func SortVMs(vms []entity.VM, s Sort) {
	if s.Field == "" {
		return
	}

	slices.SortStableFunc(vms, func(a, b entity.VM) int {
		return compare(a, b, s)
	})
}

func compare(a, b entity.VM, s Sort) int {
	if s.Field.numeric() {
		x, okA := numericValue(a, s.Field)
		y, okB := numericValue(b, s.Field)

		if missing := compareMissing(okA, okB); missing != 0 || !okA {
			return missing
		}

		return direction(cmp.Compare(x, y), s.Desc)
	}

	x := strings.ToLower(strings.Join(Values(a, s.Field), ","))
	y := strings.ToLower(strings.Join(Values(b, s.Field), ","))

	if missing := compareMissing(x != "", y != ""); missing != 0 || x == "" {
		return missing
	}

	return direction(strings.Compare(x, y), s.Desc)
}

func compareMissing(hasA, hasB bool) int {
	switch {
	case hasA == hasB:
		return 0
	case hasA:
		return -1
	default:
		return 1
	}
}

func direction(c int, desc bool) int {
	if desc {
		return -c
	}

	return c
}

// GroupVMs partitions vms by field, keeping their order within every group. Groups come in
// order of first appearance, the missing value bucket last. A VM with several values (VLANs)
// appears in each of its groups.
func GroupVMs(vms []entity.VM, field Field, collapsed map[string]bool) []Group {
	index := map[string]int{}
	ret := []Group{}

	add := func(key, label string, vm entity.VM) {
		i, ok := index[key]
		if !ok {
			i = len(ret)
			index[key] = i
			ret = append(ret, Group{Key: key, Label: label, VMs: []entity.VM{}, Collapsed: collapsed[key]})
		}

		ret[i].VMs = append(ret[i].VMs, vm)
	}

	for _, vm := range vms {
		values := slices.DeleteFunc(slices.Clone(Values(vm, field)), func(v string) bool { return v == "" })
		if len(values) == 0 {
			add(missingKey, MissingPrefix+groupLabels[field], vm)

			continue
		}

		for _, v := range values {
			add(v, v, vm)
		}
	}

	// stable: only the missing bucket moves
	slices.SortStableFunc(ret, func(a, b Group) int {
		return compareMissing(a.Key != missingKey, b.Key != missingKey)
	})

	return ret
}
