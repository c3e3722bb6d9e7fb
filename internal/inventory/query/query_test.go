package query_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/inventory/query"
)

func pointer[T any](obj T) *T {
	return &obj
}

func vm(id, name, state, env, host, cluster string) entity.VM {
	return entity.VM{
		ID:          id,
		Name:        name,
		Provider:    entity.ProviderVMware,
		PowerState:  state,
		Environment: env,
		Host:        host,
		Cluster:     cluster,
		IPAddresses: []string{},
		VLANs:       []string{},
		Networks:    []string{},
		Disks:       []entity.DiskUsage{},
		NICs:        []string{},
	}
}

func names(vms []entity.VM) []string {
	ret := make([]string, 0, len(vms))
	for _, v := range vms {
		ret = append(ret, v.Name)
	}

	return ret
}

func fixture() []entity.VM {
	return []entity.VM{
		vm("1", "prod-web-02", entity.PowerStateOn, "Production", "esx-01", "C2"),
		vm("2", "test-db", entity.PowerStateOff, "Test", "esx-02", "C1"),
		vm("3", "prod-web-01", entity.PowerStateOff, "Production", "esx-01", "C1"),
		vm("4", "dev-cache", entity.PowerStateOn, "Development", "esx-03", ""),
		vm("5", "prod-batch", entity.PowerStateOff, "Production", "esx-02", "C2"),
		vm("6", "sandbox", entity.PowerStateSuspended, "Sandbox", "", "C1"),
	}
}

func TestSearchAndFilterScenario(t *testing.T) {
	state := query.NewState()
	state.Search = "prod"
	state = state.WithFilter(query.Filter{Field: query.FieldState, Value: entity.PowerStateOff})

	ret := query.Apply(fixture(), state)

	assert.Equal(t, 6, ret.Total)
	assert.Equal(t, 2, ret.Matched)
	assert.ElementsMatch(t, []string{"prod-web-01", "prod-batch"}, names(ret.VMs))

	for _, v := range ret.VMs {
		assert.Equal(t, entity.PowerStateOff, v.PowerState)
		assert.Contains(t, v.Name, "prod")
	}
}

func TestSearchFields(t *testing.T) {
	type testCase struct {
		name     string
		search   string
		expected []string
	}

	vms := fixture()
	vms[3].GuestOS = "Ubuntu 22.04"

	cases := []testCase{
		{name: "by name", search: "WEB", expected: []string{"prod-web-02", "prod-web-01"}},
		{name: "by os", search: "ubuntu", expected: []string{"dev-cache"}},
		{name: "by host", search: "esx-03", expected: []string{"dev-cache"}},
		{name: "by cluster", search: "c2", expected: []string{"prod-web-02", "prod-batch"}},
		{name: "by environment", search: "sandbox", expected: []string{"sandbox"}},
		{name: "blank", search: "  ", expected: names(vms)},
		{name: "no match", search: "nothing", expected: []string{}},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			state := query.NewState()
			state.Search = c.search

			assert.Equal(t, c.expected, names(query.Apply(vms, state).VMs))
		})
	}
}

func TestFilterModes(t *testing.T) {
	type testCase struct {
		name     string
		filter   query.Filter
		expected []string
	}

	vms := fixture()
	vms[0].VLANs = []string{"100", "200"}

	cases := []testCase{
		{name: "exact", filter: query.Filter{Field: query.FieldHost, Mode: query.ModeExact, Value: "ESX-01"}, expected: []string{"prod-web-02", "prod-web-01"}},
		{name: "exact needs the whole value", filter: query.Filter{Field: query.FieldHost, Mode: query.ModeExact, Value: "esx"}, expected: []string{}},
		{name: "contains", filter: query.Filter{Field: query.FieldName, Mode: query.ModeContains, Value: "web"}, expected: []string{"prod-web-02", "prod-web-01"}},
		{name: "wildcard", filter: query.Filter{Field: query.FieldName, Mode: query.ModeWildcard, Value: "prod-*-0?"}, expected: []string{"prod-web-02", "prod-web-01"}},
		{name: "multi valued", filter: query.Filter{Field: query.FieldVLAN, Mode: query.ModeExact, Value: "200"}, expected: []string{"prod-web-02"}},
		{name: "missing value never matches", filter: query.Filter{Field: query.FieldCluster, Mode: query.ModeWildcard, Value: "*"}, expected: []string{"prod-web-02", "test-db", "prod-web-01", "prod-batch", "sandbox"}},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			state := query.NewState().WithFilter(c.filter)

			assert.Equal(t, c.expected, names(query.Apply(vms, state).VMs))
		})
	}
}

func TestWithFilterReplacesAndRemoves(t *testing.T) {
	state := query.NewState().
		WithFilter(query.Filter{Field: query.FieldHost, Value: "esx-01"}).
		WithFilter(query.Filter{Field: query.FieldHost, Value: "esx-02"}).
		WithFilter(query.Filter{Field: query.FieldCluster, Mode: query.ModeContains, Value: "c"})

	require.Len(t, state.Filters, 2)
	assert.Equal(t, query.Filter{Field: query.FieldHost, Mode: query.ModeExact, Value: "esx-02"}, state.Filters[0])

	state = state.WithFilter(query.Filter{Field: query.FieldHost})
	assert.Len(t, state.Filters, 1)
}

func TestToggleSort(t *testing.T) {
	state := query.NewState().ToggleSort(query.FieldName)
	assert.Equal(t, query.Sort{Field: query.FieldName}, state.Sort)

	state = state.ToggleSort(query.FieldName)
	assert.Equal(t, query.Sort{Field: query.FieldName, Desc: true}, state.Sort)

	state = state.ToggleSort(query.FieldName)
	assert.Equal(t, query.Sort{Field: query.FieldName}, state.Sort)

	state = state.ToggleSort(query.FieldName).ToggleSort(query.FieldHost)
	assert.Equal(t, query.Sort{Field: query.FieldHost}, state.Sort, "a new key starts ascending")
}

func TestSortMissingValuesLast(t *testing.T) {
	vms := fixture()[:3]
	vms[0].CPUCount = pointer(4)
	vms[2].CPUCount = pointer(2)

	for _, desc := range []bool{false, true} {
		sorted := append([]entity.VM{}, vms...)
		query.SortVMs(sorted, query.Sort{Field: query.FieldCPUCount, Desc: desc})

		assert.Equal(t, "test-db", sorted[2].Name, "desc=%v", desc)
	}

	sorted := append([]entity.VM{}, vms...)
	query.SortVMs(sorted, query.Sort{Field: query.FieldCPUCount, Desc: true})
	assert.Equal(t, []string{"prod-web-02", "prod-web-01", "test-db"}, names(sorted))
}

func TestSortIsStable(t *testing.T) {
	state := query.NewState().ToggleSort(query.FieldState)

	ret := query.Apply(fixture(), state)

	assert.Equal(t, []string{"test-db", "prod-web-01", "prod-batch", "prod-web-02", "dev-cache", "sandbox"}, names(ret.VMs))
}

func TestSortThenGroupComposition(t *testing.T) {
	state := query.NewState().ToggleSort(query.FieldName)
	state.GroupBy = query.FieldCluster

	ret := query.Apply(fixture(), state)

	require.Len(t, ret.Groups, 3)

	assert.Equal(t, "C2", ret.Groups[0].Key)
	assert.Equal(t, []string{"prod-batch", "prod-web-02"}, names(ret.Groups[0].VMs))

	assert.Equal(t, "C1", ret.Groups[1].Key)
	assert.Equal(t, []string{"prod-web-01", "sandbox", "test-db"}, names(ret.Groups[1].VMs))

	assert.Equal(t, "Sin cluster", ret.Groups[2].Label)
	assert.Equal(t, []string{"dev-cache"}, names(ret.Groups[2].VMs))

	for _, group := range ret.Groups {
		assert.IsNonDecreasing(t, names(group.VMs), group.Label)
	}
}

func TestGroupByVLAN(t *testing.T) {
	vms := fixture()[:3]
	vms[0].VLANs = []string{"100", "200"}
	vms[2].VLANs = []string{"200"}

	state := query.NewState()
	state.GroupBy = query.FieldVLAN

	groups := query.Apply(vms, state).Groups

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"prod-web-02"}, names(groups[0].VMs))
	assert.Equal(t, []string{"prod-web-02", "prod-web-01"}, names(groups[1].VMs))
	assert.Equal(t, "Sin VLAN", groups[2].Label)
}

func TestCollapseSurvivesRefresh(t *testing.T) {
	state := query.NewState()
	state.GroupBy = query.FieldHost
	state = state.ToggleCollapsed("esx-01")

	before := query.Apply(fixture(), state)

	refreshed := append(fixture(), vm("7", "prod-new", entity.PowerStateOn, "Production", "esx-01", "C1"))
	after := query.Apply(refreshed, state)

	for _, groups := range [][]query.Group{before.Groups, after.Groups} {
		for _, group := range groups {
			assert.Equal(t, group.Key == "esx-01", group.Collapsed, group.Key)
		}
	}

	state = state.ToggleCollapsed("esx-01")
	assert.Empty(t, state.Collapsed)
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	vms := fixture()
	state := query.NewState().ToggleSort(query.FieldName)

	_ = query.Apply(vms, state)

	assert.Equal(t, names(fixture()), names(vms))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, query.NewState().Validate())

	invalid := []query.State{
		query.NewState().WithFilter(query.Filter{Field: "color", Value: "x"}),
		query.NewState().WithFilter(query.Filter{Field: query.FieldName, Mode: "regex", Value: "x"}),
		query.NewState().ToggleSort("color"),
		{GroupBy: query.FieldName},
	}

	for _, state := range invalid {
		assert.Error(t, state.Validate())
	}
}

func TestStatePersistsAsJSON(t *testing.T) {
	state := query.NewState().WithFilter(query.Filter{Field: query.FieldHost, Value: "esx-01"}).ToggleSort(query.FieldName)
	state.GroupBy = query.FieldCluster

	b, err := json.Marshal(state)
	require.NoError(t, err)

	assert.JSONEq(t, `{"search": "", "filters": [{"field": "host", "mode": "exact", "value": "esx-01"}], "sort": {"field": "name"}, "group_by": "cluster"}`, string(b))
}
