package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/inventory/query"
)

func TestParseFilter(t *testing.T) {
	type testCase struct {
		name     string
		raw      string
		expected query.Filter
		fails    bool
	}

	cases := []testCase{
		{name: "exact", raw: "host=esx-01", expected: query.Filter{Field: query.FieldHost, Mode: query.ModeExact, Value: "esx-01"}},
		{name: "contains", raw: "name~=web", expected: query.Filter{Field: query.FieldName, Mode: query.ModeContains, Value: "web"}},
		{name: "wildcard", raw: "name*=prod-*", expected: query.Filter{Field: query.FieldName, Mode: query.ModeWildcard, Value: "prod-*"}},
		{name: "empty value", raw: "vlan=", expected: query.Filter{Field: query.FieldVLAN, Mode: query.ModeExact}},
		{name: "no operator", raw: "host", fails: true},
		{name: "no field", raw: "=x", fails: true},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			f, err := parseFilter(c.raw)
			if c.fails {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.expected, f)
		})
	}
}

func TestPrintTable(t *testing.T) {
	cpu := 4
	memory := int64(2048)

	vms := []entity.VM{
		{Name: "prod-web", PowerState: entity.PowerStateOn, Cluster: "C1", CPUCount: &cpu, MemorySizeMiB: &memory, IPAddresses: []string{"10.0.0.1"}},
		{Name: "dev-db", PowerState: entity.PowerStateOff},
	}

	state := query.NewState()
	state.GroupBy = query.FieldCluster
	state = state.ToggleCollapsed("")

	var b bytes.Buffer
	require.NoError(t, printTable(&b, query.Apply(vms, state)))

	out := b.String()
	assert.Contains(t, out, "# C1 (1)")
	assert.Contains(t, out, "2.0 GiB")
	assert.Contains(t, out, "# Sin cluster (1)")
	assert.NotContains(t, out, "dev-db")
	assert.Contains(t, out, "2/2 VMs")
}
