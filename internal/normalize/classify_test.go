package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/normalize"
)

func TestPrefixClassifier(t *testing.T) {
	classifier := normalize.NewPrefixClassifier(nil)

	cases := []struct {
		name       string
		candidates []string
		expected   string
	}{
		{name: "first matching name token", candidates: []string{"web-prod-01"}, expected: "Production"},
		{name: "leading token wins", candidates: []string{"sbx_test vm"}, expected: "Sandbox"},
		{name: "lower case prefix", candidates: []string{"dev-db"}, expected: "Development"},
		{name: "name before cluster", candidates: []string{"app01", "cluster-test", "p-host"}, expected: "Test"},
		{name: "host as last resort", candidates: []string{"app01", "", "p-hv01"}, expected: "Production"},
		{name: "no match", candidates: []string{"app01", "cluster1", "hv01"}, expected: entity.EnvironmentUnknown},
		{name: "empty", candidates: nil, expected: entity.EnvironmentUnknown},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, c.expected, classifier.Classify(c.candidates...))
		})
	}
}

func TestPrefixClassifierOverrides(t *testing.T) {
	classifier := normalize.NewPrefixClassifier(map[string]string{"q": "QA", "p": "Prod", "invalid": "x"})

	assert.Equal(t, "QA", classifier.Classify("q-runner"))
	assert.Equal(t, "Prod", classifier.Classify("p-runner"))
	assert.Equal(t, "Sandbox", classifier.Classify("s-runner"))
	assert.Equal(t, entity.EnvironmentUnknown, classifier.Classify("invalid"))
}

func TestDisplayCluster(t *testing.T) {
	classifier := normalize.NewPrefixClassifier(nil)

	assert.Equal(t, "c1", normalize.DisplayCluster(entity.VM{Cluster: "c1", Host: "p-hv01"}, classifier))
	assert.Equal(t, "Production", normalize.DisplayCluster(entity.VM{Host: "p-hv01"}, classifier))
	assert.Equal(t, "", normalize.DisplayCluster(entity.VM{Host: "hv01"}, classifier))
	assert.Equal(t, "", normalize.DisplayCluster(entity.VM{}, classifier))
}

func TestPowerState(t *testing.T) {
	cases := []struct {
		provider entity.Provider
		raw      interface{}
		expected string
	}{
		{entity.ProviderVMware, "POWERED_ON", entity.PowerStateOn},
		{entity.ProviderVMware, "poweredOff", entity.PowerStateOff},
		{entity.ProviderVMware, "suspended", entity.PowerStateSuspended},
		{entity.ProviderHyperV, "Running", entity.PowerStateOn},
		{entity.ProviderHyperV, "Saved", entity.PowerStateSuspended},
		{entity.ProviderHyperV, 2.0, entity.PowerStateOn},
		{entity.ProviderOVirt, "up", entity.PowerStateOn},
		{entity.ProviderOVirt, "down", entity.PowerStateOff},
		{entity.ProviderCedia, 4.0, entity.PowerStateOn},
		{entity.ProviderCedia, "8", entity.PowerStateOff},
		{entity.ProviderCedia, 3.0, entity.PowerStateSuspended},
		{entity.ProviderAzure, "PowerState/deallocated", entity.PowerStateOff},
		{entity.ProviderAzure, "VM running", entity.PowerStateOn},
		{entity.ProviderVMware, "migrating", "migrating"},
		{entity.ProviderVMware, 4.0, "4"},
		{entity.ProviderVMware, nil, entity.PowerStateUnknown},
		{entity.ProviderVMware, "", entity.PowerStateUnknown},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, normalize.PowerState(c.provider, c.raw), "%s %v", c.provider, c.raw)
	}
}
