package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-assisted/inventory-sync/internal/config"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

const confFile = `
backend:
  url: https://inventory.example.com/api
  creds:
    token: secret
cache:
  ttl: 2m
providers:
  hyperv:
    ttl: 10m
    legacy: true
  azure:
    enabled: false
`

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(confFile), 0o600))

	conf, err := config.Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "https://inventory.example.com/api", conf.Backend.URL)
	assert.Equal(t, "token set", conf.Backend.Creds.String())
	assert.Equal(t, 2500*time.Millisecond, conf.Refresh.PollInterval)
	assert.Equal(t, 200*time.Millisecond, conf.Search.Debounce)
	assert.Equal(t, 3, conf.Enrichment.Concurrency)

	assert.Equal(t, 2*time.Minute, conf.ProviderConfig(entity.ProviderVMware).TTL)
	assert.Equal(t, 10*time.Minute, conf.ProviderConfig(entity.ProviderHyperV).TTL)
	assert.True(t, conf.ProviderConfig(entity.ProviderHyperV).Legacy)

	assert.Equal(t,
		[]entity.Provider{entity.ProviderVMware, entity.ProviderOVirt, entity.ProviderCedia},
		conf.EnabledProviders(),
	)
}

func TestValidate(t *testing.T) {
	valid := config.Config{
		Logs:       config.Logs{Encoder: config.EncoderTypeJson},
		Backend:    config.Backend{URL: "http://localhost:8000", Timeout: time.Second},
		Cache:      config.Cache{Type: config.CacheTypeMemory, TTL: time.Minute},
		Refresh:    config.Refresh{PollInterval: time.Second},
		Enrichment: config.Enrichment{Concurrency: 3},
	}

	testCases := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "bad url", mutate: func(c *config.Config) { c.Backend.URL = "not a url" }, wantErr: true},
		{name: "unknown cache", mutate: func(c *config.Config) { c.Cache.Type = "disk" }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *config.Config) { c.Refresh.PollInterval = 0 }, wantErr: true},
		{name: "no worker", mutate: func(c *config.Config) { c.Enrichment.Concurrency = 0 }, wantErr: true},
		{
			name: "unknown provider",
			mutate: func(c *config.Config) {
				c.Providers = map[entity.Provider]config.Provider{"xen": {Enabled: true}}
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)

			err := config.Validate(c)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
