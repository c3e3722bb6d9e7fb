package cache_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/valkey-io/valkey-go"

	"github.com/openshift-assisted/inventory-sync/internal/cache"
	"github.com/openshift-assisted/inventory-sync/internal/config"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/factory"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

// Helper

func startValkey(t *testing.T) testcontainers.Container {
	req := testcontainers.ContainerRequest{
		Image:        "quay.io/sclorg/valkey-7-c10s:bf91acf0827dc5db216164aafe3d34beb245dcec",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections tcp"),
	}
	ret, err := testcontainers.GenericContainer(context.Background(), testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})

	testcontainers.CleanupContainer(t, ret)

	require.NoError(t, err, "failed to start valkey instance")

	return ret
}

func createValkeyClient(t *testing.T, container testcontainers.Container) valkey.Client {
	endpoint, err := container.Endpoint(context.Background(), "")
	require.NoError(t, err, "failed to get valkey endpoint")

	ret, _, err := factory.CreateValkeyClient(context.Background(), config.Valkey{URL: endpoint})
	require.NoError(t, err, "failed to create valkey client")

	return ret
}

// Suite

type ValkeyKVIntegrationTestSuite struct {
	suite.Suite

	client    valkey.Client
	kv        cache.ValkeyKV
	container testcontainers.Container
}

func (s *ValkeyKVIntegrationTestSuite) SetupSuite() {
	t := s.T()

	s.container = startValkey(t)
	s.client = createValkeyClient(t, s.container)
	s.kv = cache.NewValkeyKV(s.client, time.Minute)
}

func (s *ValkeyKVIntegrationTestSuite) TearDownTest() {
	ctx := context.Background()
	command := s.client.B().Flushall().Build()

	err := s.client.Do(ctx, command).Error()
	require.NoError(s.T(), err, "failed to clean valkey")
}

// Run test

func TestValkeyKVIntegrationTestSuite(t *testing.T) {
	t.Parallel()

	suite.Run(t, new(ValkeyKVIntegrationTestSuite))
}

// Test

func (s *ValkeyKVIntegrationTestSuite) TestStoreRoundTrip() {
	ctx := context.Background()
	t := s.T()

	store := cache.NewStore(s.kv)
	key := cache.VMsKey(entity.ProviderVMware)
	vms := []entity.VM{{ID: "vm-1", Name: "a", Provider: entity.ProviderVMware, Disks: []entity.DiskUsage{}}}

	written, err := store.Set(ctx, key, vms)
	require.NoError(t, err, "failed to write cache entry")

	entry, ok, err := store.Get(ctx, key)
	require.NoError(t, err, "failed to read cache entry")
	require.True(t, ok, "entry not found")

	assert.Equal(t, written.Data, entry.Data, "different data")
	assert.True(t, written.TS.Equal(entry.TS), "different timestamp")
}

func (s *ValkeyKVIntegrationTestSuite) TestGetUnknowKey() {
	ctx := context.Background()
	t := s.T()

	_, ok, err := s.kv.Get(ctx, "random")
	require.NoError(t, err, "failed to get key")

	assert.False(t, ok, "unknown key should be absent")
}

func (s *ValkeyKVIntegrationTestSuite) TestClearPrefix() {
	ctx := context.Background()
	t := s.T()

	for _, key := range []string{"inventory:vms:a", "inventory:filters:a", "other"} {
		require.NoError(t, s.kv.Set(ctx, key, []byte("x")), "failed to set %s", key)
	}

	require.NoError(t, s.kv.Clear(ctx, cache.KeyPrefix), "failed to clear")

	for key, expected := range map[string]bool{"inventory:vms:a": false, "inventory:filters:a": false, "other": true} {
		_, ok, err := s.kv.Get(ctx, key)
		require.NoError(t, err, "failed to get %s", key)
		assert.Equal(t, expected, ok, key)
	}
}

func (s *ValkeyKVIntegrationTestSuite) TestExpiration() {
	ctx := context.Background()
	t := s.T()

	err := s.kv.Set(ctx, "inventory:vms:a", []byte("x"))
	require.NoError(t, err, "failed to set key")

	// This is breaking black-box testing but is convenient...
	command := s.client.B().Ttl().Key("inventory:vms:a").Build()

	resp := s.client.Do(ctx, command)
	require.NoError(t, resp.Error(), "failed to get TTL")

	ttl, err := resp.AsInt64() // ttl in second
	require.NoError(t, err, "TTL is not a int64")

	// This command returns -2 if key does not exist
	// This command returns -1 if key exists but has no TTL
	assert.Greater(t, ttl, int64(45), "ttl is supposed to be 1min") // Keeping some margin
}

func TestLosingConnection(t *testing.T) {
	t.Parallel()

	container := startValkey(t)
	client := createValkeyClient(t, container)
	kv := cache.NewValkeyKV(client, time.Minute)

	// stop the container
	err := container.Terminate(context.Background())
	require.NoError(t, err, "failed to terminate valkey")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _, err = kv.Get(ctx, "unknown")
	require.Error(t, err, "get should fail")

	require.ErrorIs(t, err, pipeline.ErrRetryableError, "error should be retryable: %v", reflect.TypeOf(err))
}
