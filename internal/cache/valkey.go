package cache

import (
	"context"
	"errors"
	"syscall"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openshift-assisted/inventory-sync/internal/common"
)

const (
	categoryValkeyClientError = "valkey_client"
	categoryInternalError     = "valkey_internal_error"

	scanCount = 100
)

// ValkeyKV stores values in valkey. Every write resets the key expiration to retention,
// so an idle session ages out on its own.
type ValkeyKV struct {
	client    valkey.Client
	retention time.Duration
}

func NewValkeyKV(client valkey.Client, retention time.Duration) ValkeyKV {
	return ValkeyKV{
		client:    client,
		retention: retention,
	}
}

func (r ValkeyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	command := r.client.B().Get().Key(key).Build()

	ret, err := r.client.Do(ctx, command).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}

		return nil, false, r.wrap(err, "failed to get %s", key)
	}

	return ret, true, nil
}

func (r ValkeyKV) Set(ctx context.Context, key string, value []byte) error {
	var command valkey.Completed

	seconds := int64(r.retention.Seconds())
	if seconds > 0 {
		command = r.client.B().Set().Key(key).Value(valkey.BinaryString(value)).ExSeconds(seconds).Build()
	} else {
		command = r.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Build()
	}

	err := r.client.Do(ctx, command).Error()
	if err != nil {
		return r.wrap(err, "failed to set %s", key)
	}

	return nil
}

func (r ValkeyKV) Delete(ctx context.Context, key string) error {
	command := r.client.B().Del().Key(key).Build()

	err := r.client.Do(ctx, command).Error()
	if err != nil {
		return r.wrap(err, "failed to delete %s", key)
	}

	return nil
}

func (r ValkeyKV) Clear(ctx context.Context, prefix string) error {
	var cursor uint64

	for {
		command := r.client.B().Scan().Cursor(cursor).Match(prefix + "*").Count(scanCount).Build()

		entry, err := r.client.Do(ctx, command).AsScanEntry()
		if err != nil {
			return r.wrap(err, "failed to scan %s", prefix)
		}

		if len(entry.Elements) > 0 {
			del := r.client.B().Del().Key(entry.Elements...).Build()

			err = r.client.Do(ctx, del).Error()
			if err != nil {
				return r.wrap(err, "failed to delete %d keys", len(entry.Elements))
			}
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

func (r ValkeyKV) wrap(err error, reason string, args ...interface{}) error {
	if r.isRetryable(err) {
		return common.NewRetryableErrProcessingError(err, categoryValkeyClientError, nil, reason, args...)
	}

	if _, isValkeyError := valkey.IsValkeyErr(err); isValkeyError {
		return common.NewErrProcessingError(err, categoryValkeyClientError, nil, reason, args...)
	}

	return common.NewErrProcessingError(err, categoryInternalError, nil, reason, args...)
}

func (r ValkeyKV) isRetryable(err error) bool {
	// Network error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	vErr, isValkeyError := valkey.IsValkeyErr(err)
	if !isValkeyError {
		return false
	}

	return vErr.IsTryAgain()
}
