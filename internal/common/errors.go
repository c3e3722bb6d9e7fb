package common

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

var (
	// ErrAuth is a 401 from a back end. It always reaches the caller so the session can be torn down.
	ErrAuth = errors.New("authentication required")
	// ErrPermission is a 403 from a back end.
	ErrPermission = errors.New("permission denied")
	// ErrTransport covers network, decoding and 5xx failures.
	ErrTransport = errors.New("transport failure")
	ErrNotFound  = errors.New("not found")
	// ErrNoHosts is returned when host discovery exhausted every strategy.
	ErrNoHosts = errors.New("no hosts discovered")
	// ErrRefreshInProgress is returned when a refresh job is already active for a provider.
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrClosed            = errors.New("controller closed")
)

// Processing error categories
const (
	TransportCategory     = "transport"
	AuthCategory          = "auth"
	PermissionCategory    = "permission"
	DecodeCategory        = "decode"
	NormalizationCategory = "normalization"
	DiscoveryCategory     = "discovery"
	RefreshCategory       = "refresh"
)

// CooldownRejected is not a failure: the back end refused to start a job before Until.
type CooldownRejected struct {
	Until *time.Time
}

func (c CooldownRejected) Error() string {
	if c.Until == nil {
		return "refresh cooldown active"
	}

	return fmt.Sprintf("refresh cooldown active until %s", c.Until.Format(time.RFC3339))
}

// PartialFailure reports the sources that failed while others succeeded.
type PartialFailure struct {
	Failed map[string]error
}

func (p PartialFailure) Error() string {
	parts := make([]string, 0, len(p.Failed))
	for _, name := range sortedKeys(p.Failed) {
		parts = append(parts, fmt.Sprintf("%s: %v", name, p.Failed[name]))
	}

	return "partial failure: " + strings.Join(parts, "; ")
}

func (p PartialFailure) Unwrap() []error {
	ret := make([]error, 0, len(p.Failed))
	for _, name := range sortedKeys(p.Failed) {
		ret = append(ret, p.Failed[name])
	}

	return ret
}

func sortedKeys(m map[string]error) []string {
	return slices.Sorted(maps.Keys(m))
}

// UserMessage returns the human readable message shown for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	cooldown := CooldownRejected{}
	partial := PartialFailure{}

	switch {
	case errors.Is(err, ErrAuth):
		return "Your session has expired, please log in again."
	case errors.Is(err, ErrPermission):
		return "You do not have permission to access this inventory."
	case errors.As(err, &cooldown):
		if cooldown.Until == nil {
			return "A refresh was run recently, please try again later."
		}

		return fmt.Sprintf("A refresh was run recently, next refresh allowed at %s.", cooldown.Until.Local().Format("15:04:05"))
	case errors.As(err, &partial):
		return fmt.Sprintf("Some sources could not be loaded (%s), showing the available data.", strings.Join(sortedKeys(partial.Failed), ", "))
	case errors.Is(err, ErrNoHosts):
		return "No hosts could be discovered for this provider."
	case errors.Is(err, ErrRefreshInProgress):
		return "A refresh is already running."
	case errors.Is(err, ErrNotFound):
		return "The requested resource no longer exists."
	case errors.Is(err, ErrTransport):
		return "The inventory could not be loaded, showing cached data. Retry later."
	default:
		return "Unexpected error: " + err.Error()
	}
}

func NewErrProcessingError(err error, category string, inputs []pipeline.Input, reason string, args ...interface{}) pipeline.ErrProcessingError {
	cause := fmt.Sprintf(reason, args...)
	dErr := fmt.Errorf("%s: %w", cause, err)

	return pipeline.NewErrProcessingError(dErr, category, inputs)
}

func NewRetryableErrProcessingError(err error, category string, inputs []pipeline.Input, reason string, args ...interface{}) pipeline.ErrProcessingError {
	return NewErrProcessingError(pipeline.NewErrRetryableError(err), category, inputs, reason, args...)
}
