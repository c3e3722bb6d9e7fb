package inventory

import (
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a message meant for the user, never for the logs only.
type Notice struct {
	Provider entity.Provider
	Level    Level
	Message  string
	Err      error
}
