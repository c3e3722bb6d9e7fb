package repo

import (
	"context"

	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

// ProcessingErrorWriter stores the records and requests the sync rejected.
type ProcessingErrorWriter interface {
	WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error
}

type ProcessingError interface {
	ProcessingErrorWriter
}
