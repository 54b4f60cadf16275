package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// ReleaseUseCase drives one release to its desired state.
type ReleaseUseCase interface {
	// Execute reconciles the configured release against the backend and
	// returns the terminal release state.
	Execute(ctx context.Context) (*model.ReleaseResult, error)
}

// OutputSink receives the final key/value results for consumption by the
// invoking pipeline.
type OutputSink interface {
	Set(key, value string) error
}
