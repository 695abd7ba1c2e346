package search

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/storage"
	"github.com/azimuth-engine/azimuth/types/engine"
)

// nonFatalErrors are the expected, caller-handleable failures an iteration
// can surface. Anything else means the tick's state can no longer be
// trusted.
var nonFatalErrors = []error{
	storage.ErrStaleEntity,
	storage.ErrComponentNotOnEntity,
	storage.ErrComponentAlreadyOnEntity,
	storage.ErrEntityMustHaveAtLeastOneComponent,
	ErrNoEntitiesFound,
}

// panicOnFatalError kills the tick when err is unexpected. Read-only
// contexts never panic, their callers get the error back instead.
func panicOnFatalError(wCtx engine.Context, err error) {
	if err == nil || wCtx.IsReadOnly() || !isFatalError(err) {
		return
	}
	wCtx.Logger().Panic().Err(err).Msgf("tick state is corrupt: %v", eris.ToString(err, true))
	panic(err)
}

func isFatalError(err error) bool {
	return !slices.ContainsFunc(nonFatalErrors, func(target error) bool {
		return eris.Is(err, target)
	})
}
