package azimuth

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/types/engine"
)

// NonFatalError lists the errors a system is expected to handle itself:
// stale ids, absent components, vetoed or oversized spawns. Anything outside
// this list coming out of a state mutation means the tick's state can no
// longer be trusted.
var NonFatalError = []error{
	ErrStaleEntity,
	ErrComponentNotOnEntity,
	ErrComponentAlreadyOnEntity,
	ErrEntityMustHaveAtLeastOneComponent,
	ErrSpawnRollback,
	ErrBatchTooLarge,
}

// panicOnFatalError kills the tick when err is not one of the expected
// NonFatalError values. Read-only contexts never panic, their callers get
// the error back instead.
func panicOnFatalError(wCtx engine.Context, err error) {
	if err == nil || wCtx.IsReadOnly() || !isFatalError(err) {
		return
	}
	wCtx.Logger().Panic().Err(err).Msgf("tick state is corrupt: %v", eris.ToString(err, true))
	panic(err)
}

func isFatalError(err error) bool {
	return !slices.ContainsFunc(NonFatalError, func(target error) bool {
		return eris.Is(err, target)
	})
}
