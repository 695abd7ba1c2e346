package search

import (
	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/types"
	"github.com/azimuth-engine/azimuth/types/engine"
)

// FilterFn is a per-entity condition applied after archetype matching.
type FilterFn func(wCtx engine.Context, id types.EntityID) (bool, error)

// ComponentFilter builds a condition on the value of component T. Entities
// that do not carry T simply fail the condition.
func ComponentFilter[T types.Component](pred func(comp T) bool) FilterFn {
	return func(wCtx engine.Context, id types.EntityID) (bool, error) {
		var zero T
		meta, err := wCtx.GetComponentByName(zero.Name())
		if err != nil {
			return false, err
		}

		raw, err := wCtx.StoreReader().GetComponentForEntity(meta, id)
		if err != nil {
			return false, err
		}

		val, ok := raw.(T)
		if !ok {
			ptr, ptrOk := raw.(*T)
			if !ptrOk {
				return false, eris.Errorf("component %q has an unexpected concrete type", zero.Name())
			}
			val = *ptr
		}
		return pred(val), nil
	}
}

// AndFilter passes when every condition passes. A condition that fails with
// an expected error, such as a missing component, counts as not passing.
func AndFilter(fns ...FilterFn) FilterFn {
	return func(wCtx engine.Context, id types.EntityID) (bool, error) {
		for _, fn := range fns {
			match, err := fn(wCtx, id)
			if err != nil {
				if isFatalError(err) {
					return false, err
				}
				return false, nil
			}
			if !match {
				return false, nil
			}
		}
		return true, nil
	}
}

// OrFilter passes when any condition passes. Conditions failing with
// expected errors are skipped rather than failing the whole disjunction.
func OrFilter(fns ...FilterFn) FilterFn {
	return func(wCtx engine.Context, id types.EntityID) (bool, error) {
		for _, fn := range fns {
			match, err := fn(wCtx, id)
			if err != nil {
				if isFatalError(err) {
					return false, err
				}
				continue
			}
			if match {
				return true, nil
			}
		}
		return false, nil
	}
}

// NotFilter inverts a condition.
func NotFilter(fn FilterFn) FilterFn {
	return func(wCtx engine.Context, id types.EntityID) (bool, error) {
		match, err := fn(wCtx, id)
		if err != nil {
			if isFatalError(err) {
				return false, err
			}
			return true, nil
		}
		return !match, nil
	}
}
