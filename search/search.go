package search

import (
	"slices"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/storage"
	"github.com/azimuth-engine/azimuth/types"
	"github.com/azimuth-engine/azimuth/types/engine"
)

type CallbackFn func(types.EntityID) bool

// ErrNoEntitiesFound is returned by First when nothing matches the search.
var ErrNoEntitiesFound = eris.New("no entities found")

// cache holds the archetypes already known to match a search's component
// filter. Because the store's archetype registry is append-only, the cache
// never needs invalidating: resolving the search again only scans the
// archetypes created since seen.
type cache struct {
	mu         sync.Mutex
	archetypes []types.ArchetypeID
	seen       int
}

// Search finds the entities whose component makeup matches a filter,
// remembering which archetypes matched so repeated runs only examine
// archetypes created since the last one. Build a search once and reuse it
// across ticks; a fresh Search re-scans the whole registry on first use.
type Search struct {
	archMatches *cache
	filter      filter.ComponentFilter
	reader      storage.Reader
	wCtx        engine.Context
	conditions  []FilterFn
}

// NewSearch builds a search over the world state visible through wCtx. The
// component filter decides which archetypes the search visits.
func NewSearch(wCtx engine.Context, componentFilter filter.ComponentFilter) *Search {
	return &Search{
		archMatches: &cache{},
		filter:      componentFilter,
		reader:      wCtx.StoreReader(),
		wCtx:        wCtx,
	}
}

// Where returns a copy of the search narrowed by a per-entity condition.
// Conditions are ANDed together. The copy shares the parent's archetype
// match cache, since the component filter is unchanged.
func (s *Search) Where(condition FilterFn) *Search {
	narrowed := *s
	narrowed.conditions = append(slices.Clone(s.conditions), condition)
	return &narrowed
}

// Each walks every matching entity, stopping early when the callback returns
// false. The callback runs against a snapshot of each archetype's entity
// list, so it may mutate the store, including the entity it was handed.
func (s *Search) Each(callback CallbackFn) (err error) {
	defer func() { panicOnFatalError(s.wCtx, err) }()
	return s.each(callback)
}

// Count returns how many entities match the search.
func (s *Search) Count() (ret int, err error) {
	defer func() { panicOnFatalError(s.wCtx, err) }()
	err = s.each(func(types.EntityID) bool {
		ret++
		return true
	})
	return ret, err
}

// First returns the first matching entity in iteration order, or
// ErrNoEntitiesFound when nothing matches.
func (s *Search) First() (id types.EntityID, err error) {
	defer func() { panicOnFatalError(s.wCtx, err) }()
	id = BadID
	err = s.each(func(found types.EntityID) bool {
		id = found
		return false
	})
	if err != nil {
		return BadID, err
	}
	if id == BadID {
		return BadID, eris.Wrap(ErrNoEntitiesFound, "search matched nothing")
	}
	return id, nil
}

func (s *Search) MustFirst() types.EntityID {
	id, err := s.First()
	if err != nil {
		panic("no entity matches the search")
	}
	return id
}

// Collect returns every entity that matches the search, in ascending ID
// order.
func (s *Search) Collect() (ids []types.EntityID, err error) {
	defer func() { panicOnFatalError(s.wCtx, err) }()
	ids, err = s.collect()
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Search) each(callback CallbackFn) error {
	result := s.evaluateSearch()
	iter := NewEntityIterator(s.reader, result)
	for iter.HasNext() {
		entities, err := iter.Next()
		if err != nil {
			return err
		}
		for _, id := range entities {
			match, err := s.passes(id)
			if err != nil {
				return err
			}
			if !match {
				continue
			}
			if cont := callback(id); !cont {
				return nil
			}
		}
	}
	return nil
}

func (s *Search) collect() ([]types.EntityID, error) {
	results := make([]types.EntityID, 0)
	err := s.each(func(id types.EntityID) bool {
		results = append(results, id)
		return true
	})
	return results, err
}

func (s *Search) context() engine.Context {
	return s.wCtx
}

// passes applies the Where conditions to one entity. A condition error that
// only describes an expected absence, such as the entity not carrying the
// component, counts as a non-match instead of failing the whole iteration.
func (s *Search) passes(id types.EntityID) (bool, error) {
	for _, condition := range s.conditions {
		match, err := condition(s.wCtx, id)
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

func (s *Search) evaluateSearch() []types.ArchetypeID {
	c := s.archMatches
	c.mu.Lock()
	defer c.mu.Unlock()
	for it := s.reader.SearchFrom(s.filter, c.seen); it.HasNext(); {
		c.archetypes = append(c.archetypes, it.Next())
	}
	c.seen = s.reader.ArchetypeCount()
	return c.archetypes
}
