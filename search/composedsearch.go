package search

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/types"
	"github.com/azimuth-engine/azimuth/types/engine"
)

// Searchable is implemented by Search and by the Or, And, and Not
// compositions over searches, so set operations nest arbitrarily.
type Searchable interface {
	Each(callback CallbackFn) error
	Count() (int, error)
	First() (types.EntityID, error)
	MustFirst() types.EntityID
	Collect() ([]types.EntityID, error)

	collect() ([]types.EntityID, error)
	context() engine.Context
}

type OrSearch struct {
	searches []Searchable
}

type AndSearch struct {
	searches []Searchable
}

type NotSearch struct {
	search Searchable
}

// Or matches entities matched by any sub-search.
func Or(searches ...Searchable) Searchable {
	if len(searches) == 0 {
		panic("Or requires at least one search")
	}
	return &OrSearch{searches: searches}
}

// And matches entities matched by every sub-search.
func And(searches ...Searchable) Searchable {
	if len(searches) == 0 {
		panic("And requires at least one search")
	}
	return &AndSearch{searches: searches}
}

// Not matches entities the given search does not match.
func Not(search Searchable) Searchable {
	return &NotSearch{search: search}
}

func (orSearch *OrSearch) collect() ([]types.EntityID, error) {
	seen := make(map[types.EntityID]struct{})
	for _, sub := range orSearch.searches {
		ids, err := sub.collect()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func (orSearch *OrSearch) context() engine.Context {
	return orSearch.searches[0].context()
}

func (orSearch *OrSearch) Each(callback CallbackFn) (err error) {
	defer func() { panicOnFatalError(orSearch.context(), err) }()
	return eachOf(orSearch, callback)
}

func (orSearch *OrSearch) Count() (int, error) {
	return countOf(orSearch)
}

func (orSearch *OrSearch) First() (types.EntityID, error) {
	return firstOf(orSearch)
}

func (orSearch *OrSearch) MustFirst() types.EntityID {
	return mustFirstOf(orSearch)
}

func (orSearch *OrSearch) Collect() (ids []types.EntityID, err error) {
	defer func() { panicOnFatalError(orSearch.context(), err) }()
	return orSearch.collect()
}

func (andSearch *AndSearch) collect() ([]types.EntityID, error) {
	counts := make(map[types.EntityID]int)
	for _, sub := range andSearch.searches {
		ids, err := sub.collect()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			counts[id]++
		}
	}
	out := make([]types.EntityID, 0)
	for id, count := range counts {
		if count == len(andSearch.searches) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (andSearch *AndSearch) context() engine.Context {
	return andSearch.searches[0].context()
}

func (andSearch *AndSearch) Each(callback CallbackFn) (err error) {
	defer func() { panicOnFatalError(andSearch.context(), err) }()
	return eachOf(andSearch, callback)
}

func (andSearch *AndSearch) Count() (int, error) {
	return countOf(andSearch)
}

func (andSearch *AndSearch) First() (types.EntityID, error) {
	return firstOf(andSearch)
}

func (andSearch *AndSearch) MustFirst() types.EntityID {
	return mustFirstOf(andSearch)
}

func (andSearch *AndSearch) Collect() (ids []types.EntityID, err error) {
	defer func() { panicOnFatalError(andSearch.context(), err) }()
	return andSearch.collect()
}

func (notSearch *NotSearch) collect() ([]types.EntityID, error) {
	everything := NewSearch(notSearch.context(), filter.All())
	allIDs, err := everything.collect()
	if err != nil {
		return nil, err
	}
	excluded, err := notSearch.search.collect()
	if err != nil {
		return nil, err
	}
	excludedSet := make(map[types.EntityID]struct{}, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = struct{}{}
	}
	out := make([]types.EntityID, 0)
	for _, id := range allIDs {
		if _, ok := excludedSet[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (notSearch *NotSearch) context() engine.Context {
	return notSearch.search.context()
}

func (notSearch *NotSearch) Each(callback CallbackFn) (err error) {
	defer func() { panicOnFatalError(notSearch.context(), err) }()
	return eachOf(notSearch, callback)
}

func (notSearch *NotSearch) Count() (int, error) {
	return countOf(notSearch)
}

func (notSearch *NotSearch) First() (types.EntityID, error) {
	return firstOf(notSearch)
}

func (notSearch *NotSearch) MustFirst() types.EntityID {
	return mustFirstOf(notSearch)
}

func (notSearch *NotSearch) Collect() (ids []types.EntityID, err error) {
	defer func() { panicOnFatalError(notSearch.context(), err) }()
	return notSearch.collect()
}

func eachOf(s Searchable, callback CallbackFn) error {
	ids, err := s.collect()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !callback(id) {
			return nil
		}
	}
	return nil
}

func countOf(s Searchable) (count int, err error) {
	defer func() { panicOnFatalError(s.context(), err) }()
	ids, err := s.collect()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func firstOf(s Searchable) (id types.EntityID, err error) {
	defer func() { panicOnFatalError(s.context(), err) }()
	ids, err := s.collect()
	if err != nil {
		return BadID, err
	}
	if len(ids) == 0 {
		return BadID, eris.Wrap(ErrNoEntitiesFound, "search matched nothing")
	}
	return ids[0], nil
}

func mustFirstOf(s Searchable) types.EntityID {
	id, err := s.First()
	if err != nil {
		panic("no entity matches the search")
	}
	return id
}

func sortedKeys(set map[types.EntityID]struct{}) []types.EntityID {
	out := make([]types.EntityID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
