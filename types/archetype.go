package types

import (
	"slices"
	"strconv"
	"strings"
)

// ArchetypeID is an index into the world's append-only table registry. Tables
// are never destroyed once created, so an ArchetypeID stays valid for the
// lifetime of the world.
type ArchetypeID int

// Signature is the canonical identity of an archetype: the sorted,
// duplicate-free set of component IDs its entities carry. Two entities share a
// table iff their signatures are equal.
type Signature []ComponentID

// NewSignature builds a canonical signature from component IDs in any order.
// Duplicates are dropped.
func NewSignature(ids ...ComponentID) Signature {
	sig := make(Signature, 0, len(ids))
	sig = append(sig, ids...)
	slices.Sort(sig)
	return slices.Compact(sig)
}

// Contains reports whether the signature carries the given component.
func (s Signature) Contains(id ComponentID) bool {
	_, found := slices.BinarySearch(s, id)
	return found
}

// ContainsAll reports whether the signature is a superset of other.
func (s Signature) ContainsAll(other Signature) bool {
	for _, id := range other {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// Equal reports whether two canonical signatures are identical.
func (s Signature) Equal(other Signature) bool {
	return slices.Equal(s, other)
}

// With returns a new canonical signature with id added.
func (s Signature) With(id ComponentID) Signature {
	return NewSignature(append(slices.Clone(s), id)...)
}

// Without returns a new canonical signature with id removed.
func (s Signature) Without(id ComponentID) Signature {
	out := make(Signature, 0, len(s))
	for _, existing := range s {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Key returns a string form of the signature usable as a map key.
func (s Signature) Key() string {
	var b strings.Builder
	for i, id := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(id)))
	}
	return b.String()
}
