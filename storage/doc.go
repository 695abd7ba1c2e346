// Package storage implements the world index: an archetype-based component
// store with generational entity IDs and a uniform spatial grid kept in
// lockstep with it.
//
// Entities live in tables, one table per distinct component set. A table
// stores each component type in a densely packed byte column, with rows
// shared across columns, so iterating one archetype touches contiguous
// memory. Adding or removing a component migrates the entity's row to the
// table of the new component set; despawning swap-removes the row and
// recycles the entity's slot with a bumped generation, which is what makes
// IDs held elsewhere go stale instead of silently aliasing a new entity.
//
// The table registry is append-only. Archetype IDs are indices into it, and
// code that scans for matching archetypes can remember how many tables it
// has seen and resume from there, which is what the search package's
// incremental match cache relies on.
package storage
