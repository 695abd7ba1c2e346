package types

// EntityID identifies an entity in the world. It packs a 32-bit slot index in
// the low bits and a 32-bit generation in the high bits. The generation is
// incremented each time a slot is recycled, so an ID held across a despawn
// stops matching the slot's current generation and is refused as stale.
//
// The layout is fixed: serializers may persist the raw uint64 and a round trip
// preserves identity exactly.
type EntityID uint64

// NewEntityID assembles an EntityID from a slot index and a generation.
func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index portion of the ID.
func (id EntityID) Index() uint32 { return uint32(id) }

// Generation returns the generation portion of the ID.
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
