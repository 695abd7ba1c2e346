package spatial

// ComponentName is the name the Position component registers under. The
// store watches for it to keep the grid in sync with component writes.
const ComponentName = "position"

// Position is a world-space point. It doubles as the built-in component that
// opts an entity into spatial indexing: entities without it never appear in
// grid queries.
type Position struct {
	X float64
	Y float64
	Z float64
}

func (Position) Name() string {
	return ComponentName
}

// DistanceSquaredTo returns the squared euclidean distance to other. Distance
// comparisons throughout the engine stay in squared space so no square roots
// are taken on hot paths.
func (p Position) DistanceSquaredTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}
