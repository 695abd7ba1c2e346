package spatial

import (
	"math"
	"slices"

	"github.com/azimuth-engine/azimuth/types"
)

// DefaultCellSize is the grid cell edge length used when no explicit size is
// configured.
const DefaultCellSize = 50.0

// CellKey addresses one grid cell on the x/z plane. The y axis is never part
// of the key; height only matters for the exact distance and containment
// checks run on candidates.
type CellKey struct {
	X int
	Z int
}

// Grid is a uniform spatial hash over the x/z plane. Membership is driven by
// the store: entities enter on spawn with a position, follow position writes,
// and leave on despawn or position removal.
//
// The grid is not safe for concurrent use. The Store serializes access to it
// under its own lock.
type Grid struct {
	cellSize  float64
	cells     map[CellKey]map[types.EntityID]struct{}
	positions map[types.EntityID]Position
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize:  cellSize,
		cells:     make(map[CellKey]map[types.EntityID]struct{}),
		positions: make(map[types.EntityID]Position),
	}
}

func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// CellOf returns the cell containing the given position. Cells are addressed
// by floor division so negative coordinates land in negative cells rather
// than sharing cell zero.
func (g *Grid) CellOf(pos Position) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X / g.cellSize)),
		Z: int(math.Floor(pos.Z / g.cellSize)),
	}
}

// Len returns the number of tracked entities.
func (g *Grid) Len() int {
	return len(g.positions)
}

// Insert starts tracking an entity at the given position. Inserting an
// entity that is already tracked moves it, so Insert and Update are
// interchangeable.
func (g *Grid) Insert(id types.EntityID, pos Position) {
	if old, ok := g.positions[id]; ok {
		oldCell := g.CellOf(old)
		newCell := g.CellOf(pos)
		if oldCell == newCell {
			g.positions[id] = pos
			return
		}
		g.removeFromCell(id, oldCell)
	}
	cell := g.CellOf(pos)
	set, ok := g.cells[cell]
	if !ok {
		set = make(map[types.EntityID]struct{})
		g.cells[cell] = set
	}
	set[id] = struct{}{}
	g.positions[id] = pos
}

// Update moves a tracked entity to a new position, crossing cell boundaries
// as needed.
func (g *Grid) Update(id types.EntityID, pos Position) {
	g.Insert(id, pos)
}

// Remove stops tracking an entity. Removing an untracked entity is a no-op.
func (g *Grid) Remove(id types.EntityID) {
	pos, ok := g.positions[id]
	if !ok {
		return
	}
	g.removeFromCell(id, g.CellOf(pos))
	delete(g.positions, id)
}

func (g *Grid) removeFromCell(id types.EntityID, cell CellKey) {
	set, ok := g.cells[cell]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(g.cells, cell)
	}
}

// PositionOf returns the last position the grid saw for an entity.
func (g *Grid) PositionOf(id types.EntityID) (Position, bool) {
	pos, ok := g.positions[id]
	return pos, ok
}

// QuerySphere returns the IDs of every tracked entity within radius of
// center, boundary included. Candidate cells are scanned by cell distance on
// the x/z plane, then each candidate is confirmed against the true squared
// distance in all three axes, so entities in a scanned cell but outside the
// sphere never leak into the result. IDs are returned in ascending order.
func (g *Grid) QuerySphere(center Position, radius float64) []types.EntityID {
	if radius < 0 {
		return nil
	}
	radiusSq := radius * radius
	inSphere := func(pos Position) bool {
		return pos.DistanceSquaredTo(center) <= radiusSq
	}

	// When the cell window holds more cells than are occupied, walking every
	// tracked entity is cheaper. It also sidesteps overflow on absurd radii.
	span := 2*math.Ceil(radius/g.cellSize) + 1
	if span*span > float64(len(g.cells)) {
		return g.scanAll(inSphere)
	}

	centerCell := g.CellOf(center)
	cellRadius := int(math.Ceil(radius / g.cellSize))
	var out []types.EntityID
	for dx := -cellRadius; dx <= cellRadius; dx++ {
		for dz := -cellRadius; dz <= cellRadius; dz++ {
			cell := CellKey{X: centerCell.X + dx, Z: centerCell.Z + dz}
			for id := range g.cells[cell] {
				if inSphere(g.positions[id]) {
					out = append(out, id)
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

// QueryBox returns the IDs of every tracked entity inside the axis-aligned
// box spanned by min and max, boundary included. Containment is exact on all
// three axes even though cells only partition x/z. IDs are returned in
// ascending order.
func (g *Grid) QueryBox(min, max Position) []types.EntityID {
	inBox := func(pos Position) bool {
		return pos.X >= min.X && pos.X <= max.X &&
			pos.Y >= min.Y && pos.Y <= max.Y &&
			pos.Z >= min.Z && pos.Z <= max.Z
	}

	spanX := math.Floor(max.X/g.cellSize) - math.Floor(min.X/g.cellSize) + 1
	spanZ := math.Floor(max.Z/g.cellSize) - math.Floor(min.Z/g.cellSize) + 1
	if spanX*spanZ > float64(len(g.cells)) {
		return g.scanAll(inBox)
	}

	lo := g.CellOf(Position{X: min.X, Z: min.Z})
	hi := g.CellOf(Position{X: max.X, Z: max.Z})
	var out []types.EntityID
	for cx := lo.X; cx <= hi.X; cx++ {
		for cz := lo.Z; cz <= hi.Z; cz++ {
			for id := range g.cells[CellKey{X: cx, Z: cz}] {
				if inBox(g.positions[id]) {
					out = append(out, id)
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

// scanAll filters every tracked entity directly, skipping the cell walk.
func (g *Grid) scanAll(keep func(Position) bool) []types.EntityID {
	var out []types.EntityID
	for id, pos := range g.positions {
		if keep(pos) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
