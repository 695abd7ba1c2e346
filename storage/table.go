package storage

import (
	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/types"
)

// column is a densely packed byte buffer holding one component type for every
// row of a table. Cells are fixed-stride slices of the buffer; the stride is
// the component's in-memory size, so zero-size components occupy no bytes and
// rely on the table's entity list for row accounting.
type column struct {
	meta   types.ComponentMetadata
	stride int
	data   []byte
}

func newColumn(meta types.ComponentMetadata) *column {
	return &column{meta: meta, stride: meta.Size()}
}

func (c *column) cell(row int) []byte {
	off := row * c.stride
	return c.data[off : off+c.stride]
}

func (c *column) push(cell []byte) {
	c.data = append(c.data, cell...)
}

func (c *column) set(row int, cell []byte) {
	copy(c.cell(row), cell)
}

func (c *column) swapRemove(row, last int) {
	if row != last {
		copy(c.cell(row), c.cell(last))
	}
	c.data = c.data[:last*c.stride]
}

// Table stores every entity of one archetype in column-major order. Rows are
// dense; removal swaps the last row into the hole so iteration never sees
// gaps. The table itself has no locking and no knowledge of the allocator;
// the Store coordinates both.
type Table struct {
	id        types.ArchetypeID
	signature types.Signature
	columns   []*column
	byID      map[types.ComponentID]*column
	metas     []types.ComponentMetadata
	comps     []types.Component
	entities  []types.EntityID
	ticks     []uint64
}

// newTable builds an empty table for the archetype described by metas. The
// metas must already be sorted by component ID; the table's signature is
// derived from them in that order.
func newTable(id types.ArchetypeID, metas []types.ComponentMetadata) *Table {
	t := &Table{
		id:    id,
		byID:  make(map[types.ComponentID]*column, len(metas)),
		metas: metas,
	}
	for _, meta := range metas {
		col := newColumn(meta)
		t.columns = append(t.columns, col)
		t.byID[meta.ID()] = col
		t.signature = append(t.signature, meta.ID())
		t.comps = append(t.comps, meta)
	}
	return t
}

func (t *Table) ID() types.ArchetypeID        { return t.id }
func (t *Table) Signature() types.Signature   { return t.signature }
func (t *Table) Len() int                     { return len(t.entities) }
func (t *Table) Entities() []types.EntityID   { return t.entities }
func (t *Table) EntityAt(row int) types.EntityID { return t.entities[row] }

// Components returns the component views used for filter matching.
func (t *Table) Components() []types.Component { return t.comps }

// Metadata returns the component metadata backing each column, sorted by
// component ID.
func (t *Table) Metadata() []types.ComponentMetadata { return t.metas }

func (t *Table) Has(cID types.ComponentID) bool {
	_, ok := t.byID[cID]
	return ok
}

// Push appends a row for the given entity and returns its row index. Cells
// supplies raw component bytes keyed by component ID; columns without a
// supplied cell are filled with the component's default bytes.
func (t *Table) Push(id types.EntityID, cells map[types.ComponentID][]byte, tick uint64) int {
	row := len(t.entities)
	for _, col := range t.columns {
		cell, ok := cells[col.meta.ID()]
		if !ok {
			cell = col.meta.New()
		}
		col.push(cell)
	}
	t.entities = append(t.entities, id)
	t.ticks = append(t.ticks, tick)
	return row
}

// Cell returns a view of the raw bytes stored for one component of one row.
// The view aliases the column buffer and is only valid until the next
// structural change to the table.
func (t *Table) Cell(cID types.ComponentID, row int) ([]byte, error) {
	col, ok := t.byID[cID]
	if !ok {
		return nil, eris.Wrap(ErrComponentNotOnEntity, "")
	}
	return col.cell(row), nil
}

// SetCell overwrites one component of one row and records tick as the row's
// last write.
func (t *Table) SetCell(cID types.ComponentID, row int, cell []byte, tick uint64) error {
	col, ok := t.byID[cID]
	if !ok {
		return eris.Wrap(ErrComponentNotOnEntity, "")
	}
	col.set(row, cell)
	t.ticks[row] = tick
	return nil
}

// Tick returns the last tick any component of the row was written.
func (t *Table) Tick(row int) uint64 { return t.ticks[row] }

// SwapRemove deletes a row by moving the table's last row into its place.
// It returns the entity that moved along with true, or false when the
// removed row was the last one and nothing needed patching.
func (t *Table) SwapRemove(row int) (types.EntityID, bool) {
	last := len(t.entities) - 1
	for _, col := range t.columns {
		col.swapRemove(row, last)
	}
	moved := t.entities[last]
	t.entities[row] = moved
	t.entities = t.entities[:last]
	t.ticks[row] = t.ticks[last]
	t.ticks = t.ticks[:last]
	if row == last {
		return 0, false
	}
	return moved, true
}
