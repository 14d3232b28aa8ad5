// seehuhn.de/go/pdf - a library for reading and writing PDF files
// Copyright (C) 2023  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

// xrefEntryType mirrors the three cross-reference entry kinds a PDF
// xref stream can describe (PDF 32000-1:2008 Table 18).
type xrefEntryType int

const (
	xrefFree       xrefEntryType = 0
	xrefInUse      xrefEntryType = 1
	xrefCompressed xrefEntryType = 2
)

// objRecord is one entry of the renumbering table: what a caller's
// [Reference] maps to in the object currently being written.
//
//   - renumber is the new object number, monotonically assigned starting at
//     1 as objects are enqueued; 0 means "not yet enqueued".
//   - objStm, if nonzero, is the new object number of the object stream this
//     object has been packed into, per spec.md's object table design.
//   - gen is the reference's original generation number, kept only for QDF
//     diagnostic output — the generation written out is always 0.
type objRecord struct {
	renumber uint32
	objStm   uint32
	gen      uint16
}

const loopSentinel = ^uint32(0) // transient marker while walking a cycle

// objTable renumbers the input object graph's [Reference]s into a dense,
// monotonically increasing id space for the output file, tracking which new
// ids have been folded into an object stream.
type objTable struct {
	byOld map[Reference]*objRecord
	next  uint32
}

func newObjTable() *objTable {
	return &objTable{byOld: map[Reference]*objRecord{}}
}

// lookup returns the record for ref, creating an unvisited one if needed.
func (t *objTable) lookup(ref Reference) *objRecord {
	rec, ok := t.byOld[ref]
	if !ok {
		rec = &objRecord{gen: ref.Generation()}
		t.byOld[ref] = rec
	}
	return rec
}

// visited reports whether ref has already been assigned a new object
// number.
func (t *objTable) visited(ref Reference) bool {
	rec, ok := t.byOld[ref]
	return ok && rec.renumber != 0 && rec.renumber != loopSentinel
}

// enqueue assigns the next free output object number to ref, unless it
// already has one. It returns the (possibly freshly assigned) new number.
func (t *objTable) enqueue(ref Reference) uint32 {
	rec := t.lookup(ref)
	if rec.renumber != 0 && rec.renumber != loopSentinel {
		return rec.renumber
	}
	t.next++
	rec.renumber = t.next
	return rec.renumber
}

// newXRefEntry is one row of the new-object table: where, in the output
// file, the object with this new id ended up.
type newXRefEntry struct {
	Type   xrefEntryType
	Offset int64  // byte offset in the file, for xrefInUse
	InStm  uint32 // containing object stream's new id, for xrefCompressed
	Index  int    // index within that object stream, for xrefCompressed
	Length int64  // byte length of the object's own serialization
}

// newObjTable records, for every new object id, where it ended up in the
// output byte stream.
type newObjTable struct {
	entries map[uint32]*newXRefEntry
	maxID   uint32
}

func newNewObjTable() *newObjTable {
	return &newObjTable{entries: map[uint32]*newXRefEntry{}}
}

func (t *newObjTable) set(id uint32, e *newXRefEntry) {
	t.entries[id] = e
	if id > t.maxID {
		t.maxID = id
	}
}

func (t *newObjTable) get(id uint32) *newXRefEntry {
	return t.entries[id]
}
