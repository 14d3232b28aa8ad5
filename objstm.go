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

import (
	"bytes"
	"fmt"
)

// objStmMember is one non-stream object destined for an /ObjStm, already
// renumbered.
type objStmMember struct {
	id  uint32
	obj Native
}

// objStmBatcher groups eligible members into batches of at most batchSize
// entries, following spec.md §4.4's eligibility rules: members must have
// generation 0 (enforced by the caller, which only ever gives renumbered
// ids with an implicit generation 0) and must not themselves be streams.
type objStmBatcher struct {
	batchSize int
	current   []objStmMember
	batches   [][]objStmMember
}

func newObjStmBatcher(batchSize int) *objStmBatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &objStmBatcher{batchSize: batchSize}
}

// eligible reports whether obj may be packed into an object stream at all.
func eligibleForObjStm(obj Native) bool {
	_, isStream := obj.(*Stream)
	return !isStream
}

func (b *objStmBatcher) add(id uint32, obj Native) {
	b.current = append(b.current, objStmMember{id: id, obj: obj})
	if len(b.current) >= b.batchSize {
		b.flush()
	}
}

func (b *objStmBatcher) flush() {
	if len(b.current) == 0 {
		return
	}
	b.batches = append(b.batches, b.current)
	b.current = nil
}

// finish returns all accumulated batches, flushing any partial one.
func (b *objStmBatcher) finish() [][]objStmMember {
	b.flush()
	return b.batches
}

// packObjStm serializes one batch of members into an /ObjStm body, following
// spec.md §4.4's two-pass offset computation: pass 1 records each member's
// byte offset relative to the start of the body, pass 2 prefixes the
// id/offset header.
func packObjStm(u *unparser, members []objStmMember) (header, body []byte, err error) {
	var buf bytes.Buffer
	offsets := make([]int64, len(members))
	bodyUnparser := &unparser{w: &buf, version: u.version, qdf: false, enc: nil}
	for i, m := range members {
		offsets[i] = int64(buf.Len())
		if err := bodyUnparser.object(m.obj, 0, Reference(0), flagInObjStm); err != nil {
			return nil, nil, err
		}
		buf.WriteByte(' ')
	}

	var hdr bytes.Buffer
	for i, m := range members {
		fmt.Fprintf(&hdr, "%d %d ", m.id, offsets[i])
	}

	return hdr.Bytes(), buf.Bytes(), nil
}
