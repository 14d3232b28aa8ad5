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
	"compress/zlib"
	"fmt"
	"io"
	"maps"
)

// writeXRefTable emits the classic, table-form cross-reference section and
// trailer (spec.md §4.7 "Table form"), used whenever the output version is
// below PDF 1.5 or object streams are disabled (QDF mode, in particular).
func writeXRefTable(w io.Writer, tbl *newObjTable, trailer Dict) (int64, error) {
	fmt.Fprintf(w, "xref\n0 %d\n", tbl.maxID+1)
	io.WriteString(w, "0000000000 65535 f \n")
	for id := uint32(1); id <= tbl.maxID; id++ {
		e := tbl.get(id)
		if e == nil || e.Type == xrefFree {
			io.WriteString(w, "0000000000 00000 f \n")
			continue
		}
		// objects packed into an object stream have no entry in the
		// classic table form; the caller only uses this writer when
		// object streams are disabled, so this branch is defensive.
		fmt.Fprintf(w, "%010d %05d n \n", e.Offset, 0)
	}

	io.WriteString(w, "trailer\n")
	u := newUnparser(w, V1_4, false, nil)
	if err := u.object(trailer, 0, Reference(0), 0); err != nil {
		return 0, err
	}
	io.WriteString(w, "\n")
	return 0, nil
}

// bytesNeeded returns the minimal number of bytes needed to represent v in a
// big-endian field, per spec.md §4.7's `f1 = bytesNeeded(...)` rule.
func bytesNeeded(v int64) int {
	n := 1
	for v >= 1<<(8*n) {
		n++
	}
	return n
}

// xrefStreamRow renders one (type, field1, field2) row as big-endian bytes
// of the given field widths.
func xrefStreamRow(typ xrefEntryType, f1, f2 int64, w1, w2 int) []byte {
	row := make([]byte, 1+w1+w2)
	row[0] = byte(typ)
	putBE(row[1:1+w1], f1)
	putBE(row[1+w1:], f2)
	return row
}

func putBE(dst []byte, v int64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

// buildXRefStream renders an /XRef stream's body and dictionary, following
// spec.md §4.7's "Stream form". ids lists, in increasing order, every
// object number covered by this xref section (normally 0..maxID).
func buildXRefStream(tbl *newObjTable, ids []uint32, size uint32, prev int64, trailer Dict, filtered bool) (body []byte, dict Dict) {
	var maxOffset int64
	var maxStmIdx int64
	for _, id := range ids {
		e := tbl.get(id)
		if e == nil {
			continue
		}
		if e.Type == xrefInUse && e.Offset > maxOffset {
			maxOffset = e.Offset
		}
		if e.Type == xrefCompressed && int64(e.Index) > maxStmIdx {
			maxStmIdx = int64(e.Index)
		}
	}
	f1 := bytesNeeded(maxOffset)
	if f1 < 1 {
		f1 = 1
	}
	f2 := bytesNeeded(maxStmIdx)
	if f2 < 1 {
		f2 = 1
	}

	var raw []byte
	for _, id := range ids {
		e := tbl.get(id)
		if id == 0 {
			raw = append(raw, xrefStreamRow(xrefFree, 0, 0, f1, f2)...)
			continue
		}
		if e == nil || e.Type == xrefFree {
			raw = append(raw, xrefStreamRow(xrefFree, 0, 0, f1, f2)...)
			continue
		}
		switch e.Type {
		case xrefInUse:
			raw = append(raw, xrefStreamRow(xrefInUse, e.Offset, 0, f1, f2)...)
		case xrefCompressed:
			raw = append(raw, xrefStreamRow(xrefCompressed, int64(e.InStm), int64(e.Index), f1, f2)...)
		}
	}

	dict = maps.Clone(trailer)
	dict["Type"] = Name("XRef")
	dict["W"] = Array{Integer(1), Integer(f1), Integer(f2)}
	dict["Size"] = Integer(size)
	dict["Index"] = indexArray(ids)
	if prev > 0 {
		dict["Prev"] = Integer(prev)
	}

	if filtered {
		ff := &flateFilter{Predictor: 12, Colors: 1, BitsPerComponent: 8, Columns: 1 + f1 + f2, EarlyChange: true}
		predicted := pngUpEncodeAll(raw, ff.Columns)
		compressed, err := zlibCompress(predicted)
		if err == nil {
			dict["Filter"] = Name("FlateDecode")
			dict["DecodeParms"] = ff.ToDict()
			return compressed, dict
		}
	}
	return raw, dict
}

// indexArray groups a sorted, contiguous-or-not id list into the /Index
// array's (first, count) pairs.
func indexArray(ids []uint32) Array {
	var res Array
	i := 0
	for i < len(ids) {
		j := i + 1
		for j < len(ids) && ids[j] == ids[j-1]+1 {
			j++
		}
		res = append(res, Integer(ids[i]), Integer(j-i))
		i = j
	}
	return res
}

// pngUpEncodeAll applies the PNG "Up" predictor (filter type 2) to an
// already-row-structured byte slice, the same row transform
// [pngUpWriter] applies incrementally; used here because the xref stream's
// body is built in one shot rather than streamed.
func pngUpEncodeAll(raw []byte, rowLen int) []byte {
	if rowLen <= 0 {
		return raw
	}
	var out bytes.Buffer
	prev := make([]byte, rowLen)
	for off := 0; off+rowLen <= len(raw); off += rowLen {
		out.WriteByte(2)
		for i := 0; i < rowLen; i++ {
			out.WriteByte(raw[off+i] - prev[i])
		}
		prev = raw[off : off+rowLen]
	}
	return out.Bytes()
}

func zlibCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
