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
	"io"
	"strings"
	"testing"
)

func TestBytesNeeded(t *testing.T) {
	cases := []struct {
		v    int64
		want int
	}{
		{0, 1},
		{255, 1},
		{256, 2},
		{65535, 2},
		{65536, 3},
	}
	for _, c := range cases {
		if got := bytesNeeded(c.v); got != c.want {
			t.Errorf("bytesNeeded(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestXRefStreamRow(t *testing.T) {
	row := xrefStreamRow(xrefInUse, 0x1234, 0, 2, 1)
	want := []byte{1, 0x12, 0x34, 0}
	if !bytes.Equal(row, want) {
		t.Errorf("got % x, want % x", row, want)
	}
}

func TestIndexArray(t *testing.T) {
	got := indexArray([]uint32{0, 1, 2, 5, 6, 9})
	want := Array{Integer(0), Integer(3), Integer(5), Integer(2), Integer(9), Integer(1)}
	if len(got) != len(want) {
		t.Fatalf("wrong length: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWriteXRefTable(t *testing.T) {
	tbl := newNewObjTable()
	tbl.set(1, &newXRefEntry{Type: xrefInUse, Offset: 100})
	tbl.set(2, &newXRefEntry{Type: xrefFree})

	var buf bytes.Buffer
	if _, err := writeXRefTable(&buf, tbl, Dict{"Size": Integer(3), "Root": NewReference(1, 0)}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "xref\n0 3\n") {
		t.Errorf("wrong xref header: %q", out)
	}
	if !strings.Contains(out, "0000000100 00000 n \n") {
		t.Errorf("expected in-use entry for object 1: %q", out)
	}
	if !strings.Contains(out, "trailer\n") {
		t.Errorf("expected trailer keyword: %q", out)
	}
}

func TestBuildXRefStreamUncompressed(t *testing.T) {
	tbl := newNewObjTable()
	tbl.set(1, &newXRefEntry{Type: xrefInUse, Offset: 500})
	tbl.set(2, &newXRefEntry{Type: xrefCompressed, InStm: 1, Index: 3})

	body, dict := buildXRefStream(tbl, []uint32{0, 1, 2}, 3, 0, Dict{"Root": NewReference(1, 0)}, false)
	if dict["Type"] != Name("XRef") {
		t.Errorf("wrong /Type: %v", dict["Type"])
	}
	if dict["Size"] != Integer(3) {
		t.Errorf("wrong /Size: %v", dict["Size"])
	}
	if _, filtered := dict["Filter"]; filtered {
		t.Error("did not expect a /Filter for an uncompressed stream")
	}
	w := dict["W"].(Array)
	rowLen := 1 + int(w[1].(Integer)) + int(w[2].(Integer))
	if len(body) != 3*rowLen {
		t.Errorf("wrong body length: got %d, want %d", len(body), 3*rowLen)
	}
}

func TestBuildXRefStreamCompressed(t *testing.T) {
	tbl := newNewObjTable()
	tbl.set(1, &newXRefEntry{Type: xrefInUse, Offset: 500})

	body, dict := buildXRefStream(tbl, []uint32{0, 1}, 2, 0, Dict{}, true)
	if dict["Filter"] != Name("FlateDecode") {
		t.Fatalf("expected a FlateDecode filter, got %v", dict["Filter"])
	}
	r, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	decompressed, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(decompressed) == 0 {
		t.Error("expected non-empty decompressed body")
	}
}

func TestPngUpEncodeAllRoundTrip(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6}
	encoded := pngUpEncodeAll(raw, 3)
	// two rows of 3 bytes each, each prefixed with filter-type byte 2
	if len(encoded) != 2*(1+3) {
		t.Fatalf("wrong encoded length: %d", len(encoded))
	}
	if encoded[0] != 2 || encoded[4] != 2 {
		t.Errorf("expected filter-type byte 2 at each row start: % x", encoded)
	}
}

func TestZlibCompressRoundTrip(t *testing.T) {
	data := []byte("hello, xref stream")
	compressed, err := zlibCompress(data)
	if err != nil {
		t.Fatal(err)
	}
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: got %q, want %q", got, data)
	}
}
