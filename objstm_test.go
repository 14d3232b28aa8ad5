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
	"strings"
	"testing"
)

func TestObjStmBatcherFlushesAtBatchSize(t *testing.T) {
	b := newObjStmBatcher(2)
	b.add(1, Integer(1))
	b.add(2, Integer(2))
	b.add(3, Integer(3))
	batches := b.finish()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Errorf("wrong batch sizes: %d, %d", len(batches[0]), len(batches[1]))
	}
}

func TestObjStmBatcherDefaultBatchSize(t *testing.T) {
	b := newObjStmBatcher(0)
	if b.batchSize != 100 {
		t.Errorf("expected default batch size 100, got %d", b.batchSize)
	}
}

func TestEligibleForObjStm(t *testing.T) {
	if !eligibleForObjStm(Integer(1)) {
		t.Error("expected a plain Integer to be eligible")
	}
	if eligibleForObjStm(&Stream{Dict: Dict{}}) {
		t.Error("expected a *Stream to be ineligible")
	}
}

func TestPackObjStm(t *testing.T) {
	var buf bytes.Buffer
	u := newUnparser(&buf, V1_7, false, nil)
	members := []objStmMember{
		{id: 1, obj: Integer(42)},
		{id: 2, obj: Name("Foo")},
	}
	header, body, err := packObjStm(u, members)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(header), "1 0 ") {
		t.Errorf("expected first member at offset 0: %q", header)
	}
	if !strings.Contains(string(body), "42") || !strings.Contains(string(body), "/Foo") {
		t.Errorf("wrong body content: %q", body)
	}
}
