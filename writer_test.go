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

func TestWriterHeaderStandard(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewWriter(&buf, V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-1.7\n") {
		t.Errorf("wrong header: %q", buf.String()[:20])
	}
}

func TestWriterHeaderQDF(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewWriter(&buf, V1_7, &WriterOptions{Mode: OutputModeQDF})
	if err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "%QDF-1.0\n") {
		t.Error("expected a QDF marker comment")
	}
}

func TestWriterAllocUnique(t *testing.T) {
	pw, err := NewWriter(&bytes.Buffer{}, V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[Reference]bool{}
	for i := 0; i < 10; i++ {
		ref := pw.Alloc()
		if seen[ref] {
			t.Fatalf("Alloc returned a duplicate reference: %v", ref)
		}
		seen[ref] = true
	}
}

func TestWriterPutDuplicateRejected(t *testing.T) {
	pw, err := NewWriter(&bytes.Buffer{}, V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	ref := pw.Alloc()
	if err := pw.Put(ref, Integer(1)); err != nil {
		t.Fatal(err)
	}
	if err := pw.Put(ref, Integer(2)); err == nil {
		t.Error("expected an error for a duplicate Put")
	}
}

func TestWriterPutAfterCloseRejected(t *testing.T) {
	pw, err := NewWriter(&bytes.Buffer{}, V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := pw.Put(pw.Alloc(), Integer(1)); err == nil {
		t.Error("expected an error writing after Close")
	}
}

func TestWriterRoundTripSimpleDocument(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewWriter(&buf, V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	pagesRef := pw.Alloc()
	if err := pw.Put(pagesRef, Dict{"Type": Name("Pages"), "Kids": Array{}, "Count": Integer(0)}); err != nil {
		t.Fatal(err)
	}
	pw.GetMeta().Catalog.Pages = pagesRef

	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "/Type/Pages") && !strings.Contains(out, "/Type /Pages") {
		t.Errorf("expected the Pages dictionary in the output: %q", out)
	}
	if !strings.Contains(out, "trailer") && !strings.Contains(out, "/Type/XRef") && !strings.Contains(out, "/Type /XRef") {
		t.Error("expected a trailer or xref stream in the output")
	}
	if !strings.Contains(out, "startxref") {
		t.Error("expected a startxref keyword")
	}
}

func TestWriterOpenStream(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewWriter(&buf, V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	ref := pw.Alloc()
	w, err := pw.OpenStream(ref, Dict{"Type": Name("XObject")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("content")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "stream\ncontent") {
		t.Errorf("expected stream content in output: %q", buf.String())
	}
}

func TestWriterObjectStreamsUsed(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewWriter(&buf, V1_7, &WriterOptions{UseObjectStreams: true})
	if err != nil {
		t.Fatal(err)
	}
	ref := pw.Alloc()
	if err := pw.Put(ref, Dict{"A": Integer(1)}); err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "/Type/ObjStm") && !strings.Contains(buf.String(), "/Type /ObjStm") {
		t.Errorf("expected an object stream in the output: %q", buf.String())
	}
}

func TestWriterEncryptedTrailer(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewWriter(&buf, V1_7, &WriterOptions{
		Encrypt: &EncryptionParams{UserPassword: "u", OwnerPassword: "o"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "/Encrypt") {
		t.Error("expected an /Encrypt entry in the trailer")
	}
}

func TestWriterLinearizedEncryptRejected(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, V1_7, &WriterOptions{
		Mode:    OutputModeLinearized,
		Encrypt: &EncryptionParams{UserPassword: "u"},
	})
	if err == nil {
		t.Fatal("expected a UsageError for linearized+encrypted output")
	}
}
