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

import "testing"

func TestResolveOptionsQDFDisablesObjectStreams(t *testing.T) {
	r, err := resolveOptions(V1_7, &WriterOptions{Mode: OutputModeQDF, UseObjectStreams: true})
	if err != nil {
		t.Fatal(err)
	}
	if r.useObjectStreams || r.useXRefStream {
		t.Errorf("QDF mode must not use object/xref streams: %+v", r)
	}
}

func TestResolveOptionsOldVersionDisablesStreams(t *testing.T) {
	r, err := resolveOptions(V1_3, &WriterOptions{UseObjectStreams: true})
	if err != nil {
		t.Fatal(err)
	}
	if r.useObjectStreams || r.useXRefStream {
		t.Errorf("pre-1.5 output must not use object/xref streams: %+v", r)
	}
}

func TestResolveOptionsModernVersionAllowsStreams(t *testing.T) {
	r, err := resolveOptions(V1_7, &WriterOptions{UseObjectStreams: true})
	if err != nil {
		t.Fatal(err)
	}
	if !r.useObjectStreams || !r.useXRefStream {
		t.Errorf("expected object/xref streams to be enabled: %+v", r)
	}
}

func TestResolveOptionsLinearizedRejectsEncryption(t *testing.T) {
	_, err := resolveOptions(V1_7, &WriterOptions{
		Mode:    OutputModeLinearized,
		Encrypt: &EncryptionParams{UserPassword: "x"},
	})
	if err == nil {
		t.Fatal("expected a UsageError")
	}
	if _, ok := err.(*UsageError); !ok {
		t.Errorf("expected *UsageError, got %T", err)
	}
}

func TestResolveOptionsLinearizedForcesClassicXRef(t *testing.T) {
	r, err := resolveOptions(V1_7, &WriterOptions{Mode: OutputModeLinearized, UseObjectStreams: true})
	if err != nil {
		t.Fatal(err)
	}
	if r.useObjectStreams || r.useXRefStream {
		t.Errorf("linearized output must use a classic xref table: %+v", r)
	}
}

func TestResolveOptionsNil(t *testing.T) {
	r, err := resolveOptions(V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.mode != OutputModeStandard {
		t.Errorf("expected default standard mode, got %v", r.mode)
	}
	if r.objStmBatchSize != 100 {
		t.Errorf("expected default batch size 100, got %d", r.objStmBatchSize)
	}
}

func TestWriterOptionsBatchSizeDefault(t *testing.T) {
	var o *WriterOptions
	if o.batchSize() != 100 {
		t.Errorf("expected default 100 for nil options, got %d", o.batchSize())
	}
	o = &WriterOptions{ObjStmBatchSize: 250}
	if o.batchSize() != 250 {
		t.Errorf("expected 250, got %d", o.batchSize())
	}
}

func TestEncryptionParamsKeyBitsDefault(t *testing.T) {
	var e *EncryptionParams
	if e.keyBits() != 128 {
		t.Errorf("expected default 128, got %d", e.keyBits())
	}
	e = &EncryptionParams{KeyBits: 256}
	if e.keyBits() != 256 {
		t.Errorf("expected 256, got %d", e.keyBits())
	}
}

func TestUsageErrorMessage(t *testing.T) {
	err := &UsageError{Msg: "bad combination"}
	if err.Error() != "bad combination" {
		t.Errorf("wrong message: %q", err.Error())
	}
}
