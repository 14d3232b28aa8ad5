// seehuhn.de/go/pdf - a library for reading and writing PDF files
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
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
	"io"
	"testing"
)

// TestEncryptedStreamMultipleReads verifies that encrypted streams can be
// read multiple times. This tests the new architecture where Stream.R contains
// the raw (encrypted) seekable data, and decryption happens lazily in
// DecodeStream.
func TestEncryptedStreamMultipleReads(t *testing.T) {
	testCases := []struct {
		name    string
		version Version
	}{
		{"AES-128/V1.1", V1_1},
		{"AES-128/V1.4", V1_4},
		{"AES-128/V1.6", V1_6},
		{"AES-128/V2.0", V2_0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			testEncryptedStreamMultipleReads(t, tc.version)
		})
	}
}

// testEncryptedStreamMultipleReads encrypts a stream body with an AES-128
// (R4) security handler, stores the resulting *Stream, with its crypt
// context attached, directly in a [Document] of the given version, and
// checks that decoding it (via [DecodeStream]) more than once recovers the
// same content every time.
func testEncryptedStreamMultipleReads(t *testing.T, version Version) {
	t.Helper()

	testData := []byte("Hello, World! This is a test of encrypted stream handling.")

	doc := NewDocument(version)
	id := []byte("0123456789ABCDEF")
	sec, err := createStdSecHandler(id, "user", "owner", 0, 128, 4)
	if err != nil {
		t.Fatal(err)
	}
	enc := &encryptInfo{
		stmF: &cryptFilter{Cipher: cipherAES, Length: 128},
		sec:  sec,
	}

	streamRef := NewReference(1, 0)
	s := &Stream{Dict: Dict{}, crypt: enc, ref: streamRef}

	var encrypted bytes.Buffer
	ew, err := enc.EncryptStream(streamRef, nopWriteCloser{&encrypted})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ew.Write(testData); err != nil {
		t.Fatal(err)
	}
	if err := ew.Close(); err != nil {
		t.Fatal(err)
	}
	s.R = bytes.NewReader(encrypted.Bytes())

	doc.objects[streamRef] = s
	doc.kind[streamRef] = xrefKindLoose

	// Read the stream multiple times - this should work with the new architecture
	for i := range 3 {
		decoded, err := DecodeStream(doc, s, 0)
		if err != nil {
			t.Fatalf("DecodeStream failed on read %d: %v", i+1, err)
		}

		data, err := io.ReadAll(decoded)
		if err != nil {
			t.Fatalf("ReadAll failed on read %d: %v", i+1, err)
		}
		decoded.Close()

		if !bytes.Equal(data, testData) {
			t.Errorf("read %d: got %q, want %q", i+1, data, testData)
		}
	}
}

// TestEncryptedStreamWithFilters verifies that an encrypted stream that also
// carries a compression filter (Flate applied before crypt on encode, crypt
// then Flate removed on decode) can be decoded more than once.
func TestEncryptedStreamWithFilters(t *testing.T) {
	testData := bytes.Repeat([]byte("This is test data for compression. "), 100)

	id := []byte("0123456789ABCDEF")
	sec, err := createStdSecHandler(id, "secret", "secret", 0, 128, 4)
	if err != nil {
		t.Fatal(err)
	}
	enc := &encryptInfo{
		stmF: &cryptFilter{Cipher: cipherAES, Length: 128},
		sec:  sec,
	}

	streamRef := NewReference(1, 0)
	dict := Dict{}
	s := &Stream{Dict: dict, crypt: enc, ref: streamRef}

	var encrypted bytes.Buffer
	cryptW, err := enc.EncryptStream(streamRef, nopWriteCloser{&encrypted})
	if err != nil {
		t.Fatal(err)
	}
	flate := ffFromDict(nil)
	flateW, err := flate.Encode(V1_6, cryptW)
	if err != nil {
		t.Fatal(err)
	}
	name, parms, err := flate.Info(V1_6)
	if err != nil {
		t.Fatal(err)
	}
	appendFilter(dict, name, parms)
	if _, err := flateW.Write(testData); err != nil {
		t.Fatal(err)
	}
	if err := flateW.Close(); err != nil {
		t.Fatal(err)
	}
	s.R = bytes.NewReader(encrypted.Bytes())

	doc := NewDocument(V1_6)

	// Read the stream twice - the filter chain (crypt + flate) should work
	// correctly both times
	for i := range 2 {
		decoded, err := DecodeStream(doc, s, 0)
		if err != nil {
			t.Fatalf("DecodeStream failed on read %d: %v", i+1, err)
		}

		data, err := io.ReadAll(decoded)
		decoded.Close()
		if err != nil {
			t.Fatalf("ReadAll failed on read %d: %v", i+1, err)
		}

		if !bytes.Equal(data, testData) {
			t.Errorf("read %d: data mismatch (len %d vs %d)", i+1, len(data), len(testData))
		}
	}
}

// TestUnencryptedStreamMultipleReads verifies that unencrypted streams
// also work correctly with multiple reads (regression test).
func TestUnencryptedStreamMultipleReads(t *testing.T) {
	testData := []byte("Unencrypted test data")

	doc := NewDocument(V1_7)
	streamRef := doc.Alloc()
	w, err := doc.OpenStream(streamRef, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(testData); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	native, err := doc.Get(streamRef, false)
	if err != nil {
		t.Fatal(err)
	}
	stream, ok := native.(*Stream)
	if !ok {
		t.Fatal("stream is not a *Stream")
	}

	// Verify that unencrypted streams have nil decryption filter
	if stream.crypt != nil {
		t.Error("stream.crypt should be nil for unencrypted stream")
	}

	// Read multiple times
	for i := range 3 {
		decoded, err := DecodeStream(doc, stream, 0)
		if err != nil {
			t.Fatalf("DecodeStream failed on read %d: %v", i+1, err)
		}

		data, err := io.ReadAll(decoded)
		decoded.Close()
		if err != nil {
			t.Fatalf("ReadAll failed on read %d: %v", i+1, err)
		}

		if !bytes.Equal(data, testData) {
			t.Errorf("read %d: got %q, want %q", i+1, data, testData)
		}
	}
}

// TestFilterCryptRoundTrip tests the Encode method of filterCrypt for symmetry.
func TestFilterCryptRoundTrip(t *testing.T) {
	testData := []byte("Test data for filter crypt encode/decode round trip.")

	// Create encryption info
	id := []byte("0123456789ABCDEF")
	sec, err := createStdSecHandler(id, "test", "test", PermAll, 128, 4)
	if err != nil {
		t.Fatal(err)
	}
	enc := &encryptInfo{
		stmF: &cryptFilter{Cipher: cipherAES, Length: 128},
		sec:  sec,
	}

	ref := NewReference(1, 0)
	filter := &filterCrypt{enc: enc, ref: ref}

	// Encode (encrypt) the data
	var encryptedBuf bytes.Buffer
	encoder, err := filter.Encode(V1_6, nopWriteCloser{&encryptedBuf})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, err = encoder.Write(testData)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	err = encoder.Close()
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Decode (decrypt) the data
	decoder, err := filter.Decode(V1_6, bytes.NewReader(encryptedBuf.Bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	decrypted, err := io.ReadAll(decoder)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	decoder.Close()

	if !bytes.Equal(decrypted, testData) {
		t.Errorf("Round trip failed: got %q, want %q", decrypted, testData)
	}
}

// TestFilterCryptInfo verifies that filterCrypt.Info returns empty values
// since the crypt filter should not appear in the stream dictionary.
func TestFilterCryptInfo(t *testing.T) {
	filter := &filterCrypt{}
	name, dict, err := filter.Info(V1_6)
	if err != nil {
		t.Errorf("Info returned error: %v", err)
	}
	if name != "" {
		t.Errorf("Info returned non-empty name: %q", name)
	}
	if dict != nil {
		t.Errorf("Info returned non-nil dict: %v", dict)
	}
}
