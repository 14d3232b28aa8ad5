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
	"io"
	"maps"
)

// unparseFlags mirrors spec.md §4.3's flag bit field.
type unparseFlags int

const (
	flagStream unparseFlags = 1 << iota
	flagFiltered
	flagInObjStm
	flagHexString
	flagNoEncryption
)

func (f unparseFlags) has(bit unparseFlags) bool { return f&bit != 0 }

// unparser serializes [Native] objects to PDF syntax, applying QDF
// formatting and string/stream encryption as configured.
type unparser struct {
	w       io.Writer
	version Version
	qdf     bool
	enc     *encryptInfo // nil if the output is not encrypted
}

func newUnparser(w io.Writer, v Version, qdf bool, enc *encryptInfo) *unparser {
	return &unparser{w: w, version: v, qdf: qdf, enc: enc}
}

func (u *unparser) indent(level int) {
	if !u.qdf {
		return
	}
	for i := 0; i < 2*(level+1); i++ {
		io.WriteString(u.w, " ")
	}
}

func (u *unparser) newline() {
	if u.qdf {
		io.WriteString(u.w, "\n")
	}
}

// object writes obj at the given nesting level. ref is the enclosing
// indirect object's reference, used for string/stream encryption; it is
// the zero Reference when obj is direct and encryption does not apply
// (e.g. while inside an object stream).
func (u *unparser) object(obj Native, level int, ref Reference, flags unparseFlags) error {
	switch x := obj.(type) {
	case nil:
		_, err := io.WriteString(u.w, "null")
		return err
	case Boolean:
		return x.PDF(u.w)
	case Integer:
		return x.PDF(u.w)
	case Real:
		return x.PDF(u.w)
	case Name:
		return x.PDF(u.w)
	case Reference:
		return x.PDF(u.w)
	case String:
		return u.string(x, ref, flags)
	case Array:
		return u.array(x, level, ref, flags)
	case Dict:
		return u.dict(x, level, ref, flags, false)
	case *Stream:
		return u.stream(x, level, flags)
	default:
		return fmt.Errorf("unparse: unsupported object type %T", obj)
	}
}

func (u *unparser) string(x String, ref Reference, flags unparseFlags) error {
	data := []byte(x)
	if u.enc != nil && !flags.has(flagInObjStm) && !flags.has(flagNoEncryption) {
		var err error
		data, err = u.enc.EncryptBytes(ref, append([]byte(nil), data...))
		if err != nil {
			return err
		}
	}
	if flags.has(flagHexString) {
		return writeHexString(u.w, data)
	}
	return writeLiteralString(u.w, data)
}

func writeHexString(w io.Writer, data []byte) error {
	buf := make([]byte, 0, len(data)*2+2)
	buf = append(buf, '<')
	for _, b := range data {
		buf = append(buf, hexDigit(b>>4), hexDigit(b&0xF))
	}
	buf = append(buf, '>')
	_, err := w.Write(buf)
	return err
}

func writeLiteralString(w io.Writer, data []byte) error {
	buf := make([]byte, 0, len(data)+2)
	buf = append(buf, '(')
	for _, b := range data {
		switch b {
		case '(', ')', '\\':
			buf = append(buf, '\\', b)
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			buf = append(buf, b)
		}
	}
	buf = append(buf, ')')
	_, err := w.Write(buf)
	return err
}

func (u *unparser) array(x Array, level int, ref Reference, flags unparseFlags) error {
	if _, err := io.WriteString(u.w, "[ "); err != nil {
		return err
	}
	for i, item := range x {
		if i > 0 {
			if u.qdf {
				u.newline()
				u.indent(level + 1)
			} else {
				io.WriteString(u.w, " ")
			}
		}
		native, err := asNative(item)
		if err != nil {
			return err
		}
		if err := u.object(native, level+1, ref, flags&^flagStream); err != nil {
			return err
		}
	}
	_, err := io.WriteString(u.w, " ]")
	return err
}

func (u *unparser) dict(x Dict, level int, ref Reference, flags unparseFlags, isStreamDict bool) error {
	x = u.prepareDict(x, ref, isStreamDict)

	if _, err := io.WriteString(u.w, "<<"); err != nil {
		return err
	}
	for _, key := range sortedDictKeys(x) {
		val := x[key]
		if val == nil {
			continue
		}
		u.newline()
		u.indent(level + 1)
		if _, err := fmt.Fprintf(u.w, "/%s ", key); err != nil {
			return err
		}
		native, err := asNative(val)
		if err != nil {
			return err
		}
		childFlags := flags &^ (flagStream | flagHexString)
		if key == "Contents" && isSignatureDict(x) {
			childFlags |= flagHexString | flagNoEncryption
		}
		if err := u.object(native, level+1, ref, childFlags); err != nil {
			return err
		}
	}
	u.newline()
	u.indent(level)
	_, err := io.WriteString(u.w, ">>")
	return err
}

// prepareDict applies the unparser's output-only, shallow-copy adjustments:
// dropping empty /DecodeParms from stream dictionaries (the caller supplies
// /Length), and removing /Crypt from filter chains (this package's [Filter]s
// never add a /Crypt entry, so in practice this only matters for copied-in
// streams).
func (u *unparser) prepareDict(x Dict, ref Reference, isStreamDict bool) Dict {
	if !isStreamDict {
		return x
	}
	cp := maps.Clone(x)
	if dp, ok := cp["DecodeParms"].(Dict); ok && len(dp) == 0 {
		delete(cp, "DecodeParms")
	}
	stripCryptFilter(cp)
	return cp
}

func stripCryptFilter(dict Dict) {
	names, ok := dict["Filter"].(Array)
	if !ok {
		return
	}
	parms, _ := dict["DecodeParms"].(Array)
	var newNames Array
	var newParms Array
	for i, n := range names {
		if name, ok := n.(Name); ok && name == "Crypt" {
			continue
		}
		newNames = append(newNames, n)
		if i < len(parms) {
			newParms = append(newParms, parms[i])
		}
	}
	dict["Filter"] = newNames
	if len(newParms) > 0 {
		dict["DecodeParms"] = newParms
	} else {
		delete(dict, "DecodeParms")
	}
}

func isSignatureDict(x Dict) bool {
	typ, _ := x["Type"].(Name)
	_, hasByteRange := x["ByteRange"]
	return typ == "Sig" && hasByteRange
}

// sortedDictKeys returns x's keys in a stable, deterministic order so that
// repeated writes of the same document (deterministic IDs, linearization
// pass 1 vs pass 2) produce byte-identical dictionaries.
func sortedDictKeys(x Dict) []Name {
	keys := make([]Name, 0, len(x))
	for k := range x {
		keys = append(keys, k)
	}
	// preferred keys first, in PDF-conventional order, for readability;
	// the rest lexicographically.
	order := map[Name]int{"Type": -3, "Subtype": -2, "Filter": -1}
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			pi, pj := order[keys[i]], order[keys[j]]
			less := pj < pi || (pi == pj && keys[i] > keys[j])
			if less {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}

func (u *unparser) stream(s *Stream, level int, flags unparseFlags) error {
	body, filtered, err := u.willFilterStream(s)
	if err != nil {
		return err
	}

	dict := maps.Clone(s.Dict)
	dict["Length"] = Integer(len(body))
	if !filtered {
		delete(dict, "Filter")
		delete(dict, "DecodeParms")
	}

	if err := u.dict(dict, level, s.ref, flags|flagStream, true); err != nil {
		return err
	}
	if _, err := io.WriteString(u.w, "\nstream\n"); err != nil {
		return err
	}
	if _, err := u.w.Write(body); err != nil {
		return err
	}
	terminator := "endstream"
	if u.qdf || len(body) == 0 || body[len(body)-1] != '\n' {
		terminator = "\nendstream"
	}
	_, err = io.WriteString(u.w, terminator)
	return err
}

// willFilterStream implements spec.md §4.3's `will_filter_stream`: it
// passes the stream's already-encoded bytes through unchanged, encrypting
// them when an encryption unit is active and the stream is not already
// encrypted.  filtered reports whether the stream dictionary names a
// /Filter; an empty body is returned as is, unfiltered.
func (u *unparser) willFilterStream(s *Stream) (body []byte, filtered bool, err error) {
	raw, err := io.ReadAll(s.R)
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return raw, false, nil
	}

	_, hasFilter := s.Dict["Filter"]
	if !hasFilter {
		body = raw
		filtered = false
	} else {
		// the bytes in s.R are already in their final, filtered form (this
		// package never re-encodes a filter chain it did not itself
		// create — see [Document.OpenStream]); preserve them as-is.
		body = raw
		filtered = true
	}

	if u.enc != nil && s.crypt == nil {
		var buf bytes.Buffer
		w, err := u.enc.EncryptStream(s.ref, nopWriteCloser{&buf})
		if err != nil {
			return nil, false, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, false, err
		}
		if err := w.Close(); err != nil {
			return nil, false, err
		}
		body = buf.Bytes()
	}

	return body, filtered, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
