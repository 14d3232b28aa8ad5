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
	"fmt"
	"io"
)

// Putter is the write side of the object model: something that can accept
// newly allocated indirect objects, mirroring [Getter] on the read side.
type Putter interface {
	Getter
	Alloc() Reference
	Put(ref Reference, obj Object) error
}

// Writer drives the serialization of a PDF document. It owns the pipeline
// stack, the renumbering tables and the encryption unit for the duration of
// one write (spec.md §5's "Lifecycle"/"Scheduling model").
type Writer struct {
	w    io.Writer
	pipe *pipeline

	meta MetaInfo
	opt  *resolved

	tbl    *objTable
	newTbl *newObjTable

	enc *encryptInfo

	pending []pendingObject // FIFO of enqueued-but-not-yet-written objects
	closed  bool

	// pages is the flattened page list fed by a [PageSource], used only by
	// the linearization classifier.
	pages []Reference

	// Warnings collects non-fatal stream-filter and consistency warnings
	// (spec.md §7's "recoverable problems ... degraded ... with warnings"),
	// following the teacher's own preference for returning diagnostics to
	// the caller instead of printing them through a logging dependency.
	Warnings []error
}

type pendingObject struct {
	ref Reference
	obj Object
}

// NewWriter creates a [Writer] that serializes a fresh PDF document of
// version v to w, configured by opt (nil selects the defaults).
func NewWriter(w io.Writer, v Version, opt *WriterOptions) (*Writer, error) {
	resolvedOpt, err := resolveOptions(v, opt)
	if err != nil {
		return nil, err
	}

	pw := &Writer{
		w:      w,
		pipe:   newPipeline(w),
		meta:   MetaInfo{Version: v, Catalog: &Catalog{}},
		opt:    resolvedOpt,
		tbl:    newObjTable(),
		newTbl: newNewObjTable(),
	}

	if resolvedOpt.encrypt != nil {
		id := makeID(resolvedOpt, &pw.meta)
		pw.meta.ID = id
		enc, err := newEncryptInfo(resolvedOpt.encrypt, id[0], v)
		if err != nil {
			return nil, err
		}
		pw.enc = enc
	} else if opt != nil && len(opt.ID) > 0 {
		pw.meta.ID = opt.ID
	} else {
		pw.meta.ID = makeID(resolvedOpt, &pw.meta)
	}

	if err := pw.writeHeader(); err != nil {
		return nil, err
	}

	return pw, nil
}

func newEncryptInfo(p *EncryptionParams, id1 []byte, v Version) (*encryptInfo, error) {
	length := p.keyBits()
	V := 1
	switch {
	case length > 128:
		V = 5
	case length > 40 && v >= V1_6:
		V = 4
	case length > 40 && v >= V1_4:
		V = 2
	case length > 40 && p.KeyBits == 0:
		// the default key length needs PDF 1.4; older files get 40 bits
		length = 40
	default:
		V = 1
	}
	if V == 1 && v >= V1_4 {
		V = 2
	}

	sec, err := createStdSecHandler(id1, p.UserPassword, p.OwnerPassword, p.Permissions, length, V)
	if err != nil {
		return nil, err
	}

	cipher := cipherRC4
	if V >= 4 {
		cipher = cipherAES
	}
	cf := &cryptFilter{Cipher: cipher, Length: length}

	return &encryptInfo{
		sec:             sec,
		stmF:            cf,
		strF:            cf,
		efF:             cf,
		UserPermissions: p.Permissions,
	}, nil
}

func (pw *Writer) writeHeader() error {
	versionStr, err := pw.meta.Version.ToString()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(pw.pipe, "%%PDF-%s\n", versionStr); err != nil {
		return err
	}
	if pw.opt.mode == OutputModePCLm {
		_, err = io.WriteString(pw.pipe, "%PCLm 1.0\n")
	} else {
		_, err = pw.pipe.Write([]byte{'%', 0xBF, 0xF7, 0xA2, 0xFE, '\n'})
	}
	if err != nil {
		return err
	}
	if pw.opt.mode == OutputModeQDF {
		if _, err := io.WriteString(pw.pipe, "%QDF-1.0\n"); err != nil {
			return err
		}
	}
	return nil
}

// GetMeta implements [Getter], giving callers (e.g. [Document.WriteTo])
// access to the catalog/info/ID that will be written into the trailer.
func (pw *Writer) GetMeta() *MetaInfo { return &pw.meta }

// GetOptions reports the [OutputOptions] convenience-type conversions
// (e.g. [TextString]) should use when targeting this writer's PDF version.
// UTF-8 text strings were only introduced in PDF 2.0, so earlier versions
// always fall back to UTF-16BE.
func (pw *Writer) GetOptions() OutputOptions {
	if pw.meta.Version >= V2_0 {
		return OptTextStringUtf8
	}
	return 0
}

// Get implements [Getter]. A Writer only ever exposes objects it has itself
// already queued, matching the "input document is read-only, output is
// write-only" split spec.md draws between parser and writer.
func (pw *Writer) Get(ref Reference, _ bool) (Native, error) {
	for _, p := range pw.pending {
		if p.ref == ref {
			return asNative(p.obj)
		}
	}
	return nil, nil
}

// Alloc allocates a fresh, currently unused object number.
func (pw *Writer) Alloc() Reference {
	ref := NewReference(pw.tbl.next+1, 0)
	for {
		if _, used := pw.tbl.byOld[ref]; !used {
			break
		}
		ref = NewReference(ref.Number()+1, 0)
	}
	pw.tbl.lookup(ref)
	return ref
}

// Put enqueues obj to be written as the indirect object ref. Objects are
// written out in FIFO enqueue order (spec.md §4.2).
func (pw *Writer) Put(ref Reference, obj Object) error {
	if pw.closed {
		return Error("Put called after Close")
	}
	for _, p := range pw.pending {
		if p.ref == ref {
			return errDuplicateRef
		}
	}
	pw.tbl.enqueue(ref)
	pw.pending = append(pw.pending, pendingObject{ref: ref, obj: obj})
	return nil
}

// OpenStream allocates ref (if not already known) and returns a writer for
// a new stream object's content, applying filters in turn.
func (pw *Writer) OpenStream(ref Reference, dict Dict, filters ...Filter) (io.WriteCloser, error) {
	streamDict := cloneStreamDict(dict)
	s := &Stream{Dict: streamDict, ref: ref}
	var w io.WriteCloser = &documentStreamWriter{s: s}
	var err error
	for _, filter := range filters {
		w, err = filter.Encode(pw.meta.Version, w)
		if err != nil {
			return nil, err
		}
		name, parms, err := filter.Info(pw.meta.Version)
		if err != nil {
			return nil, err
		}
		appendFilter(streamDict, name, parms)
	}
	return &streamPutOnClose{w: w, pw: pw, ref: ref, s: s}, nil
}

type streamPutOnClose struct {
	w   io.WriteCloser
	pw  *Writer
	ref Reference
	s   *Stream
}

func (s *streamPutOnClose) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *streamPutOnClose) Close() error {
	if err := s.w.Close(); err != nil {
		return err
	}
	return s.pw.Put(s.ref, s.s)
}

func cloneStreamDict(dict Dict) Dict {
	streamDict := Dict{}
	for k, v := range dict {
		streamDict[k] = v
	}
	if filter, ok := streamDict["Filter"].(Array); ok {
		streamDict["Filter"] = append(Array{}, filter...)
	}
	if decodeParms, ok := streamDict["DecodeParms"].(Array); ok {
		streamDict["DecodeParms"] = append(Array{}, decodeParms...)
	}
	return streamDict
}

// WriteCompressed enqueues a batch of objects explicitly requesting that
// they be packed together into an object stream, subject to the usual
// eligibility checks.
func (pw *Writer) WriteCompressed(refs []Reference, objects ...Object) error {
	if err := checkCompressed(refs, objects); err != nil {
		return err
	}
	for i, ref := range refs {
		if err := pw.Put(ref, objects[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetInfo installs the document information dictionary.
func (pw *Writer) SetInfo(info *Info) { pw.meta.Info = info }

// SetPages records the flattened page list used to lay out a linearized
// document; see [PageSource].
func (pw *Writer) SetPages(pages []Reference) { pw.pages = pages }

// Close finishes the document: writes every pending object, the encryption
// dictionary if present, the cross-reference section, and the trailer.
func (pw *Writer) Close() error {
	if pw.closed {
		return nil
	}
	pw.closed = true

	if pw.opt.mode == OutputModeLinearized {
		return pw.closeLinearized()
	}

	rootRef, err := pw.ensureCatalog()
	if err != nil {
		return err
	}

	qdf := pw.opt.mode == OutputModeQDF
	useObjStm := pw.opt.useObjectStreams

	var batcher *objStmBatcher
	if useObjStm {
		batcher = newObjStmBatcher(pw.opt.objStmBatchSize)
	}

	u := newUnparser(pw.pipe, pw.meta.Version, qdf, pw.enc)

	for _, p := range pw.pending {
		native, err := asNative(p.obj)
		if err != nil {
			return err
		}
		if useObjStm && eligibleForObjStm(native) && p.ref != rootRef {
			batcher.add(pw.tbl.lookup(p.ref).renumber, native)
			continue
		}
		if err := pw.writeIndirect(u, p.ref, native, qdf); err != nil {
			return err
		}
	}

	var objStmRefs []Reference
	if useObjStm {
		for _, batch := range batcher.finish() {
			stmRef := pw.Alloc()
			newID := pw.tbl.enqueue(stmRef)
			hdr, body, err := packObjStm(u, batch)
			if err != nil {
				return err
			}
			full := append(append([]byte{}, hdr...), body...)
			dict := Dict{
				"Type":  Name("ObjStm"),
				"N":     Integer(len(batch)),
				"First": Integer(len(hdr)),
			}
			var written []byte
			if pw.opt.mode != OutputModeQDF {
				compressed, err := zlibCompress(full)
				if err == nil {
					dict["Filter"] = Name("FlateDecode")
					written = compressed
				}
			}
			if written == nil {
				written = full
			}
			dict["Length"] = Integer(len(written))
			offset := pw.pipe.Offset()
			if err := pw.writeObjHeader(newID); err != nil {
				return err
			}
			if err := u.dict(dict, 0, Reference(0), flagStream, true); err != nil {
				return err
			}
			io.WriteString(pw.pipe, "\nstream\n")
			pw.pipe.Write(written)
			io.WriteString(pw.pipe, "\nendstream\nendobj\n")
			pw.newTbl.set(newID, &newXRefEntry{Type: xrefInUse, Offset: offset})

			for i, m := range batch {
				pw.newTbl.set(m.id, &newXRefEntry{Type: xrefCompressed, InStm: newID, Index: i})
			}
			objStmRefs = append(objStmRefs, stmRef)
		}
	}

	var encRef Reference
	if pw.enc != nil {
		encRef = pw.Alloc()
		newID := pw.tbl.enqueue(encRef)
		offset := pw.pipe.Offset()
		if err := pw.writeObjHeader(newID); err != nil {
			return err
		}
		dict, err := pw.enc.AsDict(pw.meta.Version)
		if err != nil {
			return err
		}
		if err := u.object(dict, 0, Reference(0), 0); err != nil {
			return err
		}
		io.WriteString(pw.pipe, "\nendobj\n")
		pw.newTbl.set(newID, &newXRefEntry{Type: xrefInUse, Offset: offset})
	}

	return pw.writeXRefAndTrailer(rootRef, encRef)
}

// ensureCatalog makes sure the document catalog is enqueued as an indirect
// object, allocating a reference for it if the caller never did.
func (pw *Writer) ensureCatalog() (Reference, error) {
	for _, p := range pw.pending {
		if d, ok := p.obj.(Dict); ok {
			if t, _ := d["Type"].(Name); t == "Catalog" {
				return p.ref, nil
			}
		}
	}
	ref := pw.Alloc()
	if err := pw.Put(ref, pw.meta.Catalog); err != nil {
		return 0, err
	}
	return ref, nil
}

func (pw *Writer) writeIndirect(u *unparser, ref Reference, obj Native, qdf bool) error {
	newID := pw.tbl.enqueue(ref)
	offset := pw.pipe.Offset()
	if err := pw.writeObjHeader(newID); err != nil {
		return err
	}
	if qdf {
		fmt.Fprintf(pw.pipe, "%%%% Original object ID: %d %d\n", ref.Number(), ref.Generation())
	}

	objRef := ref
	if s, ok := obj.(*Stream); ok {
		s.ref = objRef
	}
	if err := u.object(obj, 0, objRef, 0); err != nil {
		pw.Warnings = append(pw.Warnings, fmt.Errorf("object %d: %w", newID, err))
	}
	io.WriteString(pw.pipe, "\nendobj\n")
	if qdf {
		io.WriteString(pw.pipe, "\n")
	}
	pw.newTbl.set(newID, &newXRefEntry{Type: xrefInUse, Offset: offset})
	return nil
}

func (pw *Writer) writeObjHeader(id uint32) error {
	_, err := fmt.Fprintf(pw.pipe, "%d 0 obj\n", id)
	return err
}

func (pw *Writer) writeXRefAndTrailer(rootRef, encRef Reference) error {
	rootID := pw.tbl.lookup(rootRef).renumber

	trailer := Dict{
		"Root": NewReference(rootID, 0),
		"Size": Integer(pw.newTbl.maxID + 1),
	}
	if pw.meta.Info != nil {
		infoRef := pw.Alloc()
		infoID := pw.tbl.enqueue(infoRef)
		offset := pw.pipe.Offset()
		pw.writeObjHeader(infoID)
		u := newUnparser(pw.pipe, pw.meta.Version, pw.opt.mode == OutputModeQDF, pw.enc)
		native, err := asNative(pw.meta.Info)
		if err != nil {
			return err
		}
		if err := u.object(native, 0, infoRef, 0); err != nil {
			return err
		}
		io.WriteString(pw.pipe, "\nendobj\n")
		pw.newTbl.set(infoID, &newXRefEntry{Type: xrefInUse, Offset: offset})
		trailer["Info"] = NewReference(infoID, 0)
	}
	if len(pw.meta.ID) == 2 {
		trailer["ID"] = Array{String(pw.meta.ID[0]), String(pw.meta.ID[1])}
	}
	if encRef != 0 {
		encID := pw.tbl.lookup(encRef).renumber
		trailer["Encrypt"] = NewReference(encID, 0)
	}

	xrefOffset := pw.pipe.Offset()

	if pw.opt.useXRefStream {
		xrefRef := pw.Alloc()
		xrefID := pw.tbl.enqueue(xrefRef)
		pw.newTbl.set(xrefID, &newXRefEntry{Type: xrefInUse, Offset: xrefOffset})
		ids := make([]uint32, xrefID+1)
		for i := range ids {
			ids[i] = uint32(i)
		}
		body, dict := buildXRefStream(pw.newTbl, ids, xrefID+1, 0, trailer, true)
		if err := pw.writeObjHeader(xrefID); err != nil {
			return err
		}
		u := newUnparser(pw.pipe, pw.meta.Version, false, nil)
		if err := u.dict(dict, 0, Reference(0), flagStream, true); err != nil {
			return err
		}
		io.WriteString(pw.pipe, "\nstream\n")
		pw.pipe.Write(body)
		io.WriteString(pw.pipe, "\nendstream\nendobj\n")
	} else {
		if _, err := writeXRefTable(pw.pipe, pw.newTbl, trailer); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(pw.pipe, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return err
}
