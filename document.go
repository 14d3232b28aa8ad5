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
	"io"
	"maps"
	"slices"
	"sort"
)

// xrefKind records whether an object belongs in the classic cross-reference
// table (kind 1) or in an object stream (kind 2).  Document has no parser
// behind it, so this is set explicitly by whoever builds the document
// (normally [Document.Put] for loose objects and [Document.WriteCompressed]
// for compressed ones) rather than read off an existing file's xref.
type xrefKind int

const (
	xrefKindLoose      xrefKind = 1
	xrefKindCompressed xrefKind = 2
)

// Document is an in-memory representation of a complete PDF object graph: a
// [Getter] that can also be populated and mutated, suitable both as the
// input to a [Writer] and as the source for a [Copier].
//
// Document does not parse PDF files; producing one from bytes on disk is the
// job of the (separate, out of scope) PDF parser. Document only ever
// acquires objects the way a program would build them: via [Document.Put],
// [Document.OpenStream] or [Document.WriteCompressed].
type Document struct {
	meta      MetaInfo
	objects   map[Reference]Object
	kind      map[Reference]xrefKind
	pages     []Reference
	lastRef   uint32
	autoclose []io.Closer
}

// NewDocument creates an empty in-memory document for the given PDF version.
func NewDocument(v Version) *Document {
	return &Document{
		meta: MetaInfo{
			Version: v,
			Catalog: &Catalog{},
		},
		objects: map[Reference]Object{},
		kind:    map[Reference]xrefKind{},
	}
}

// GetMeta implements the [Getter] interface.
func (d *Document) GetMeta() *MetaInfo {
	return &d.meta
}

// Alloc allocates a new, currently-unused object number.
func (d *Document) Alloc() Reference {
	for {
		d.lastRef++
		ref := NewReference(d.lastRef, 0)
		if _, isUsed := d.objects[ref]; !isUsed {
			return ref
		}
	}
}

// Get implements the [Getter] interface.  The returned value is always a
// [Native]: Dict and Array results are defensively cloned so that callers
// cannot mutate the document's storage through an aliased map or slice, and
// any *Stream's reader is rewound to the start if it supports seeking.
func (d *Document) Get(ref Reference, _ bool) (Native, error) {
	if ref.IsInternal() {
		panic("internal reference")
	}
	obj := d.objects[ref]
	if obj == nil {
		return nil, nil
	}
	native, err := asNative(obj)
	if err != nil {
		return nil, err
	}
	switch x := native.(type) {
	case *Stream:
		if ss, ok := x.R.(io.Seeker); ok {
			if _, err := ss.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
		}
	case Dict:
		native = maps.Clone(x)
	case Array:
		native = slices.Clone(x)
	}
	return native, nil
}

// asNative converts obj to its [Native] form, the way [Writer] would just
// before serialising it.
func asNative(obj Object) (Native, error) {
	if obj == nil {
		return nil, nil
	}
	if n, ok := obj.(Native); ok {
		return n, nil
	}
	return obj.AsPDF(0), nil
}

// Put stores obj as the indirect object ref, marking it as belonging to the
// classic (non-compressed) portion of the cross-reference table.  Writing a
// nil obj deletes the entry (a free object). Put refuses to silently
// overwrite an already-written reference — see spec.md's write-once
// discipline for the object table.
func (d *Document) Put(ref Reference, obj Object) error {
	if obj == nil {
		delete(d.objects, ref)
		delete(d.kind, ref)
		return nil
	}
	if _, exists := d.objects[ref]; exists {
		return errDuplicateRef
	}
	d.objects[ref] = obj
	d.kind[ref] = xrefKindLoose
	return nil
}

// OpenStream starts writing a new stream object, applying filters in order.
// The returned writer must be closed to finalise the stream's /Length.
func (d *Document) OpenStream(ref Reference, dict Dict, filters ...Filter) (io.WriteCloser, error) {
	streamDict := maps.Clone(dict)
	if streamDict == nil {
		streamDict = Dict{}
	}
	if filter, ok := streamDict["Filter"].(Array); ok {
		streamDict["Filter"] = append(Array{}, filter...)
	}
	if decodeParms, ok := streamDict["DecodeParms"].(Array); ok {
		streamDict["DecodeParms"] = append(Array{}, decodeParms...)
	}

	s := &Stream{Dict: streamDict, ref: ref}
	d.objects[ref] = s
	d.kind[ref] = xrefKindLoose

	var w io.WriteCloser = &documentStreamWriter{s: s}
	var err error
	for _, filter := range filters {
		w, err = filter.Encode(d.meta.Version, w)
		if err != nil {
			return nil, err
		}
		name, parms, err := filter.Info(d.meta.Version)
		if err != nil {
			return nil, err
		}
		appendFilter(streamDict, name, parms)
	}
	return w, nil
}

type documentStreamWriter struct {
	bytes.Buffer
	s *Stream
}

func (w *documentStreamWriter) Close() error {
	w.s.R = bytes.NewReader(w.Bytes())
	w.s.Dict["Length"] = Integer(w.Len())
	return nil
}

// appendFilter records one more entry in a stream dictionary's /Filter and
// /DecodeParms chain, promoting a single Name/Dict pair to an Array/Array
// pair once a second filter is added.  A nil entry in the /DecodeParms array
// stands for the PDF null object, following this package's convention of
// using a plain nil [Object] for null (see [Resolve]).
func appendFilter(dict Dict, name Name, parms Dict) {
	var parmsObj Object
	if parms != nil {
		parmsObj = parms
	}

	switch existing := dict["Filter"].(type) {
	case nil:
		dict["Filter"] = name
		if parmsObj != nil {
			dict["DecodeParms"] = parmsObj
		}
	case Name:
		dict["Filter"] = Array{existing, name}
		var parmsArr Array
		if prev, ok := dict["DecodeParms"]; ok {
			parmsArr = Array{prev, parmsObj}
		} else {
			parmsArr = Array{nil, parmsObj}
		}
		if hasNonNilParms(parmsArr) {
			dict["DecodeParms"] = parmsArr
		} else {
			delete(dict, "DecodeParms")
		}
	case Array:
		dict["Filter"] = append(existing, name)
		parmsArr, _ := dict["DecodeParms"].(Array)
		for len(parmsArr) < len(existing) {
			parmsArr = append(parmsArr, nil)
		}
		parmsArr = append(parmsArr, parmsObj)
		if hasNonNilParms(parmsArr) {
			dict["DecodeParms"] = parmsArr
		} else {
			delete(dict, "DecodeParms")
		}
	}
}

func hasNonNilParms(arr Array) bool {
	for _, o := range arr {
		if o != nil {
			return true
		}
	}
	return false
}

// WriteCompressed stores a batch of objects that are all eligible to live
// together in a single object stream (see the object-stream packer).  The
// actual packing into PDF object streams happens when the document is
// written; here the objects are only validated and recorded with their
// "compressed" xref kind.
func (d *Document) WriteCompressed(refs []Reference, objects ...Object) error {
	if err := checkCompressed(refs, objects); err != nil {
		return err
	}
	for i, obj := range objects {
		ref := refs[i]
		if _, exists := d.objects[ref]; exists {
			return errDuplicateRef
		}
		d.objects[ref] = obj
		d.kind[ref] = xrefKindCompressed
	}
	return nil
}

// checkCompressed verifies that refs and objects describe a batch that is
// actually eligible for an object stream: equal lengths, no generation
// other than zero (object streams cannot hold objects with nonzero
// generation, PDF 32000-1:2008 §7.5.7), and no stream objects (stream
// dictionaries themselves may never be stored inside an object stream).
func checkCompressed(refs []Reference, objects []Object) error {
	if len(refs) != len(objects) {
		return Error("WriteCompressed: refs and objects have different lengths")
	}
	for i, ref := range refs {
		if ref.Generation() != 0 {
			return Error("WriteCompressed: object streams cannot hold objects with nonzero generation")
		}
		if _, isStream := objects[i].(*Stream); isStream {
			return Error("WriteCompressed: streams cannot be stored in an object stream")
		}
	}
	return nil
}

// Pages implements the [PageSource] interface, returning the page
// dictionaries in document order.  SetPages records that order; a Document
// built by hand (rather than via a page-tree-walking collaborator) is
// expected to call it once all pages have been added.
func (d *Document) Pages() []Reference { return d.pages }

// SetPages records the ordered list of page references, satisfying the
// [PageSource] boundary for the linearization classifier without this
// package ever walking a /Kids tree itself.
func (d *Document) SetPages(pages []Reference) { d.pages = slices.Clone(pages) }

// XRefKind reports whether ref belongs in the classic cross-reference table
// or inside an object stream, for the cross-reference emission stage.
func (d *Document) XRefKind(ref Reference) int { return int(d.kind[ref]) }

// Refs returns every indirect object reference currently stored, sorted by
// object number. This is the enumeration the [Writer] walks when copying a
// whole Document into a fresh output file.
func (d *Document) Refs() []Reference {
	refs := make([]Reference, 0, len(d.objects))
	for ref := range d.objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Number() < refs[j].Number() })
	return refs
}

// AutoClose registers obj to be closed when the document is closed, for
// example a temporary file backing a large stream's content.
func (d *Document) AutoClose(obj io.Closer) {
	d.autoclose = append(d.autoclose, obj)
}

// Close releases any resources registered via [Document.AutoClose].
func (d *Document) Close() error {
	for _, obj := range d.autoclose {
		if err := obj.Close(); err != nil {
			return err
		}
	}
	return nil
}

// WriteTo serialises the document through a [Writer] configured by opt
// (a nil opt uses the defaults).
func (d *Document) WriteTo(w io.Writer, opt *WriterOptions) error {
	if opt == nil {
		opt = &WriterOptions{}
	}
	if len(opt.ID) == 0 {
		opt.ID = d.meta.ID
	}
	pdf, err := NewWriter(w, d.meta.Version, opt)
	if err != nil {
		return err
	}
	meta := pdf.GetMeta()
	meta.Catalog = d.meta.Catalog
	meta.Info = d.meta.Info
	pdf.SetPages(d.Pages())

	for _, ref := range d.Refs() {
		obj := d.objects[ref]
		var err error
		if d.kind[ref] == xrefKindCompressed {
			err = pdf.WriteCompressed([]Reference{ref}, obj)
		} else {
			err = pdf.Put(ref, obj)
		}
		if err != nil {
			return err
		}
	}

	return pdf.Close()
}
