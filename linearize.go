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
)

// PageSource is the "pages module" boundary: an ordered, already-flattened
// list of page object references. The linearization classifier consumes
// this instead of ever walking a /Kids tree itself. [Document] satisfies
// this once [Document.SetPages] has been called.
type PageSource interface {
	Pages() []Reference
}

// linPart is one of the nine linearization parts of a "fast web view" file.
// Parts 1, 3, 5, 10 and 11 are synthesized structurally (header, first
// cross-reference section, linearization dictionary, main cross-reference
// section, trailer) rather than populated by the classifier, so only the
// classifier-owned parts are named here.
type linPart int

const (
	linPart4 linPart = iota // catalog and document-level furniture
	linPart6                // first page: its own objects, objects it shares with later pages, outlines if the document opens on them
	linPart7                // later-page private objects
	linPart8                // objects shared by several later pages
	linPart9                // everything else: page-tree nodes, outlines if not in part 6, remainder
)

// objTags records, for one object, who in the document reaches it: the
// catalog itself or one of its document-level keys, the outline tree, or
// the set of pages whose subtree contains it.
type objTags struct {
	root     bool
	outlines bool
	pages    map[int]bool
}

// linRootKeys lists the catalog entries whose closure ships alongside the
// catalog in part 4, rather than being left to find its own part through
// page reachability.
var linRootKeys = []Name{"ViewerPreferences", "Threads", "OpenAction", "AcroForm"}

// collectUserSets walks the object graph from the catalog's document-level
// keys, from the outline tree, and from every page in turn, tagging each
// reachable indirect object with who reached it. byRef resolves a pending
// object's reference to the object the caller enqueued for it.
func collectUserSets(byRef map[Reference]Object, rootRef Reference, cat Dict, pages []Reference) map[Reference]*objTags {
	users := map[Reference]*objTags{}
	tagOf := func(ref Reference) *objTags {
		t, ok := users[ref]
		if !ok {
			t = &objTags{pages: map[int]bool{}}
			users[ref] = t
		}
		return t
	}

	// walkValue follows obj's children, marking every indirect object it
	// reaches (including obj itself, if obj is a reference). /Parent is
	// never followed: a page's objects must not pull in the page tree (and
	// with it every sibling page) just because a leaf points back up to
	// its parent node.
	var walkValue func(obj Object, seen map[Reference]bool, mark func(Reference))
	walkValue = func(obj Object, seen map[Reference]bool, mark func(Reference)) {
		native, err := asNative(obj)
		if err != nil || native == nil {
			return
		}
		switch x := native.(type) {
		case Reference:
			if x == 0 || seen[x] {
				return
			}
			seen[x] = true
			child, ok := byRef[x]
			if !ok {
				return
			}
			mark(x)
			walkValue(child, seen, mark)
		case Array:
			for _, item := range x {
				walkValue(item, seen, mark)
			}
		case Dict:
			for k, v := range x {
				if k == "Parent" || k == "Length" {
					continue
				}
				walkValue(v, seen, mark)
			}
		case *Stream:
			for k, v := range x.Dict {
				if k == "Parent" || k == "Length" {
					continue
				}
				walkValue(v, seen, mark)
			}
		}
	}

	if cat != nil {
		for _, key := range linRootKeys {
			v, ok := cat[key]
			if !ok {
				continue
			}
			walkValue(v, map[Reference]bool{}, func(ref Reference) { tagOf(ref).root = true })
		}
		if ref, ok := cat["Outlines"].(Reference); ok {
			walkValue(ref, map[Reference]bool{}, func(r Reference) { tagOf(r).outlines = true })
		}
	}

	for i, pageRef := range pages {
		idx := i
		walkValue(pageRef, map[Reference]bool{}, func(ref Reference) { tagOf(ref).pages[idx] = true })
	}

	return users
}

// classifyObjects buckets every enqueued object into one of the five
// classifier-owned parts, following the priority order: the catalog itself
// and its document-level furniture always go to part 4; an object used by
// page 0 ships in part 6, whether or not it is also used elsewhere; an
// object used by exactly one later page ships with that page in part 7; an
// object used by several later pages ships in part 8; an outline-only
// object ships in part 6 if the document opens on its outlines and part 9
// otherwise; everything else lands in part 9.
func classifyObjects(pending []pendingObject, users map[Reference]*objTags, rootRef Reference, cat Dict) map[Reference]linPart {
	useOutlines := false
	if cat != nil {
		if mode, _ := cat["PageMode"].(Name); mode == "UseOutlines" {
			useOutlines = true
		}
	}

	parts := make(map[Reference]linPart, len(pending))
	for _, p := range pending {
		t := users[p.ref]
		switch {
		case p.ref == rootRef:
			parts[p.ref] = linPart4
		case t != nil && t.root:
			parts[p.ref] = linPart4
		case t != nil && t.pages[0] && len(t.pages) == 1:
			parts[p.ref] = linPart6
		case t != nil && t.pages[0]:
			parts[p.ref] = linPart6
		case t != nil && len(t.pages) == 1:
			parts[p.ref] = linPart7
		case t != nil && len(t.pages) > 1:
			parts[p.ref] = linPart8
		case t != nil && t.outlines && useOutlines:
			parts[p.ref] = linPart6
		default:
			parts[p.ref] = linPart9
		}
	}
	return parts
}

// linLayout is the fully ordered placement of every enqueued object within
// its classifier part, following the within-part ordering rules: part 4
// places the catalog first; part 6 places the first page's own object,
// then its private objects, then the objects it shares with later pages,
// then the outline tree if it lives here; part 7 places each later page's
// own object before that page's private objects; part 9 places page-tree
// nodes before a not-yet-placed outline tree before the remainder.
type linLayout struct {
	part4 []pendingObject

	hasPage0     bool
	page0        pendingObject
	page0Private []pendingObject
	page0Shared  []pendingObject
	part6Outline []pendingObject

	laterGroups [][]pendingObject // one group per pages[1:], page object first

	part8 []pendingObject

	part9Tree    []pendingObject
	part9Outline []pendingObject
	part9Rest    []pendingObject
}

func isPagesTreeNode(obj Object) bool {
	native, err := asNative(obj)
	if err != nil {
		return false
	}
	d, ok := native.(Dict)
	if !ok {
		return false
	}
	t, _ := d["Type"].(Name)
	return t == "Pages"
}

func buildLayout(pending []pendingObject, parts map[Reference]linPart, users map[Reference]*objTags, rootRef Reference, pages []Reference) *linLayout {
	lay := &linLayout{}
	if len(pages) > 1 {
		lay.laterGroups = make([][]pendingObject, len(pages)-1)
	}

	var page0 Reference
	if len(pages) > 0 {
		page0 = pages[0]
	}

	pageIndexOf := func(t *objTags) int {
		for i := range t.pages {
			return i
		}
		return -1
	}

	for _, p := range pending {
		switch parts[p.ref] {
		case linPart4:
			lay.part4 = append(lay.part4, p)
		case linPart6:
			if p.ref == page0 {
				lay.page0, lay.hasPage0 = p, true
				continue
			}
			t := users[p.ref]
			switch {
			case t != nil && t.outlines:
				lay.part6Outline = append(lay.part6Outline, p)
			case t != nil && len(t.pages) > 1:
				lay.page0Shared = append(lay.page0Shared, p)
			default:
				lay.page0Private = append(lay.page0Private, p)
			}
		case linPart7:
			idx := pageIndexOf(users[p.ref])
			if idx >= 1 && idx-1 < len(lay.laterGroups) {
				lay.laterGroups[idx-1] = append(lay.laterGroups[idx-1], p)
			} else {
				// a part-7 object with no recoverable page index is kept
				// rather than dropped; it ships in the catch-all remainder.
				lay.part9Rest = append(lay.part9Rest, p)
			}
		case linPart8:
			lay.part8 = append(lay.part8, p)
		default:
			t := users[p.ref]
			switch {
			case isPagesTreeNode(p.obj):
				lay.part9Tree = append(lay.part9Tree, p)
			case t != nil && t.outlines:
				lay.part9Outline = append(lay.part9Outline, p)
			default:
				lay.part9Rest = append(lay.part9Rest, p)
			}
		}
	}

	// the catalog always leads part 4, regardless of enqueue order.
	for i, p := range lay.part4 {
		if p.ref == rootRef && i != 0 {
			lay.part4[0], lay.part4[i] = lay.part4[i], lay.part4[0]
			break
		}
	}

	// each later-page group leads with the page object itself.
	for i, pg := range pages[min(1, len(pages)):] {
		grp := lay.laterGroups[i]
		for j, p := range grp {
			if p.ref == pg && j != 0 {
				grp[0], grp[j] = grp[j], grp[0]
				break
			}
		}
	}

	return lay
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// sequence flattens the layout into the exact order objects are written
// in: part 4, then part 6, then each later-page group in turn, then part
// 8, then part 9. Used both to drive the single write pass and, as a
// cross-check, to confirm every enqueued object found exactly one home.
func (lay *linLayout) sequence() []pendingObject {
	var out []pendingObject
	out = append(out, lay.part4...)
	if lay.hasPage0 {
		out = append(out, lay.page0)
	}
	out = append(out, lay.page0Private...)
	out = append(out, lay.page0Shared...)
	out = append(out, lay.part6Outline...)
	for _, grp := range lay.laterGroups {
		out = append(out, grp...)
	}
	out = append(out, lay.part8...)
	out = append(out, lay.part9Tree...)
	out = append(out, lay.part9Outline...)
	out = append(out, lay.part9Rest...)
	return out
}

// part6Count is the number of objects placed in part 6, including the
// first page's own object.
func (lay *linLayout) part6Count() int {
	n := len(lay.page0Private) + len(lay.page0Shared) + len(lay.part6Outline)
	if lay.hasPage0 {
		n++
	}
	return n
}

// --- bit-packed hint tables -------------------------------------------

// bitWriter packs values MSB-first into a byte slice, the wire format the
// page-offset, shared-object and outline hint tables all share.
type bitWriter struct {
	buf  []byte
	cur  byte
	nbit int
}

func (bw *bitWriter) writeBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		bw.cur = bw.cur<<1 | byte((v>>uint(i))&1)
		bw.nbit++
		if bw.nbit == 8 {
			bw.buf = append(bw.buf, bw.cur)
			bw.cur, bw.nbit = 0, 0
		}
	}
}

// align pads the current byte with zero bits, as required between the
// page-offset, shared-object and outline tables.
func (bw *bitWriter) align() {
	if bw.nbit == 0 {
		return
	}
	bw.cur <<= uint(8 - bw.nbit)
	bw.buf = append(bw.buf, bw.cur)
	bw.cur, bw.nbit = 0, 0
}

// nbitsFor returns the number of bits needed to hold any value in [0,n).
func nbitsFor(n int) int {
	if n <= 1 {
		return 1
	}
	bits := 1
	for (1 << uint(bits)) < n {
		bits++
	}
	return bits
}

// pageHintInput is one page-offset table row's inputs. sharedIdx and
// nObjects are fixed before any byte offset is known (they come from
// object counts, not positions), so they are identical across the
// placeholder and final calls to [buildHintStream]; only length and the
// two absolute offsets passed separately to buildHintStream change.
type pageHintInput struct {
	nObjects  int
	length    int64
	sharedIdx []int // indices into the shared-object list, ascending
}

type sharedHintInput struct {
	length int64
}

type outlineHintInput struct {
	firstObjectID     uint32
	firstObjectOffset int64
	nObjects          int
	length            int64
}

// buildHintStream renders the page-offset, shared-object and (if present)
// outline hint tables into one byte stream, fixed-width throughout rather
// than using the minimal adaptive field widths a production hint stream
// would: every repeating field's width is a constant derived only from
// object/page/shared counts, never from the offsets and lengths carried in
// it. That makes the function's output length depend only on the shape of
// pages/shared/outline (identical for a placeholder call made before any
// real offset is known and the final call made after), so the stream can
// be reserved once and its content patched in afterwards without ever
// needing to resize it.
func buildHintStream(pages []pageHintInput, shared []sharedHintInput, sharedIDBits int, firstPageOffset, firstSharedOffset int64, firstSharedObjID uint32, outline *outlineHintInput) (body []byte, sharedTableOffset, outlineTableOffset int) {
	const (
		bitsDeltaNObjects    = 16
		bitsDeltaPageLength  = 32
		bitsNShared          = 8
		bitsSharedNumerator  = 4
		sharedDenominator    = 4
		bitsDeltaGroupLength = 32
		bitsSignaturePresent = 1
		bitsNObjectsMinus1   = 8
	)

	bw := &bitWriter{}

	leastNObjects, leastPageLength := 0, int64(0)
	if len(pages) > 0 {
		leastNObjects, leastPageLength = pages[0].nObjects, pages[0].length
		for _, pg := range pages[1:] {
			if pg.nObjects < leastNObjects {
				leastNObjects = pg.nObjects
			}
			if pg.length < leastPageLength {
				leastPageLength = pg.length
			}
		}
	}

	bw.writeBits(uint64(firstPageOffset), 32)
	bw.writeBits(uint64(leastNObjects), 16)
	bw.writeBits(bitsDeltaNObjects, 8)
	bw.writeBits(uint64(leastPageLength), 32)
	bw.writeBits(bitsDeltaPageLength, 8)
	bw.writeBits(0, 32) // least content offset: content always starts at the page object
	bw.writeBits(0, 8)  // bits for delta content offset: always zero, so zero bits follow
	bw.writeBits(uint64(leastPageLength), 32)
	bw.writeBits(bitsDeltaPageLength, 8)
	bw.writeBits(bitsNShared, 8)
	bw.writeBits(uint64(sharedIDBits), 8)
	bw.writeBits(bitsSharedNumerator, 8)
	bw.writeBits(sharedDenominator, 16)

	for _, pg := range pages {
		bw.writeBits(uint64(pg.nObjects-leastNObjects), bitsDeltaNObjects)
		bw.writeBits(uint64(pg.length-leastPageLength), bitsDeltaPageLength)
		bw.writeBits(uint64(len(pg.sharedIdx)), bitsNShared)
		for _, idx := range pg.sharedIdx {
			bw.writeBits(uint64(idx), sharedIDBits)
			bw.writeBits(1, bitsSharedNumerator) // numerator 1: each shared object is its own group
		}
		// delta content offset occupies zero bits, nothing written
		bw.writeBits(uint64(pg.length-leastPageLength), bitsDeltaPageLength) // delta content length
	}
	bw.align()
	sharedTableOffset = len(bw.buf)

	leastGroupLength := int64(0)
	if len(shared) > 0 {
		leastGroupLength = shared[0].length
		for _, s := range shared[1:] {
			if s.length < leastGroupLength {
				leastGroupLength = s.length
			}
		}
	}
	nSharedFirstPage := 0
	if len(pages) > 0 {
		nSharedFirstPage = len(pages[0].sharedIdx)
	}

	bw.writeBits(uint64(firstSharedOffset), 32)
	bw.writeBits(uint64(firstSharedObjID), 32)
	bw.writeBits(uint64(nSharedFirstPage), 32)
	bw.writeBits(uint64(len(shared)), 32)
	bw.writeBits(bitsDeltaGroupLength, 8)
	bw.writeBits(bitsSignaturePresent, 8)
	bw.writeBits(bitsNObjectsMinus1, 8)
	for _, s := range shared {
		bw.writeBits(uint64(s.length-leastGroupLength), bitsDeltaGroupLength)
		bw.writeBits(0, bitsSignaturePresent) // this writer never produces signed content
		bw.writeBits(0, bitsNObjectsMinus1)   // exactly one object per shared group
	}
	bw.align()
	outlineTableOffset = len(bw.buf)

	if outline != nil {
		bw.writeBits(uint64(outline.firstObjectID), 32)
		bw.writeBits(uint64(outline.firstObjectOffset), 32)
		bw.writeBits(uint64(outline.nObjects), 32)
		bw.writeBits(uint64(outline.length), 32)
		bw.align()
	} else {
		outlineTableOffset = -1
	}

	return bw.buf, sharedTableOffset, outlineTableOffset
}

// --- the linearized writer itself --------------------------------------

// closeLinearized writes a linearized ("fast web view") document: the
// linearization dictionary and a supplementary first-page cross-reference
// section up front, the first page's own closure next, the remaining
// pages and objects after that, and the authoritative cross-reference
// section and trailer at the end.
//
// Every object is still written exactly once. The linearization
// dictionary, the first-page cross-reference table's rows and the hint
// stream all carry values that are only known once the rest of the file
// has been written (byte offsets, the total file length), so the pass
// writes fixed-width placeholders for them into an in-memory buffer, then
// - once every real offset is known - patches the real values into that
// same buffer before copying it to the real output in one piece. Nothing
// is ever re-sized: every placeholder is built by the same code and from
// the same counts as its final replacement, so the two are always the
// same length.
func (pw *Writer) closeLinearized() error {
	rootRef, err := pw.ensureCatalog()
	if err != nil {
		return err
	}
	pages := pw.pages

	byRef := make(map[Reference]Object, len(pw.pending))
	for _, p := range pw.pending {
		byRef[p.ref] = p.obj
	}
	rootNative, err := asNative(byRef[rootRef])
	if err != nil {
		return err
	}
	catDict, _ := rootNative.(Dict)

	users := collectUserSets(byRef, rootRef, catDict, pages)
	parts := classifyObjects(pw.pending, users, rootRef, catDict)
	layout := buildLayout(pw.pending, parts, users, rootRef, pages)

	writeSeq := layout.sequence()
	if len(writeSeq) != len(pw.pending) {
		return Error(fmt.Sprintf(
			"linearization layout places %d of %d enqueued objects", len(writeSeq), len(pw.pending)))
	}

	var sharedList []Reference
	for _, p := range pw.pending {
		if t := users[p.ref]; t != nil && len(t.pages) > 1 {
			sharedList = append(sharedList, p.ref)
		}
	}
	sharedIDBits := nbitsFor(len(sharedList))

	var outlineRefs []Reference
	for _, p := range pw.pending {
		if t := users[p.ref]; t != nil && t.outlines {
			outlineRefs = append(outlineRefs, p.ref)
		}
	}

	pageHints := make([]pageHintInput, len(pages))
	if len(pages) > 0 {
		if layout.hasPage0 {
			pageHints[0].nObjects = 1
		}
		pageHints[0].nObjects += len(layout.page0Private)
		for j, ref := range sharedList {
			if t := users[ref]; t != nil && t.pages[0] {
				pageHints[0].sharedIdx = append(pageHints[0].sharedIdx, j)
			}
		}
	}
	for i := 1; i < len(pages); i++ {
		pageHints[i].nObjects = len(layout.laterGroups[i-1])
	}
	sharedHints := make([]sharedHintInput, len(sharedList))

	var outlineInput *outlineHintInput
	if len(outlineRefs) > 0 {
		outlineInput = &outlineHintInput{nObjects: len(outlineRefs)}
	}

	n4 := len(layout.part4)
	lastPart6ID := uint32(2 + n4 + layout.part6Count()) // 2 reserved ids precede part 4

	placeholderHint, _, _ := buildHintStream(pageHints, sharedHints, sharedIDBits, 0, 0, 0, outlineInput)

	// A linearized file needs part 4 and part 6 to occupy a contiguous
	// block of the lowest output object numbers, with the linearization
	// dictionary and the hint stream preceding them. Objects already carry
	// output numbers assigned in Put order by [objTable.enqueue], so that
	// numbering is replaced here, in layout order, before anything is
	// written. The first-page cross-reference table is not itself an
	// indirect object and so needs no number of its own.
	linDictRef := pw.Alloc()
	hintRef := pw.Alloc()

	var renumCounter uint32
	assignID := func(ref Reference) uint32 {
		renumCounter++
		pw.tbl.lookup(ref).renumber = renumCounter
		return renumCounter
	}
	assignID(linDictRef)
	assignID(hintRef)
	for _, p := range writeSeq {
		assignID(p.ref)
	}
	pw.tbl.next = renumCounter

	// --- the single real write pass, into a seeded in-memory buffer ---

	headerLen := pw.pipe.Offset()
	var buf bytes.Buffer
	bufPipe := newPipeline(&buf)
	bufPipe.frames[0].count = headerLen // so every offset recorded below is already absolute
	savedPipe := pw.pipe
	pw.pipe = bufPipe

	fail := func(err error) error {
		pw.pipe = savedPipe
		return err
	}

	linDictID := pw.tbl.enqueue(linDictRef)
	hintID := pw.tbl.enqueue(hintRef)

	linDictOffset := pw.pipe.Offset()
	placeholderLinDict := formatLinDict(len(pages), 0, 0, 0, 0, 0, 0)
	if err := pw.writeObjHeader(linDictID); err != nil {
		return fail(err)
	}
	if _, err := io.WriteString(pw.pipe, placeholderLinDict); err != nil {
		return fail(err)
	}
	io.WriteString(pw.pipe, "\nendobj\n")
	pw.newTbl.set(linDictID, &newXRefEntry{Type: xrefInUse, Offset: linDictOffset})

	xref1RowStart := make([]int64, lastPart6ID+1)
	fmt.Fprintf(pw.pipe, "xref\n0 %d\n", lastPart6ID+1)
	io.WriteString(pw.pipe, "0000000000 65535 f \n")
	for id := uint32(1); id <= lastPart6ID; id++ {
		xref1RowStart[id] = pw.pipe.Offset()
		fmt.Fprintf(pw.pipe, "%010d %05d n \n", 0, 0)
	}
	rootID := pw.tbl.lookup(rootRef).renumber
	xref1Trailer := Dict{"Size": Integer(lastPart6ID + 1), "Root": NewReference(rootID, 0)}
	io.WriteString(pw.pipe, "trailer\n")
	u := newUnparser(pw.pipe, pw.meta.Version, false, nil)
	if err := u.object(xref1Trailer, 0, Reference(0), 0); err != nil {
		return fail(err)
	}
	io.WriteString(pw.pipe, "\n")

	hintOffset := pw.pipe.Offset()
	if err := pw.writeObjHeader(hintID); err != nil {
		return fail(err)
	}
	hintDict := Dict{"Length": Integer(len(placeholderHint))}
	if err := u.dict(hintDict, 0, Reference(0), flagStream, true); err != nil {
		return fail(err)
	}
	io.WriteString(pw.pipe, "\nstream\n")
	hintBodyStart := pw.pipe.Offset() - headerLen
	pw.pipe.Write(placeholderHint)
	io.WriteString(pw.pipe, "\nendstream\nendobj\n")
	pw.newTbl.set(hintID, &newXRefEntry{Type: xrefInUse, Offset: hintOffset})

	uobj := newUnparser(pw.pipe, pw.meta.Version, false, pw.enc)
	for _, p := range writeSeq {
		native, err := asNative(p.obj)
		if err != nil {
			return fail(err)
		}
		if err := pw.writeIndirect(uobj, p.ref, native, false); err != nil {
			return fail(err)
		}
	}

	mainXrefOffset := pw.pipe.Offset()
	if err := pw.writeXRefAndTrailer(rootRef, 0); err != nil {
		return fail(err)
	}

	// --- every offset below is now known: patch the buffer in place ---

	pw.pipe = savedPipe

	offsetOf := func(ref Reference) int64 {
		e := pw.newTbl.get(pw.tbl.lookup(ref).renumber)
		if e == nil {
			return 0
		}
		return e.Offset
	}

	var O int64
	if len(pages) > 0 {
		O = int64(pw.tbl.lookup(pages[0]).renumber)
	}

	b6 := n4 + layout.part6Count()
	var E int64
	if b6 < len(writeSeq) {
		E = offsetOf(writeSeq[b6].ref)
	} else {
		E = mainXrefOffset
	}

	rawBuf := buf.Bytes()
	spanLength := func(ref Reference, count int) int64 {
		idx := -1
		for i, p := range writeSeq {
			if p.ref == ref {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0
		}
		var end int64
		if idx+count < len(writeSeq) {
			end = offsetOf(writeSeq[idx+count].ref)
		} else {
			end = mainXrefOffset
		}
		return end - offsetOf(ref)
	}

	if len(pages) > 0 {
		pageHints[0].length = spanLength(pages[0], 1+len(layout.page0Private))
		for i := 1; i < len(pages); i++ {
			grp := layout.laterGroups[i-1]
			if len(grp) > 0 {
				pageHints[i].length = spanLength(grp[0].ref, len(grp))
			}
		}
	}
	for j, ref := range sharedList {
		sharedHints[j].length = spanLength(ref, 1)
	}
	var firstSharedOffset int64
	var firstSharedObjID uint32
	if len(sharedList) > 0 {
		firstSharedOffset = offsetOf(sharedList[0])
		firstSharedObjID = pw.tbl.lookup(sharedList[0]).renumber
	}
	if outlineInput != nil {
		outlineInput.firstObjectID = pw.tbl.lookup(outlineRefs[0]).renumber
		outlineInput.firstObjectOffset = offsetOf(outlineRefs[0])
		outlineInput.length = spanLength(outlineRefs[0], len(outlineRefs))
	}

	hintBody, _, _ := buildHintStream(pageHints, sharedHints, sharedIDBits, offsetOf(func() Reference {
		if layout.hasPage0 {
			return layout.page0.ref
		}
		return 0
	}()), firstSharedOffset, firstSharedObjID, outlineInput)
	if len(hintBody) != len(placeholderHint) {
		return Error("linearization: hint stream content does not match its reserved size")
	}
	copy(rawBuf[hintBodyStart:hintBodyStart+int64(len(hintBody))], hintBody)

	for id := uint32(1); id <= lastPart6ID; id++ {
		e := pw.newTbl.get(id)
		off := int64(0)
		if e != nil && e.Type == xrefInUse {
			off = e.Offset
		}
		row := fmt.Sprintf("%010d %05d n \n", off, 0)
		pos := xref1RowStart[id] - headerLen
		copy(rawBuf[pos:pos+int64(len(row))], row)
	}

	hintLen := int64(len(placeholderHint))
	L := headerLen + int64(buf.Len())
	finalLinDict := formatLinDict(len(pages), L, hintOffset, hintLen, O, E, mainXrefOffset)
	if len(finalLinDict) != len(placeholderLinDict) {
		return Error("linearization: linearization dictionary did not keep its reserved width")
	}
	linDictTextStart := linDictOffset - headerLen + int64(len(fmt.Sprintf("%d 0 obj\n", linDictID)))
	copy(rawBuf[linDictTextStart:linDictTextStart+int64(len(finalLinDict))], finalLinDict)

	_, err = pw.pipe.Write(rawBuf)
	return err
}

// formatLinDict hand-formats the linearization dictionary instead of going
// through the generic unparser: a reader must be able to parse this first
// object before it has read any cross-reference table, so its six numeric
// fields are rendered at a fixed decimal width that never changes between
// the zero-valued placeholder written during the write pass and the real
// values patched in afterwards.
func formatLinDict(n int, l, hOffset, hLength, o, e, t int64) string {
	return fmt.Sprintf(
		"<<\n/Linearized 1\n/N %05d\n/L %010d\n/H [ %010d %010d ]\n/O %07d\n/E %010d\n/T %010d\n>>",
		n, l, hOffset, hLength, o, e, t)
}
