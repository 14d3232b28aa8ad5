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
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
)

// pipeline is a LIFO stack of byte sinks. The bottom of the stack is the
// writer's final destination; each frame on top is a counting passthrough
// that measures the bytes flowing through it, so the top frame's count can
// always be read off as "the current output offset". activate pushes a new
// frame and returns a [popper] handle that must be used to pop back down to
// exactly this point — popping out of order is a programming error in this
// package, not a condition a caller can trigger, so it panics rather than
// returning an error (mirroring the teacher's sparing use of panic for
// "should never happen" invariants).
type pipeline struct {
	frames []*pipelineFrame
	md5    *pipelineFrame // the one active MD5 frame, if any
}

type pipelineFrame struct {
	w     io.Writer
	count int64

	// digest is non-nil for an activate_md5 frame.
	digest hash.Hash
}

func (f *pipelineFrame) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	f.count += int64(n)
	if f.digest != nil {
		f.digest.Write(p[:n])
	}
	return n, err
}

// newPipeline creates a pipeline whose bottom frame writes to dst.
func newPipeline(dst io.Writer) *pipeline {
	p := &pipeline{}
	p.frames = []*pipelineFrame{{w: dst}}
	return p
}

// popper is the scoped handle returned by [pipeline.activate]. Calling pop
// unwinds the pipeline back to the state it was in when activate was
// called; handles must be popped in LIFO order, and popping a handle while
// a later activation is still on the stack panics.
type popper struct {
	p     *pipeline
	depth int // len(p.frames) right after the corresponding activate
}

// Write writes to the pipeline's current top frame. Using a stale popper (one
// whose frame is no longer on top) is itself a LIFO violation.
func (h *popper) Write(p []byte) (int, error) {
	if h.depth != len(h.p.frames) {
		panic("pipeline: write through a non-top frame")
	}
	return h.p.top().Write(p)
}

// Pop removes the frame this handle activated, which must be the top frame,
// and returns that frame's final byte count.  Popping any other frame panics.
func (h *popper) Pop() int64 {
	if h.depth == 0 || h.depth != len(h.p.frames) {
		panic("pipeline: pop out of order")
	}
	frame := h.p.frames[h.depth-1]
	if h.p.md5 == frame {
		h.p.md5 = nil
	}
	h.p.frames = h.p.frames[:h.depth-1]
	return frame.count
}

func (p *pipeline) top() *pipelineFrame {
	return p.frames[len(p.frames)-1]
}

// Offset returns the current top frame's byte count, used as "current file
// offset" throughout the writer.
func (p *pipeline) Offset() int64 {
	return p.top().count
}

// Write writes through the current top frame.
func (p *pipeline) Write(b []byte) (int, error) {
	return p.top().Write(b)
}

// activateOptions enumerates the variants of [pipeline.activate].
type activateOptions struct {
	// Discard routes bytes into io.Discard instead of the enclosing frame.
	Discard bool

	// Buffer, if non-nil, captures bytes into this buffer instead of
	// forwarding them to the enclosing frame.
	Buffer *bytes.Buffer

	// Next, if non-nil, is inserted between the new frame and the
	// enclosing frame, so that bytes written to the new frame are first
	// transformed by Next before reaching the frame below.
	Next io.Writer
}

// activate pushes a new counting frame on top of the pipeline and returns a
// [popper] that must be used to pop exactly this frame later, in LIFO
// order with any other activation.
func (p *pipeline) activate(opt activateOptions) *popper {
	var dst io.Writer
	switch {
	case opt.Discard:
		dst = io.Discard
	case opt.Buffer != nil:
		dst = opt.Buffer
	case opt.Next != nil:
		dst = opt.Next
	default:
		dst = p.top()
	}
	frame := &pipelineFrame{w: dst}
	p.frames = append(p.frames, frame)
	return &popper{p: p, depth: len(p.frames)}
}

// activateMD5 inserts an MD5-digesting frame, returning a popper for it.
// Only one MD5 frame may be active at a time; activating a second one
// panics, matching the "exactly one may exist" rule.
func (p *pipeline) activateMD5() *popper {
	if p.md5 != nil {
		panic("pipeline: an MD5 frame is already active")
	}
	frame := &pipelineFrame{w: p.top(), digest: md5.New()}
	p.frames = append(p.frames, frame)
	p.md5 = frame
	return &popper{p: p, depth: len(p.frames)}
}

// hexDigest finalizes the active MD5 frame and returns its 32-character
// lowercase hex digest without popping the frame — further writes continue
// to be hashed until the frame is eventually popped, but hexDigest may be
// called more than once to read intermediate digests (qpdf uses this to
// compute both the linearization hint-stream checksum and, later, the
// deterministic file ID from the same run).
func (p *pipeline) hexDigest() string {
	if p.md5 == nil {
		panic("pipeline: no MD5 frame is active")
	}
	sum := p.md5.digest.Sum(nil)
	return hex.EncodeToString(sum)
}
