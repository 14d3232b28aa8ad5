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

// OutputMode selects the overall shape of the bytes [Writer] produces.
type OutputMode int

const (
	// OutputModeStandard writes a normal, densely-packed PDF file.  Object
	// streams and cross-reference streams are used only when
	// UseObjectStreams is set and the output version is PDF 1.5 or later.
	OutputModeStandard OutputMode = iota

	// OutputModeQDF writes a loosely formatted, human-readable file with a
	// classic cross-reference table, one object per line, and the QDF
	// marker comment — meant to be diffed or edited by hand.
	OutputModeQDF

	// OutputModeLinearized writes a "fast web view" linearized file: a
	// two-pass output with the first-page material and a hint stream
	// placed up front.
	OutputModeLinearized

	// OutputModePCLm restricts the writer to the subset of PDF features
	// permitted by the PCLm raster-print specification.
	OutputModePCLm
)

// EncryptionParams configures the Standard Security Handler for a newly
// written document.  A zero value disables encryption.
type EncryptionParams struct {
	// UserPassword is required to open the document at all.
	UserPassword string

	// OwnerPassword is required to change permissions; if empty, it
	// defaults to UserPassword.
	OwnerPassword string

	// Permissions lists the operations granted to a user who only knows
	// UserPassword.
	Permissions Perm

	// KeyBits is the symmetric key length in bits: 40, 128 or 256.  Zero
	// selects 128, or 40 when the output version is older than PDF 1.4.
	// A 128-bit key uses AES from PDF 1.6 on and RC4 before that.
	KeyBits int

	// EncryptMetadata is not read by the writer: the document's XMP
	// metadata stream is encrypted like every other stream, and the
	// encryption dictionary carries no /EncryptMetadata entry.
	EncryptMetadata bool
}

func (e *EncryptionParams) keyBits() int {
	if e == nil || e.KeyBits == 0 {
		return 128
	}
	return e.KeyBits
}

// WriterOptions configures a single call to [NewWriter] or
// [Document.WriteTo]. This is the Go-struct configuration surface spec.md
// leaves to the (out of scope) CLI / job-configuration collaborator to
// populate.
type WriterOptions struct {
	// ID overrides the document's file identifier.  It is used only when
	// Encrypt is nil; with encryption on, [NewWriter] always derives a
	// fresh ID.  A nil value makes NewWriter derive one, from random bytes
	// or as described for DeterministicID.
	ID [][]byte

	// DeterministicID, if set, replaces the random file ID with an MD5
	// hash that [NewWriter] computes from the output version and the
	// /Info Title and Author known at that time.  A new Writer has no
	// /Info yet, so the ID depends on the output version alone, and no
	// other document content enters it.  A non-nil ID takes precedence
	// when encryption is off.
	DeterministicID bool

	// Mode selects the overall output shape. OutputModeLinearized and
	// OutputModePCLm cannot be combined with Encrypt, and
	// OutputModeLinearized also turns off object streams and
	// cross-reference streams.
	Mode OutputMode

	// Encrypt configures the Standard Security Handler. nil disables
	// encryption; OutputModeLinearized and OutputModePCLm are incompatible
	// with encryption and NewWriter reports a [UsageError] if both are
	// set.
	Encrypt *EncryptionParams

	// UseObjectStreams, if true and the output version allows it (PDF 1.5
	// or later), packs eligible indirect objects into object streams
	// instead of writing them individually. Ignored (forced false) for
	// OutputModeQDF, which always uses a classic, human-readable layout.
	UseObjectStreams bool

	// ObjStmBatchSize caps the number of objects packed into a single
	// object stream. Zero selects the default of 100 (PDF 32000-1:2008
	// §7.5.7 recommends object streams stay "reasonably small").
	ObjStmBatchSize int
}

func (o *WriterOptions) batchSize() int {
	if o == nil || o.ObjStmBatchSize <= 0 {
		return 100
	}
	return o.ObjStmBatchSize
}

// resolved is the coerced, internally-consistent form of [WriterOptions]
// computed once at [NewWriter] time (spec.md §4.2's setup coercions).
type resolved struct {
	mode             OutputMode
	useObjectStreams bool
	useXRefStream    bool
	deterministicID  bool
	encrypt          *EncryptionParams
	objStmBatchSize  int
}

// resolveOptions applies the setup coercions spec.md §4.2 requires and
// reports a [UsageError] for combinations that cannot be reconciled.
func resolveOptions(v Version, opt *WriterOptions) (*resolved, error) {
	if opt == nil {
		opt = &WriterOptions{}
	}

	r := &resolved{
		mode:             opt.Mode,
		useObjectStreams: opt.UseObjectStreams,
		deterministicID:  opt.DeterministicID,
		encrypt:          opt.Encrypt,
		objStmBatchSize:  opt.batchSize(),
	}

	if r.mode == OutputModeQDF {
		// QDF output is meant to be read and edited by a human; object
		// streams and cross-reference streams would defeat the point.
		r.useObjectStreams = false
		r.useXRefStream = false
	} else {
		// cross-reference streams and object streams were both introduced
		// in PDF 1.5
		if v < V1_5 {
			r.useObjectStreams = false
			r.useXRefStream = false
		} else {
			r.useXRefStream = r.useObjectStreams
		}
	}

	if r.mode == OutputModeLinearized || r.mode == OutputModePCLm {
		if r.encrypt != nil {
			return nil, &UsageError{
				Msg: "linearized and PCLm output cannot be encrypted",
			}
		}
	}

	if r.mode == OutputModeLinearized {
		// linearized files predate object streams in common practice and
		// the hint-stream byte accounting in this package assumes a
		// classic cross-reference table.
		r.useObjectStreams = false
		r.useXRefStream = false
	}

	return r, nil
}

// UsageError reports that the caller asked [Writer] to do something the PDF
// format, or this package's supported feature combinations, cannot express
// — for example requesting encryption together with linearized output.
type UsageError struct {
	Msg string
}

func (err *UsageError) Error() string { return err.Msg }
