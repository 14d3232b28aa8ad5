// seehuhn.de/go/pdf - a library for reading and writing PDF files
// Copyright (C) 2021  Jochen Voss <voss@seehuhn.de>
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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errVersion         = errors.New("unsupported PDF version")
	errCorrupted       = errors.New("corrupted ciphertext")
	errNoDate          = errors.New("not a valid date string")
	errNoRectangle     = errors.New("not a valid PDF rectangle")
	errDuplicateRef    = errors.New("object already written")
	errShortID         = errors.New("PDF file identifier too short")
	errInvalidPassword = errors.New("password cannot be represented in PDFDocEncoding")
)

// AuthenticationError indicates that authentication failed because the correct
// password has not been supplied.
type AuthenticationError struct {
	ID []byte
}

func (err *AuthenticationError) Error() string {
	if err.ID == nil {
		return "authentication failed"
	}
	return fmt.Sprintf("authentication failed for document ID %x", err.ID)
}

// MalformedFileError indicates that the PDF file could not be parsed.
type MalformedFileError struct {
	Err error
	Pos int64

	// Loc gives additional context on where in the object graph the error
	// was found, innermost first (for example "object 12 0 R", "dict entry
	// /Kids").
	Loc []string
}

func (err *MalformedFileError) Error() string {
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	tail := ""
	if err.Pos > 0 {
		tail = " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	loc := ""
	if len(err.Loc) > 0 {
		loc = " [" + strings.Join(err.Loc, ", ") + "]"
	}
	return "not a valid PDF file" + middle + tail + loc
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// Error is a simple string-based error, used for conditions that do not
// need any further structured context.
type Error string

func (err Error) Error() string { return string(err) }

// wrap adds a contextual prefix to err, for example the name of the
// dictionary entry that was being decoded when the error occurred.  If err
// is nil, wrap returns nil.
func wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// VersionError is returned when trying to use a feature in a PDF file which is
// not supported by the PDF version used.
type VersionError struct {
	Operation string
	Earliest  Version
}

func (err *VersionError) Error() string {
	return (err.Operation + " requires PDF version " +
		err.Earliest.String() + " or later")
}
