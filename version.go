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

import "fmt"

// Version enumerates the PDF versions understood by this package.
type Version int

const (
	V1_0 Version = iota
	V1_1
	V1_2
	V1_3
	V1_4
	V1_5
	V1_6
	V1_7
	V2_0
)

// ParseVersion parses a version string of the form "1.4" or "2.0".
func ParseVersion(s string) (Version, error) {
	var major, minor int
	n, err := fmt.Sscanf(s, "%d.%d", &major, &minor)
	if err != nil || n != 2 {
		return 0, errVersion
	}
	switch {
	case major == 1 && minor >= 0 && minor <= 7:
		return Version(minor), nil
	case major == 2 && minor == 0:
		return V2_0, nil
	default:
		return 0, errVersion
	}
}

// ToString returns the canonical "major.minor" representation of v.
func (v Version) ToString() (string, error) {
	switch {
	case v >= V1_0 && v <= V1_7:
		return fmt.Sprintf("1.%d", int(v)), nil
	case v == V2_0:
		return "2.0", nil
	default:
		return "", errVersion
	}
}

func (v Version) String() string {
	s, err := v.ToString()
	if err != nil {
		return "invalid PDF version"
	}
	return s
}

// extensionLevel records an Adobe-style extension level for a base version,
// as stored in the /Extensions/ADBE dictionary of the document catalog.
type extensionLevel struct {
	BaseVersion Version
	Level       int
}

// MetaInfo collects the document-wide state that sits outside the object
// graph proper: the file version, the document catalog, the optional /Info
// dictionary, the file identifier and any encryption parameters carried over
// from an input document.
type MetaInfo struct {
	Version Version
	Catalog *Catalog
	Info    *Info
	ID      [][]byte
	Trailer Dict
}

// Getter represents a source of PDF objects, such as an in-memory
// [Document] being assembled for writing, or a [Writer] exposing the
// objects it has queued.
type Getter interface {
	GetMeta() *MetaInfo

	// Get reads an object. canObjStm specifies whether the object may
	// legitimately live inside an object stream.
	Get(ref Reference, canObjStm bool) (Native, error)
}
