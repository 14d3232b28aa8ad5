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
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// makeID computes a freshly written document's /ID array (PDF 32000-1:2008
// §14.4), following spec.md §4.6; both elements hold the same value:
//
//   - if opt.DeterministicID is set, the ID is the MD5 hash of the output
//     version and, if meta carries an /Info dictionary, its Title and
//     Author;
//   - otherwise the ID is 16 bytes from crypto/rand, or, should the random
//     source fail, the MD5 hash of the current time.
//
// An explicit ID from [WriterOptions] is applied by [NewWriter], not here.
func makeID(opt *resolved, meta *MetaInfo) [][]byte {
	var id1 []byte
	switch {
	case opt.deterministicID:
		id1 = deterministicID(meta)
	default:
		id1 = randomID()
	}
	return [][]byte{id1, id1}
}

func deterministicID(meta *MetaInfo) []byte {
	h := md5.New()
	v, _ := meta.Version.ToString()
	h.Write([]byte(v))
	if meta.Info != nil {
		h.Write([]byte(string(meta.Info.Title)))
		h.Write([]byte(string(meta.Info.Author)))
	}
	return h.Sum(nil)
}

func randomID() []byte {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return buf
	}

	// crypto/rand failing is exceedingly unlikely on any real platform;
	// fall back to a time-seeded digest rather than returning a fixed ID.
	h := md5.New()
	var t [8]byte
	binary.LittleEndian.PutUint64(t[:], uint64(time.Now().UnixNano()))
	h.Write(t[:])
	return h.Sum(nil)
}
