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

// pdfDocToUnicode maps PDFDocEncoding byte values 0x18-0x9F (the range where
// PDFDocEncoding diverges from Latin-1/Unicode) to the Unicode code point
// they represent.  Bytes outside this range (0x00-0x17, 0xA0-0xFF, and the
// printable ASCII range) map to the same code point as Latin-1.
var pdfDocToUnicode = map[byte]rune{
	0x18: 0x02D8, 0x19: 0x02C7, 0x1A: 0x02C6, 0x1B: 0x02D9,
	0x1C: 0x02DD, 0x1D: 0x02DB, 0x1E: 0x02DA, 0x1F: 0x02DC,
	0x80: 0x2022, 0x81: 0x2020, 0x82: 0x2021, 0x83: 0x2026,
	0x84: 0x2014, 0x85: 0x2013, 0x86: 0x0192, 0x87: 0x2044,
	0x88: 0x2039, 0x89: 0x203A, 0x8A: 0x2212, 0x8B: 0x2030,
	0x8C: 0x201E, 0x8D: 0x201C, 0x8E: 0x201D, 0x8F: 0x2018,
	0x90: 0x2019, 0x91: 0x201A, 0x92: 0x2122, 0x93: 0xFB01,
	0x94: 0xFB02, 0x95: 0x0141, 0x96: 0x0152, 0x97: 0x0160,
	0x98: 0x0178, 0x99: 0x017D, 0x9A: 0x0131, 0x9B: 0x0142,
	0x9C: 0x0153, 0x9D: 0x0161, 0x9E: 0x017E, 0x9F: 0xFFFD,
}

var unicodeToPDFDoc = func() map[rune]byte {
	m := make(map[rune]byte, len(pdfDocToUnicode))
	for b, r := range pdfDocToUnicode {
		m[r] = b
	}
	return m
}()

// PDFDocEncode converts a Go string to PDFDocEncoding, as used for strings
// outside the document's text layer (e.g. passwords, the /O and /U entries).
// It returns ok=false if s contains a code point not representable in
// PDFDocEncoding.
func PDFDocEncode(s string) ([]byte, bool) {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := unicodeToPDFDoc[r]; ok {
			buf = append(buf, b)
			continue
		}
		if r == 0x7F {
			return nil, false
		}
		if r < 0x18 || (r >= 0x20 && r <= 0x7E) || (r >= 0xA0 && r <= 0xFF) {
			buf = append(buf, byte(r))
			continue
		}
		return nil, false
	}
	return buf, true
}

func pdfDocEncode(s string) ([]byte, bool) {
	return PDFDocEncode(s)
}

// PDFDocDecode converts a byte string in PDFDocEncoding to a Go string.
func PDFDocDecode(x String) string {
	runes := make([]rune, len(x))
	for i, b := range x {
		if r, ok := pdfDocToUnicode[b]; ok {
			runes[i] = r
		} else {
			runes[i] = rune(b)
		}
	}
	return string(runes)
}
