// Package pdf provides support for writing PDF files.
//
// This package treats a PDF file as a container holding a sequence of
// indirect objects (typically Dictionaries and Streams). A [Document] is an
// in-memory object graph that a caller builds up using [Document.Put],
// [Document.OpenStream] and [Document.WriteCompressed], then serialises with
// [Document.WriteTo]:
//
//	doc := pdf.NewDocument(pdf.V1_7)
//	pagesRef := doc.Alloc()
//	doc.SetPages([]pdf.Reference{pagesRef})
//	if err := doc.Put(pagesRef, pdf.Dict{"Type": pdf.Name("Pages")}); err != nil {
//	    log.Fatal(err)
//	}
//	if err := doc.WriteTo(out, &pdf.WriterOptions{Mode: pdf.OutputModeQDF}); err != nil {
//	    log.Fatal(err)
//	}
//
// Lower-level callers that want direct control over object allocation and
// cross-reference layout can drive a [Writer] themselves via [NewWriter]
// instead of going through [Document].
//
// The following types implement native PDF objects and can be stored
// directly in a [Dict] or [Array]; all of them implement [Object]:
//
//	Array
//	Boolean
//	Dict
//	Integer
//	Name
//	Real
//	Reference
//	Stream
//	String
//
// A handful of Go structs — [Catalog], [Info] — convert to and from [Dict]
// by hand rather than through reflection; see their AsPDF methods and
// [ExtractCatalog].
package pdf
