// Package pdf extracts plain text from PDF documents.
package pdf

import (
	"bytes"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// CharLimit caps extracted text per document. Oversized documents are
// truncated at the page that crosses the limit.
const CharLimit = 100000

// Text extracts the plain text of a PDF given as raw bytes, one page per
// line. Extraction is best effort: pages that fail to decode are skipped and
// a document whose structure cannot be read at all yields "". Scanned or
// image-only documents also come back empty.
func Text(data []byte) (text string) {
	// The underlying reader panics on some malformed documents; treat those
	// the same as any other unreadable structure.
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if sb.Len() > CharLimit {
			break
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	return sb.String()
}
