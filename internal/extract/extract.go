// Package extract pulls plain text out of uploaded resume documents.
package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/muhammadolammi/jobrecommender/internal/errs"
)

const (
	MimePDF   = "application/pdf"
	MimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePlain = "text/plain"
)

// Extractor reads PDF, DOCX and plain text documents. The format is sniffed
// from the content, not taken from the upload metadata.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

// Extract returns the document text. PDF pages are concatenated in order,
// skipping pages whose content cannot be decoded, and the result may be
// empty. Unreadable or unsupported input wraps errs.ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty document", errs.ErrExtraction)
	}

	mtype := mimetype.Detect(data)
	var (
		text string
		err  error
	)
	switch {
	case mtype.Is(MimePDF):
		text, err = extractPDFText(data)
	case mtype.Is(MimeDOCX):
		text, err = extractDocxText(data)
	case mtype.Is(MimePlain):
		text = string(data)
	default:
		err = fmt.Errorf("unsupported file type: %s", mtype.String())
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrExtraction, err)
	}
	return text, nil
}

// extractPDFText recovers from parser panics; the pdf package panics on
// some malformed cross-reference tables.
func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		// Pages that fail to decode are skipped.
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(pageText)
	}
	return textBuilder.String(), nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripDocxXML(doc.Editable().GetContent()), nil
}

// stripDocxXML keeps character data from word/document.xml, ending a line
// at each paragraph or break.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
