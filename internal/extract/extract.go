// Package extract turns uploaded documents into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Supported formats.
const (
	FormatPDF  = "pdf"
	FormatDOC  = "doc"
	FormatDOCX = "docx"
	FormatCSV  = "csv"
	FormatXLS  = "xls"
	FormatXLSX = "xlsx"
	FormatTXT  = "txt"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeDOC  = "application/msword"
	mimeXLS  = "application/vnd.ms-excel"
)

var (
	// ErrUnsupportedFormat is returned for extensions and content types outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument is returned when the payload has no bytes.
	ErrEmptyDocument = errors.New("empty document")
)

// Metadata describes a parsed document.
type Metadata struct {
	PageCount int    `json:"page_count,omitempty"`
	WordCount int    `json:"word_count"`
	Format    string `json:"format"`
}

// Parsed is the text extracted from a document.
type Parsed struct {
	Text     string
	Metadata Metadata
}

// Parse extracts text from data. The format is taken from the file extension,
// falling back to content sniffing when the name has no known extension.
func Parse(ctx context.Context, data []byte, fileName string) (Parsed, error) {
	if err := ctx.Err(); err != nil {
		return Parsed{}, err
	}
	if len(data) == 0 {
		return Parsed{}, ErrEmptyDocument
	}
	format, err := DetectFormat(data, fileName)
	if err != nil {
		return Parsed{}, err
	}

	var (
		text  string
		pages int
	)
	switch format {
	case FormatPDF:
		text, pages, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatDOC:
		text, err = extractDOC(data)
	case FormatXLSX:
		text, err = extractXLSX(data)
	case FormatXLS:
		text, err = extractXLS(data)
	case FormatCSV:
		text, err = extractCSV(data)
	case FormatTXT:
		text = strings.ToValidUTF8(string(data), "")
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Parsed{}, fmt.Errorf("parse %s file %q: %w", format, fileName, err)
	}

	text = normalizeText(text)
	return Parsed{
		Text: text,
		Metadata: Metadata{
			PageCount: pages,
			WordCount: len(strings.Fields(text)),
			Format:    format,
		},
	}, nil
}

// DetectFormat maps a file name and payload to a supported format.
func DetectFormat(data []byte, fileName string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))), ".")
	switch ext {
	case FormatPDF, FormatDOC, FormatDOCX, FormatCSV, FormatXLS, FormatXLSX, FormatTXT:
		return ext, nil
	case "":
	default:
		return "", fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is(mimePDF):
		return FormatPDF, nil
	case mt.Is(mimeDOCX):
		return FormatDOCX, nil
	case mt.Is(mimeXLSX):
		return FormatXLSX, nil
	case mt.Is(mimeDOC):
		return FormatDOC, nil
	case mt.Is(mimeXLS):
		return FormatXLS, nil
	case mt.Is("text/csv"):
		return FormatCSV, nil
	case mt.Is("application/zip"):
		if mapped := mapOOXMLFromZip(data); mapped != "" {
			return mapped, nil
		}
	case mt.Is("text/plain"):
		return FormatTXT, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
}

func mapOOXMLFromZip(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		switch strings.ReplaceAll(f.Name, "\\", "/") {
		case "word/document.xml":
			return FormatDOCX
		case "xl/workbook.xml":
			return FormatXLSX
		}
	}
	return ""
}

// normalizeText unifies line endings and collapses runs of blank lines.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
