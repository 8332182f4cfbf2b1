package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/ledongthuc/pdf"
)

func extractPDF(data []byte) (string, int, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", 0, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", 0, err
	}
	return buf.String(), pdfReader.NumPage(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return stripDocxXML(raw)
}

func stripDocxXML(raw []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tab":
				buf.WriteString("\t")
			case "br", "cr":
				buf.WriteString("\n")
			}
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return buf.String(), nil
}

const minDocRun = 4

// extractDOC recovers readable text from a legacy Word binary. It collects
// printable runs stored as 8-bit text or UTF-16LE and keeps whichever
// encoding yields more text.
func extractDOC(data []byte) (string, error) {
	narrow := printableRuns8(data)
	wide := printableRuns16(data)
	text := narrow
	if len(wide) > len(narrow) {
		text = wide
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no readable text found")
	}
	return text, nil
}

func isDocText(r rune) bool {
	return r == '\r' || r == '\n' || r == '\t' || (r >= 0x20 && r != 0x7f && r < 0xfffe)
}

func printableRuns8(data []byte) string {
	var out, run strings.Builder
	flush := func() {
		if run.Len() >= minDocRun {
			out.WriteString(run.String())
			out.WriteString("\n")
		}
		run.Reset()
	}
	for _, b := range data {
		if b < 0x80 && isDocText(rune(b)) {
			run.WriteByte(b)
			continue
		}
		flush()
	}
	flush()
	return out.String()
}

func printableRuns16(data []byte) string {
	var out strings.Builder
	var run []uint16
	flush := func() {
		if len(run) >= minDocRun {
			out.WriteString(string(utf16.Decode(run)))
			out.WriteString("\n")
		}
		run = run[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		if u < 0xd800 && isDocText(rune(u)) {
			run = append(run, u)
			continue
		}
		flush()
	}
	flush()
	return out.String()
}
