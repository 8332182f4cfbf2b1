package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"
)

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	doc := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestParseDocx(t *testing.T) {
	data := buildDocx(t, "Section: Nutrition", "Identified Need: low appetite")

	got, err := Parse(context.Background(), data, "plan.DOCX")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Text != "Section: Nutrition\nIdentified Need: low appetite" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if got.Metadata.Format != FormatDOCX || got.Metadata.WordCount != 6 {
		t.Fatalf("unexpected metadata %+v", got.Metadata)
	}
}

func TestParseDocxSniffedWithoutExtension(t *testing.T) {
	data := buildDocx(t, "Section: Mobility")

	got, err := Parse(context.Background(), data, "upload")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Metadata.Format != FormatDOCX {
		t.Fatalf("expected docx, got %s", got.Metadata.Format)
	}
}

func TestParseCSVJoinsLabelValueRows(t *testing.T) {
	data := []byte("\xef\xbb\xbfSection,Nutrition\r\nIdentified Need:,low appetite\r\nDate,Time,Carer\r\n")

	got, err := Parse(context.Background(), data, "plan.csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "Section: Nutrition\nIdentified Need: low appetite\nDate | Time | Carer"
	if got.Text != want {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Section")
	_ = f.SetCellValue("Sheet1", "B1", "Personal Care")
	_ = f.SetCellValue("Sheet1", "A2", "Risk")
	_ = f.SetCellValue("Sheet1", "B2", "falls when tired")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	got, err := Parse(context.Background(), buf.Bytes(), "plan.xlsx")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Text != "Section: Personal Care\nRisk: falls when tired" {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestParseDocRecoversUTF16Text(t *testing.T) {
	text := "Section: Nutrition\rIdentified Need: low appetite"
	var data []byte
	data = append(data, 0xd0, 0xcf, 0x11, 0xe0, 0x00, 0x00, 0x01, 0x02)
	for _, u := range utf16.Encode([]rune(text)) {
		data = append(data, byte(u), byte(u>>8))
	}
	data = append(data, 0x00, 0x00, 0x01, 0x00)

	got, err := Parse(context.Background(), data, "plan.doc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(got.Text, "Section: Nutrition\nIdentified Need: low appetite") {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestParseRejectsUnsupportedAndEmpty(t *testing.T) {
	if _, err := Parse(context.Background(), []byte("x"), "photo.png"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Parse(context.Background(), nil, "plan.pdf"); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestParseCorruptPDFFails(t *testing.T) {
	if _, err := Parse(context.Background(), []byte("not really a pdf"), "plan.pdf"); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}

func TestDetectFormatSniffing(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "pdf magic", data: []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"), want: FormatPDF},
		{name: "plain text", data: []byte("Section: Nutrition\nIdentified Need: low appetite\n"), want: FormatTXT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.data, "")
			if err != nil {
				t.Fatalf("DetectFormat: %v", err)
			}
			if got != tt.want {
				t.Fatalf("DetectFormat = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("  a  \r\n\r\n\r\n\nb\rc  ")
	if got != "a\n\nb\nc" {
		t.Fatalf("unexpected %q", got)
	}
}
