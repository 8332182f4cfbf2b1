package report

import (
	"encoding/xml"
	"strconv"
	"strings"
)

const wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// run is one formatted span inside a paragraph.
type run struct {
	text  string
	style RunStyle
}

// docBuilder accumulates the body of word/document.xml.
type docBuilder struct {
	b strings.Builder
}

func (d *docBuilder) paragraph(runs ...run) {
	d.paragraphWithProps("", runs...)
}

func (d *docBuilder) paragraphWithProps(pPr string, runs ...run) {
	d.b.WriteString("<w:p>")
	if pPr != "" {
		d.b.WriteString("<w:pPr>")
		d.b.WriteString(pPr)
		d.b.WriteString("</w:pPr>")
	}
	for _, r := range runs {
		writeRun(&d.b, r)
	}
	d.b.WriteString("</w:p>")
}

func (d *docBuilder) text(style string, text string) {
	d.paragraph(run{text: text, style: StyleMap[style]})
}

func (d *docBuilder) centered(runs ...run) {
	d.paragraphWithProps(`<w:jc w:val="center"/>`, runs...)
}

func (d *docBuilder) heading(text string) {
	d.paragraphWithProps(`<w:spacing w:before="360" w:after="120"/>`, run{text: text, style: StyleMap["heading"]})
}

func (d *docBuilder) subheading(text string) {
	d.paragraphWithProps(`<w:spacing w:before="240" w:after="80"/>`, run{text: text, style: StyleMap["subheading"]})
}

func (d *docBuilder) labelled(label, value string) {
	d.paragraph(run{text: label + ": ", style: StyleMap["label"]}, run{text: value, style: StyleMap["body"]})
}

func (d *docBuilder) bullet(text string) {
	d.paragraphWithProps(`<w:ind w:left="360" w:hanging="220"/>`, run{text: "• " + text, style: StyleMap["body"]})
}

func (d *docBuilder) indented(style string, text string) {
	d.paragraphWithProps(`<w:ind w:left="360"/>`, run{text: text, style: StyleMap[style]})
}

func (d *docBuilder) pageBreak() {
	d.b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

// table writes a simple bordered table. The first row is bold.
func (d *docBuilder) table(rows [][]string, widths []int) {
	d.b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		d.b.WriteString(`<w:` + side + ` w:val="single" w:sz="4" w:space="0" w:color="D1D5DB"/>`)
	}
	d.b.WriteString(`</w:tblBorders></w:tblPr><w:tblGrid>`)
	for _, w := range widths {
		d.b.WriteString(`<w:gridCol w:w="` + strconv.Itoa(w) + `"/>`)
	}
	d.b.WriteString(`</w:tblGrid>`)
	for i, row := range rows {
		d.b.WriteString("<w:tr>")
		for j, cell := range row {
			width := 2400
			if j < len(widths) {
				width = widths[j]
			}
			d.b.WriteString(`<w:tc><w:tcPr><w:tcW w:w="` + strconv.Itoa(width) + `" w:type="dxa"/></w:tcPr><w:p>`)
			style := StyleMap["body"]
			if i == 0 {
				style = StyleMap["label"]
			}
			writeRun(&d.b, run{text: cell, style: style})
			d.b.WriteString("</w:p></w:tc>")
		}
		d.b.WriteString("</w:tr>")
	}
	d.b.WriteString("</w:tbl>")
}

func (d *docBuilder) document() string {
	var out strings.Builder
	out.WriteString(xml.Header)
	out.WriteString(`<w:document xmlns:w="` + wmlNamespace + `"><w:body>`)
	out.WriteString(d.b.String())
	out.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1134" w:right="1134" w:bottom="1134" w:left="1134" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`)
	out.WriteString(`</w:body></w:document>`)
	return out.String()
}

func writeRun(b *strings.Builder, r run) {
	b.WriteString("<w:r>")
	writeRunProps(b, r.style)
	lines := strings.Split(r.text, "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(b, []byte(sanitizeXMLText(line)))
		b.WriteString("</w:t>")
	}
	b.WriteString("</w:r>")
}

func writeRunProps(b *strings.Builder, style RunStyle) {
	if !style.Bold && !style.Italic && style.Size == 0 && style.Color == "" {
		return
	}
	b.WriteString("<w:rPr>")
	if style.Bold {
		b.WriteString("<w:b/>")
	}
	if style.Italic {
		b.WriteString("<w:i/>")
	}
	if style.Color != "" {
		b.WriteString(`<w:color w:val="` + style.Color + `"/>`)
	}
	if style.Size > 0 {
		b.WriteString(`<w:sz w:val="` + strconv.Itoa(style.Size) + `"/>`)
	}
	b.WriteString("</w:rPr>")
}

// sanitizeXMLText drops characters that are not allowed in XML 1.0.
func sanitizeXMLText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
			return -1
		case r >= 0xD800 && r <= 0xDFFF:
			return -1
		}
		return r
	}, s)
}
