package export

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`) // [text](url)

// PDF renders the Markdown transcript as a simple PDF: headings get a bold
// font, "---" becomes a rule, links stay clickable.
func PDF(w io.Writer, markdown string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(3)
		case s == "---":
			x, y := pdf.GetX(), pdf.GetY()
			pageW, _ := pdf.GetPageSize()
			left, _, right, _ := pdf.GetMargins()
			pdf.Line(left, y+2, pageW-right, y+2)
			pdf.SetXY(x, y+4)
		case strings.HasPrefix(s, "#"):
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.Trim(strings.TrimSpace(s[i:]), "*")
			if text == "" {
				continue
			}
			size := 14.0
			if i >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
		default:
			writeLine(pdf, tr, strings.ReplaceAll(s, "**", ""))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func writeLine(pdf *gofpdf.Fpdf, tr func(string) string, s string) {
	parts := linkRe.FindAllStringSubmatchIndex(s, -1)
	if len(parts) == 0 {
		pdf.MultiCell(0, 5, tr(s), "", "L", false)
		return
	}
	pos := 0
	for _, m := range parts {
		// m: [fullStart, fullEnd, textStart, textEnd, urlStart, urlEnd]
		if m[0] > pos {
			pdf.Write(5, tr(s[pos:m[0]]))
		}
		text, url := s[m[2]:m[3]], s[m[4]:m[5]]
		if strings.HasPrefix(url, "#") {
			pdf.Write(5, tr(text))
		} else {
			pdf.WriteLinkString(5, tr(text), url)
		}
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(5, tr(s[pos:]))
	}
	pdf.Ln(6)
}
