package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"

	"quotescan/internal"
)

// ExtractText normalizes the supported OCR hand-off formats to a single
// text blob for the line parser. Plain text is the primary contract;
// PDF and HTML-table dumps cover OCR services that return their result
// as a searchable PDF or an hOCR-style table.
func ExtractText(inputType internal.InputType, input string) (string, error) {
	switch inputType {
	case internal.InputText:
		if blob, err := os.ReadFile(input); err == nil {
			return string(blob), nil
		}
		// Not a readable path: the caller passed the text itself.
		return input, nil
	case internal.InputPDF:
		blob, err := os.ReadFile(input)
		if err != nil {
			return "", err
		}
		return extractPDFText(blob)
	case internal.InputHTML:
		blob, err := os.ReadFile(input)
		if err != nil {
			return "", err
		}
		return extractHTMLText(string(blob))
	default:
		return "", fmt.Errorf("unsupported input type: %s", inputType)
	}
}

func extractPDFText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// extractHTMLText flattens table rows into "cell | cell" lines so the
// line parser sees one candidate per row; documents without tables fall
// back to their visible text.
func extractHTMLText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, normalizeSpaces(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	})

	if b.Len() == 0 {
		return doc.Text(), nil
	}
	return b.String(), nil
}
