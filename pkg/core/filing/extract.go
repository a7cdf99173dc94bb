package filing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"

	"openedgar/pkg/core/edgar"
)

// ExtractText produces the best-effort plain-text form of every
// document in the submission. Extraction failures are per-document:
// the failing document keeps its raw body and records ExtractErr.
func ExtractText(sub *Submission) {
	for i := range sub.Documents {
		doc := &sub.Documents[i]
		text, err := extractDocument(doc)
		if err != nil {
			doc.ExtractErr = &edgar.ExtractionError{FileName: doc.FileName, Err: err}
			continue
		}
		doc.Text = text
	}
}

func extractDocument(doc *Document) (string, error) {
	body := doc.Body
	name := strings.ToLower(doc.FileName)

	// Binary payloads arrive uuencoded inside <TEXT>.
	if isUUEncoded(body) {
		decoded, err := uudecode(body)
		if err != nil {
			return "", fmt.Errorf("uudecode: %w", err)
		}
		body = decoded
	}

	switch {
	case strings.HasSuffix(name, ".htm"), strings.HasSuffix(name, ".html"),
		looksLikeHTML(body):
		return htmlToText(body)
	case strings.HasSuffix(name, ".pdf"):
		return pdfToText(body)
	case strings.HasSuffix(name, ".docx"), strings.HasSuffix(name, ".rtf"),
		strings.HasSuffix(name, ".odt"):
		return officeToText(body, filepath.Ext(name))
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"),
		strings.HasSuffix(name, ".gif"), strings.HasSuffix(name, ".png"),
		strings.HasSuffix(name, ".zip"):
		return "", fmt.Errorf("no text form for %s", doc.ContentType)
	default:
		// Plain text, XBRL and similar: stored as-is.
		return string(body), nil
	}
}

var whitespaceCollapse = regexp.MustCompile(`[ \t]+`)
var blankLines = regexp.MustCompile(`\n{3,}`)

// htmlToText strips markup from an HTML document body.
func htmlToText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, head").Remove()

	// Keep block boundaries as newlines so the text stays readable.
	doc.Find("p, div, tr, br, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	text := doc.Text()
	text = whitespaceCollapse.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

// pdfToText extracts text from PDF bytes. dslipak/pdf reads from a
// file path, so the body goes through a temp file; it can also panic on
// malformed input, hence the recover.
func pdfToText(body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf extraction panicked: %v", r)
		}
	}()

	path, cleanup, err := tempFile(body, ".pdf")
	if err != nil {
		return "", err
	}
	defer cleanup()

	f, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= f.NumPage(); i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// One bad page does not void the rest.
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// officeToText extracts text from docx/rtf/odt bytes via lu4p/cat,
// which also works on file paths.
func officeToText(body []byte, ext string) (string, error) {
	path, cleanup, err := tempFile(body, ext)
	if err != nil {
		return "", err
	}
	defer cleanup()

	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", ext, err)
	}
	return strings.TrimSpace(text), nil
}

func tempFile(body []byte, ext string) (string, func(), error) {
	f, err := os.CreateTemp("", "openedgar-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	f.Close()
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

func looksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(head)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<!doctype html"))
}

var uuBegin = regexp.MustCompile(`(?m)^begin \d{3} \S+`)

func isUUEncoded(body []byte) bool {
	head := body
	if len(head) > 128 {
		head = head[:128]
	}
	return uuBegin.Match(head)
}

// uudecode decodes a uuencoded payload (begin <mode> <name> ... end).
func uudecode(body []byte) ([]byte, error) {
	loc := uuBegin.FindIndex(body)
	if loc == nil {
		return nil, fmt.Errorf("missing begin line")
	}
	rest := body[loc[1]:]

	var out bytes.Buffer
	for _, line := range bytes.Split(rest, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		if string(line) == "end" {
			return out.Bytes(), nil
		}
		decodeUULine(line, &out)
	}
	return nil, fmt.Errorf("missing end line")
}

// decodeUULine decodes one uuencoded line: a length byte followed by
// 4-character groups each carrying 3 bytes.
func decodeUULine(line []byte, out *bytes.Buffer) {
	n := int(line[0]-' ') & 0x3f
	data := line[1:]
	for i := 0; i+4 <= len(data) && n > 0; i += 4 {
		var c [4]byte
		for j := 0; j < 4; j++ {
			c[j] = (data[i+j] - ' ') & 0x3f
		}
		triple := [3]byte{
			c[0]<<2 | c[1]>>4,
			c[1]<<4 | c[2]>>2,
			c[2]<<6 | c[3],
		}
		for j := 0; j < 3 && n > 0; j++ {
			out.WriteByte(triple[j])
			n--
		}
	}
}
