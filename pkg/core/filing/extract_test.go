package filing

import (
	"strings"
	"testing"
)

func TestExtractTextHTML(t *testing.T) {
	sub := &Submission{Documents: []Document{{
		FileName: "report.htm",
		Body:     []byte("<html><head><style>p{color:red}</style></head><body><p>Net sales</p><p>increased</p></body></html>"),
	}}}

	ExtractText(sub)
	doc := sub.Documents[0]
	if doc.ExtractErr != nil {
		t.Fatalf("Unexpected extraction error: %v", doc.ExtractErr)
	}
	if !strings.Contains(doc.Text, "Net sales") || !strings.Contains(doc.Text, "increased") {
		t.Errorf("Text = %q", doc.Text)
	}
	if strings.Contains(doc.Text, "color:red") {
		t.Errorf("Style content leaked into text: %q", doc.Text)
	}
}

func TestExtractTextHTMLWithoutExtension(t *testing.T) {
	// Containers sometimes omit <FILENAME>; sniff the body instead.
	sub := &Submission{Documents: []Document{{
		Body: []byte("<HTML><BODY>Sniffed markup</BODY></HTML>"),
	}}}

	ExtractText(sub)
	if got := sub.Documents[0].Text; !strings.Contains(got, "Sniffed markup") {
		t.Errorf("Text = %q", got)
	}
	if strings.Contains(sub.Documents[0].Text, "<BODY>") {
		t.Error("Markup left in extracted text")
	}
}

func TestExtractTextPlainPassthrough(t *testing.T) {
	body := "ITEM 1. BUSINESS\nWe design things."
	sub := &Submission{Documents: []Document{{
		FileName: "form.txt",
		Body:     []byte(body),
	}}}

	ExtractText(sub)
	if sub.Documents[0].Text != body {
		t.Errorf("Plain text should pass through unchanged, got %q", sub.Documents[0].Text)
	}
}

func TestExtractTextImageHasNoTextForm(t *testing.T) {
	sub := &Submission{Documents: []Document{{
		FileName:    "chart.jpg",
		ContentType: "image/jpeg",
		Body:        []byte{0xff, 0xd8, 0xff, 0xe0},
	}}}

	ExtractText(sub)
	doc := sub.Documents[0]
	if doc.ExtractErr == nil {
		t.Fatal("Expected extraction error for image")
	}
	if doc.Text != "" {
		t.Errorf("Image should have no text, got %q", doc.Text)
	}
	if len(doc.Body) != 4 {
		t.Error("Raw body must survive a failed extraction")
	}
}

func TestExtractTextFailureIsPerDocument(t *testing.T) {
	sub := &Submission{Documents: []Document{
		{FileName: "chart.png", ContentType: "image/png", Body: []byte{0x89, 0x50}},
		{FileName: "notes.txt", Body: []byte("still extracted")},
	}}

	ExtractText(sub)
	if sub.Documents[0].ExtractErr == nil {
		t.Error("Expected error on the image document")
	}
	if sub.Documents[1].ExtractErr != nil || sub.Documents[1].Text != "still extracted" {
		t.Errorf("Second document should extract normally: %+v", sub.Documents[1])
	}
}

func TestUUDecode(t *testing.T) {
	// "Cat" uuencoded.
	payload := []byte("begin 644 test.bin\n#0V%T\n`\nend\n")

	if !isUUEncoded(payload) {
		t.Fatal("Payload not recognized as uuencoded")
	}
	decoded, err := uudecode(payload)
	if err != nil {
		t.Fatalf("uudecode failed: %v", err)
	}
	if string(decoded) != "Cat" {
		t.Errorf("Decoded %q, want Cat", decoded)
	}
}

func TestUUDecodeMissingEnd(t *testing.T) {
	if _, err := uudecode([]byte("begin 644 test.bin\n#0V%T\n")); err == nil {
		t.Error("Expected error for payload without end line")
	}
}

func TestIsUUEncodedRejectsText(t *testing.T) {
	if isUUEncoded([]byte("The filing begins with boilerplate.")) {
		t.Error("Plain prose misdetected as uuencoded")
	}
}
