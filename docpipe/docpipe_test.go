package docpipe

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	pipe := New(Config{})

	tests := []struct {
		path   string
		format Format
	}{
		{"doc.txt", FormatTXT},
		{"doc.pdf", FormatPDF},
		{"doc.docx", FormatDocx},
		{"doc.html", FormatHTML},
		{"doc.htm", FormatHTML},
		{"DOC.PDF", FormatPDF},
	}

	for _, tt := range tests {
		f, err := pipe.Detect(tt.path)
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.path, err)
			continue
		}
		if f != tt.format {
			t.Errorf("Detect(%q) = %q, want %q", tt.path, f, tt.format)
		}
	}

	// Unsupported format.
	if _, err := pipe.Detect("file.xyz"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestConvertText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	os.WriteFile(path, []byte("Hello world\r\nsecond line\r\n\r\n\r\nthird  \r\n"), 0644)

	pipe := New(Config{})
	doc, err := pipe.Convert(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Format != FormatTXT {
		t.Fatalf("expected txt format, got %s", doc.Format)
	}
	if doc.Title != "Hello world" {
		t.Fatalf("expected title 'Hello world', got %q", doc.Title)
	}
	want := "Hello world\nsecond line\n\nthird"
	if doc.Text != want {
		t.Fatalf("Text = %q, want %q", doc.Text, want)
	}
}

func TestConvertEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	os.WriteFile(path, []byte("   \n\n  "), 0644)

	pipe := New(Config{})
	if _, err := pipe.Convert(context.Background(), path); err == nil {
		t.Fatal("expected error for whitespace-only file")
	}
}

func TestConvertTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	// Just over the 1 MB cap.
	os.WriteFile(path, []byte(strings.Repeat("x", 1024*1024+1)), 0644)

	pipe := New(Config{MaxFileMB: 1})
	_, err := pipe.Convert(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected too-large error, got %v", err)
	}
}

func TestConvertDocx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.docx")

	// Create a minimal .docx file.
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)

	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Test Title</w:t></w:r></w:p>
<w:p><w:r><w:t>This is body text.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Section Two</w:t></w:r></w:p>
<w:p><w:r><w:t>More content here.</w:t></w:r></w:p>
</w:body>
</w:document>`

	fw, _ := w.Create("word/document.xml")
	fw.Write([]byte(docXML))
	w.Close()
	f.Close()

	pipe := New(Config{})
	doc, err := pipe.Convert(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if doc.Title != "Test Title" {
		t.Fatalf("expected title 'Test Title', got %q", doc.Title)
	}
	for _, want := range []string{"This is body text.", "Section Two", "More content here."} {
		if !strings.Contains(doc.Text, want) {
			t.Fatalf("expected text to contain %q, got %q", want, doc.Text)
		}
	}
}

func TestConvertHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.html")
	html := `<!DOCTYPE html>
<html><head><title>HTML Test</title></head>
<body>
<article>
<h1>Main Heading</h1>
<p>This is a substantial paragraph of text extracted from the body.</p>
</article>
</body></html>`
	os.WriteFile(path, []byte(html), 0644)

	pipe := New(Config{})
	doc, err := pipe.Convert(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if doc.Title != "HTML Test" {
		t.Fatalf("expected title 'HTML Test', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "substantial paragraph") {
		t.Fatalf("expected text to contain content, got %q", doc.Text)
	}
}

func TestScrub(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"passthrough", "plain text", "plain text"},
		{"crlf", "a\r\nb", "a\nb"},
		{"nul stripped", "a\x00b", "ab"},
		{"invalid utf8 dropped", "a\xffb", "ab"},
		{"blank run collapsed", "a\n\n\n\nb", "a\n\nb"},
		{"trailing line space", "a  \nb\t\n", "a\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scrub(tt.in); got != tt.want {
				t.Fatalf("Scrub(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScrubIdempotent(t *testing.T) {
	inputs := []string{"a\r\nb\n\n\n\nc", "x\x00y\xff", "  padded  \n"}
	for _, in := range inputs {
		once := Scrub(in)
		if twice := Scrub(once); twice != once {
			t.Errorf("Scrub(%q) not idempotent: %q != %q", in, once, twice)
		}
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) != 5 {
		t.Fatalf("expected 5 extensions, got %d: %v", len(exts), exts)
	}
	pipe := New(Config{})
	for _, ext := range exts {
		if _, err := pipe.Detect("file" + ext); err != nil {
			t.Errorf("Detect(file%s): %v", ext, err)
		}
	}
}

// --- HTML hidden text filtering tests ---

func TestHTML_HiddenDisplayNone(t *testing.T) {
	// WHAT: Elements with display:none are excluded.
	// WHY: Hidden text injection vector (SEO spam, prompt injection).
	dir := t.TempDir()
	path := filepath.Join(dir, "hidden.html")
	html := `<!DOCTYPE html><html><body>
<p>Visible text here</p>
<div style="display:none">secret hidden text</div>
</body></html>`
	os.WriteFile(path, []byte(html), 0644)

	pipe := New(Config{})
	doc, err := pipe.Convert(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Text, "secret hidden text") {
		t.Error("display:none text should be excluded")
	}
	if !strings.Contains(doc.Text, "Visible text") {
		t.Error("visible text should be present")
	}
}

func TestHTML_HiddenVisibility(t *testing.T) {
	// WHAT: Elements with visibility:hidden are excluded.
	// WHY: Another CSS technique for hiding injected text.
	dir := t.TempDir()
	path := filepath.Join(dir, "vis.html")
	html := `<!DOCTYPE html><html><body>
<p>Normal text</p>
<span style="visibility:hidden">hidden payload</span>
</body></html>`
	os.WriteFile(path, []byte(html), 0644)

	pipe := New(Config{})
	doc, err := pipe.Convert(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Text, "hidden payload") {
		t.Error("visibility:hidden text should be excluded")
	}
}

func TestHTML_HiddenFontSize0(t *testing.T) {
	// WHAT: Elements with font-size:0 are excluded.
	// WHY: Zero-size text is invisible to humans but extractable.
	dir := t.TempDir()
	path := filepath.Join(dir, "fs0.html")
	html := `<!DOCTYPE html><html><body>
<p>Readable text</p>
<span style="font-size:0px">tiny invisible</span>
</body></html>`
	os.WriteFile(path, []byte(html), 0644)

	pipe := New(Config{})
	doc, err := pipe.Convert(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Text, "tiny invisible") {
		t.Error("font-size:0 text should be excluded")
	}
}

func TestHTML_VisibleTextKept(t *testing.T) {
	// WHAT: Visible text is preserved after hidden filtering.
	// WHY: The filter must not over-strip.
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.html")
	html := `<!DOCTYPE html><html><body>
<h1>Title</h1>
<p style="color:red">Styled but visible</p>
<p>Normal paragraph</p>
</body></html>`
	os.WriteFile(path, []byte(html), 0644)

	pipe := New(Config{})
	doc, err := pipe.Convert(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Text, "Styled but visible") {
		t.Error("visible styled text should be kept")
	}
	if !strings.Contains(doc.Text, "Normal paragraph") {
		t.Error("normal text should be kept")
	}
}

// --- XML bomb tests ---

func TestDOCX_XMLBomb(t *testing.T) {
	// WHAT: DOCX with deeply nested XML returns depth error.
	// WHY: XML bomb / billion laughs defense.
	dir := t.TempDir()
	path := filepath.Join(dir, "bomb.docx")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)

	// Build XML with 300 levels of nesting (exceeds the 256 limit).
	var xmlB strings.Builder
	xmlB.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	xmlB.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for i := 0; i < 300; i++ {
		xmlB.WriteString("<w:p>")
	}
	xmlB.WriteString("<w:r><w:t>deep</w:t></w:r>")
	for i := 0; i < 300; i++ {
		xmlB.WriteString("</w:p>")
	}
	xmlB.WriteString("</w:body></w:document>")

	fw, _ := w.Create("word/document.xml")
	fw.Write([]byte(xmlB.String()))
	w.Close()
	f.Close()

	_, _, err = extractDocx(path)
	if err == nil {
		t.Fatal("expected error for deeply nested XML")
	}
	if !strings.Contains(err.Error(), "nesting depth") {
		t.Errorf("expected 'nesting depth' error, got: %v", err)
	}
}
