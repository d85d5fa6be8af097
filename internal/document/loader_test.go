package document

import (
	"os"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

func createTempFile(t *testing.T, content, ext string) string {
	tmpFile, err := os.CreateTemp("", "medkb-test-*"+ext)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func createTempPDF(t *testing.T, text string) string {
	tmpFile, err := os.CreateTemp("", "medkb-test-*.pdf")
	if err != nil {
		t.Fatalf("Failed to create temp PDF file: %v", err)
	}
	defer tmpFile.Close()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 10, text, "", "", false)
	if err := pdf.Output(tmpFile); err != nil {
		t.Fatalf("Failed to write PDF: %v", err)
	}
	return tmpFile.Name()
}

func TestPlainTextLoader(t *testing.T) {
	content := "乳腺癌是常见的恶性肿瘤。\n第二行内容。"
	file := createTempFile(t, content, ".txt")
	defer os.Remove(file)

	loader := NewPlainTextLoader()
	text, err := loader.Load(file)
	if err != nil {
		t.Fatalf("PlainTextLoader.Load failed: %v", err)
	}
	if !strings.Contains(text, "恶性肿瘤") {
		t.Errorf("Expected content not found in loaded text: %s", text)
	}
}

func TestMarkdownLoader(t *testing.T) {
	content := "# 乳腺病理\n\n浸润性导管癌是**最常见**的乳腺癌类型。\n\n- 组织学分级\n- 分子分型"
	file := createTempFile(t, content, ".md")
	defer os.Remove(file)

	loader := NewMarkdownLoader()
	text, err := loader.Load(file)
	if err != nil {
		t.Fatalf("MarkdownLoader.Load failed: %v", err)
	}
	if !strings.Contains(text, "最常见") {
		t.Errorf("Expected content not found in loaded text: %s", text)
	}
	if !strings.Contains(text, "组织学分级") {
		t.Errorf("Expected list item not found in loaded text: %s", text)
	}
	if strings.Contains(text, "<") {
		t.Errorf("HTML tags should be stripped: %s", text)
	}
}

func TestPDFLoader(t *testing.T) {
	content := "This is a pathology textbook page.\nSecond line."
	file := createTempPDF(t, content)
	defer os.Remove(file)

	loader := NewPDFLoader()
	text, err := loader.Load(file)
	if err != nil {
		t.Fatalf("PDFLoader.Load failed: %v", err)
	}
	if !strings.Contains(text, "pathology") {
		t.Errorf("Expected content not found in loaded PDF text: %s", text)
	}
}

func TestLoaderFactory(t *testing.T) {
	txtFile := createTempFile(t, "plain text", ".txt")
	defer os.Remove(txtFile)
	mdFile := createTempFile(t, "# Markdown", ".md")
	defer os.Remove(mdFile)

	tests := []struct {
		file     string
		expected string
	}{
		{txtFile, "plain text"},
		{mdFile, "Markdown"},
	}

	for _, tt := range tests {
		loader, err := LoaderFactory(tt.file)
		if err != nil {
			t.Fatalf("LoaderFactory failed for %s: %v", tt.file, err)
		}
		text, err := loader.Load(tt.file)
		if err != nil {
			t.Fatalf("Loader.Load failed for %s: %v", tt.file, err)
		}
		if !strings.Contains(text, tt.expected) {
			t.Errorf("Expected '%s' in loaded text, got: %s", tt.expected, text)
		}
	}
}

func TestLoaderFactoryUnsupported(t *testing.T) {
	_, err := LoaderFactory("slide.pptx")
	if err != ErrUnsupportedType {
		t.Errorf("Expected ErrUnsupportedType, got: %v", err)
	}
}
