package extractor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/smartspend/internal/extractor/pdffixture"
)

func writeFixture(t *testing.T, pages [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.pdf")
	if err := os.WriteFile(path, pdffixture.Build(pages), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDocument_PageText(t *testing.T) {
	pages := [][]string{
		{"MPESA FULL STATEMENT", "QA12BC34DE 2024-03-01 09:15:00 Pay Bill to KPLC 0.00 1,200.00 8,800.00"},
		{"Page 2 of 2", "Funds received from JOHN DOE"},
	}
	doc, err := Open(writeFixture(t, pages))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer doc.Close()

	if doc.NumPage() != 2 {
		t.Fatalf("NumPage: got %d, want 2", doc.NumPage())
	}

	for i, want := range pages {
		text, err := doc.PageText(i + 1)
		if err != nil {
			t.Fatalf("page %d: unexpected error: %v", i+1, err)
		}
		got := strings.Split(text, "\n")
		if len(got) != len(want) {
			t.Fatalf("page %d: got %d lines %q, want %d", i+1, len(got), got, len(want))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("page %d line %d: got %q, want %q", i+1, j, got[j], want[j])
			}
		}
	}
}

func TestPageByContent(t *testing.T) {
	data := pdffixture.Build([][]string{{
		"MPESA FULL STATEMENT",
		"QA11BC22DE 2024-03-01 09:15:00 Pay Bill to KPLC Completed 0.00 1,200.00 8,800.00",
	}})
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := pageByContent(r.Page(1))
	want := "MPESA FULL STATEMENT\nQA11BC22DE 2024-03-01 09:15:00 Pay Bill to KPLC Completed 0.00 1,200.00 8,800.00"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOpen_CorruptClosesFile(t *testing.T) {
	fds, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd on this platform")
	}
	before := len(fds)

	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := Open(path); err == nil {
			t.Fatal("expected error for corrupt document")
		}
	}

	fds, _ = os.ReadDir("/proc/self/fd")
	if after := len(fds); after > before {
		t.Errorf("open descriptors: got %d, want at most %d", after, before)
	}
}

func TestNewDocument(t *testing.T) {
	data := pdffixture.Build([][]string{{"MPESA FULL STATEMENT"}})

	doc, err := NewDocument(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
	if doc.NumPage() != 1 {
		t.Errorf("NumPage: got %d, want 1", doc.NumPage())
	}
}

func TestNewDocument_Corrupt(t *testing.T) {
	data := []byte("this is not a pdf at all")
	if _, err := NewDocument(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Error("expected error for corrupt document")
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open("/tmp/nonexistent-statement-12345.pdf"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExtractText(t *testing.T) {
	path := writeFixture(t, [][]string{{
		"MPESA FULL STATEMENT",
		"Receipt No Completion Time Details Transaction Status Paid In Withdrawn Balance",
		"QA12BC34DE 2024-03-01 09:15:00 Pay Bill to KPLC 0.00 1,200.00 8,800.00",
	}})

	pages, err := ExtractText(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages: got %d, want 1", len(pages))
	}
	if !strings.Contains(pages[0], "QA12BC34DE") {
		t.Errorf("expected receipt number in text, got %q", pages[0])
	}
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		expected bool
	}{
		{"statement text", []string{"MPESA FULL STATEMENT Receipt No Completion Time Details Paid In Withdrawn Balance"}, true},
		{"too short", []string{"Balance"}, false},
		{"binary garbage", []string{strings.Repeat("éþÃƒ", 30)}, false},
		{"no statement words", []string{strings.Repeat("lorem ipsum dolor sit amet ", 5)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReadableText(tt.pages); got != tt.expected {
				t.Errorf("IsReadableText: got %v, want %v", got, tt.expected)
			}
		})
	}
}
