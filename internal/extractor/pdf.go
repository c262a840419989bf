package extractor

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Document is an open PDF whose pages can be read one at a time.
// Callers must Close it once all pages have been consumed.
type Document struct {
	closer io.Closer
	r      *pdf.Reader
}

// Open opens the PDF file at path. The file is closed again if it cannot
// be read as a PDF.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat PDF %q: %w", path, err)
	}

	doc, err := NewDocument(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open PDF %q: %w", path, err)
	}
	doc.closer = f
	return doc, nil
}

// NewDocument reads a PDF from ra, which must hold size bytes.
// The caller keeps ownership of ra.
func NewDocument(ra io.ReaderAt, size int64) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	return &Document{r: r}, nil
}

// NumPage returns the number of pages in the document.
func (d *Document) NumPage() int {
	return d.r.NumPage()
}

// PageText returns the text of page i (1-based), one visual row per line.
// GetTextByRow only tracks positions set with Tm, so pages laid out with Td
// come back as a single row; when it finds fewer rows than the page content
// has, the content regrouped by Y coordinate is used instead. An empty page
// returns "".
func (d *Document) PageText(i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed on page %d: %v", i, r)
		}
	}()

	page := d.r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}

	byContent := pageByContent(page)
	byRow, rowErr := pageByRow(page)
	if rowErr == nil && byRow != "" && lineCount(byRow) >= lineCount(byContent) {
		return byRow, nil
	}
	if byContent != "" {
		return byContent, nil
	}
	if rowErr != nil {
		return "", fmt.Errorf("failed to read text of page %d: %w", i, rowErr)
	}
	return byRow, nil
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

// Close releases the underlying file, if the document owns one.
func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// ExtractText reads a PDF file and returns the text content of each page.
// If the structured library returns unreadable text, it falls back to the
// external pdftotext command (poppler-utils).
func ExtractText(filePath string) ([]string, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("input file not found: %w", err)
	}

	pages, libErr := extractWithLibrary(filePath)
	if libErr == nil && isReadableText(pages) {
		return pages, nil
	}

	popplerPages, popplerErr := extractWithPdftotext(filePath)
	if popplerErr == nil && isReadableText(popplerPages) {
		return popplerPages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("PDF text extraction failed: %w", libErr)
	}
	return nil, fmt.Errorf("no readable text could be extracted from PDF; the file may be image-based or use custom font encodings")
}

func extractWithLibrary(filePath string) ([]string, error) {
	doc, err := Open(filePath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// extractWithPdftotext uses the external pdftotext command from poppler-utils
// as a fallback for PDFs that the Go library cannot handle.
func extractWithPdftotext(filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages := pdfinfoPageCount(filePath)
	if numPages == 0 {
		numPages = 1
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		pageStr := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", pageStr, "-l", pageStr, filePath, "-").Output()
		if err != nil {
			continue
		}
		pages = append(pages, strings.TrimSpace(string(out)))
	}

	if totalTextLen(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

// pdfinfoPageCount returns the number of pages reported by pdfinfo, or 0.
func pdfinfoPageCount(filePath string) int {
	out, err := exec.Command("pdfinfo", filePath).Output()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "Pages:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
			if err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

func pageByRow(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	var lines []string
	for _, row := range rows {
		var parts []string
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		line := strings.TrimSpace(strings.Join(parts, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// pageByContent groups glyphs by Y coordinate to rebuild rows, then orders
// each row by X. Glyphs sharing an X keep their drawing order. Space glyphs
// are kept, and a space is added where the gap to the previous glyph is
// wider than a quarter of the font size. Runs of whitespace collapse to one
// space.
func pageByContent(page pdf.Page) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	content := page.Content()
	if len(content.Text) == 0 {
		return ""
	}

	rowMap := make(map[int][]pdf.Text)
	for _, t := range content.Text {
		yKey := int(math.Round(t.Y))
		rowMap[yKey] = append(rowMap[yKey], t)
	}

	// PDF Y grows upwards, so the top row has the largest key.
	yKeys := make([]int, 0, len(rowMap))
	for y := range rowMap {
		yKeys = append(yKeys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

	var lines []string
	for _, y := range yKeys {
		items := rowMap[y]
		sort.SliceStable(items, func(a, b int) bool {
			return items[a].X < items[b].X
		})

		var sb strings.Builder
		for j, item := range items {
			if j > 0 {
				prev := items[j-1]
				if prev.W > 0 && item.X-(prev.X+prev.W) > item.FontSize/4 {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(item.S)
		}
		line := strings.Join(strings.Fields(sb.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// textQuality returns the ratio of basic ASCII readable characters to total
// characters, 0.0-1.0.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) ||
				unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// commonWords appear in virtually every mobile-money statement.
var commonWords = []string{
	"statement", "receipt", "completion", "details", "transaction",
	"status", "paid in", "withdrawn", "balance", "page", "payment",
	"customer", "transfer", "mpesa", "m-pesa",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires >50 chars, >60% readable ASCII and at least one
// statement word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

// IsReadableText is the exported version for use by other packages.
func IsReadableText(pages []string) bool {
	return isReadableText(pages)
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
