// Package parser imports M-Pesa full statements: it walks the extracted page
// text line by line, rebuilds transaction rows that wrap over several lines
// and hands each finished row to a Sink.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/smartspend/internal/extractor"
	"github.com/insightdelivered/smartspend/internal/models"
)

// PageSource yields the text of each page of a statement, 1-based.
type PageSource interface {
	NumPage() int
	PageText(i int) (string, error)
}

// Sink receives finished transactions. A non-nil error means the
// transaction was not stored.
type Sink interface {
	Ingest(ctx context.Context, txn models.FinalizedTransaction) error
}

// TextPages is a PageSource over text that was extracted elsewhere.
type TextPages []string

func (p TextPages) NumPage() int { return len(p) }

func (p TextPages) PageText(i int) (string, error) {
	if i < 1 || i > len(p) {
		return "", fmt.Errorf("page %d out of range 1-%d", i, len(p))
	}
	return p[i-1], nil
}

// Importer feeds statement pages through the line classifier and record
// accumulator into Sink.
type Importer struct {
	Sink Sink
	Log  zerolog.Logger
}

// NewImporter returns an Importer writing to sink.
func NewImporter(sink Sink, log zerolog.Logger) *Importer {
	return &Importer{Sink: sink, Log: log}
}

// Import reads every page of src and returns how many transactions the sink
// accepted. Rows without two amounts and rows the sink rejects are skipped.
// If a page cannot be read the import stops with an error and no count;
// rows already accepted stay stored.
//
// Import is not idempotent: importing the same statement twice stores every
// row twice.
func (im *Importer) Import(ctx context.Context, src PageSource, goalID uint) (int, error) {
	batch := models.ImportBatchFrom(ctx)
	if batch == "" {
		batch = uuid.NewString()
		ctx = models.WithImportBatch(ctx, batch)
	}
	log := im.Log.With().Str("batch", batch).Uint("goal_id", goalID).Logger()

	var stats struct{ flushes, dropped, rejected, inserted int }

	acc := accumulator{flush: func(rec models.PendingRecord) {
		stats.flushes++
		res, ok := Resolve(rec.Text)
		if !ok {
			stats.dropped++
			log.Debug().Str("date", rec.Date).Str("text", rec.Text).Msg("dropped row without amounts")
			return
		}
		err := im.Sink.Ingest(ctx, models.FinalizedTransaction{
			Date:        rec.Date,
			Description: res.Description,
			Amount:      res.Amount,
			Direction:   res.Direction,
			GoalID:      goalID,
		})
		if err != nil {
			stats.rejected++
			ev := log.Debug()
			if !isValidationError(err) {
				ev = log.Warn()
			}
			ev.Err(err).Str("date", rec.Date).Str("description", res.Description).Msg("row not stored")
			return
		}
		stats.inserted++
	}}

	numPages := src.NumPage()
	for i := 1; i <= numPages; i++ {
		text, err := src.PageText(i)
		if err != nil {
			log.Error().Err(err).Int("page", i).Msg("statement import aborted")
			return 0, fmt.Errorf("failed to read statement page %d: %w", i, err)
		}
		for _, line := range splitLines(text) {
			acc.feed(Classify(line))
		}
	}
	acc.finish()

	log.Info().
		Int("pages", numPages).
		Int("flushes", stats.flushes).
		Int("dropped", stats.dropped).
		Int("rejected", stats.rejected).
		Int("inserted", stats.inserted).
		Msg("statement imported")

	return stats.inserted, nil
}

// ImportFile opens the PDF at path, imports it and closes it.
func (im *Importer) ImportFile(ctx context.Context, path string, goalID uint) (int, error) {
	doc, err := extractor.Open(path)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	return im.Import(ctx, doc, goalID)
}

// ImportReader imports a PDF held in ra, which must contain size bytes.
func (im *Importer) ImportReader(ctx context.Context, ra io.ReaderAt, size int64, goalID uint) (int, error) {
	doc, err := extractor.NewDocument(ra, size)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	return im.Import(ctx, doc, goalID)
}

// PageBreak separates pages when a whole statement travels as one string.
const PageBreak = "\n" + pageBreakMarker + "\n"

const pageBreakMarker = "---PAGE_BREAK---"

// SplitPages undoes JoinPages. A page break is any line that reads
// ---PAGE_BREAK--- once surrounding whitespace is trimmed, so CRLF text
// splits the same way.
func SplitPages(text string) []string {
	var pages []string
	var page []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == pageBreakMarker {
			pages = append(pages, strings.Join(page, "\n"))
			page = nil
			continue
		}
		page = append(page, strings.TrimSuffix(line, "\r"))
	}
	return append(pages, strings.Join(page, "\n"))
}

// JoinPages joins extracted pages with PageBreak.
func JoinPages(pages []string) string {
	return strings.Join(pages, PageBreak)
}

// ImportText imports statement pages that were already extracted to text.
func (im *Importer) ImportText(ctx context.Context, pages []string, goalID uint) (int, error) {
	return im.Import(ctx, TextPages(pages), goalID)
}

func isValidationError(err error) bool {
	return errors.Is(err, models.ErrInvalidDirection) ||
		errors.Is(err, models.ErrNonPositiveAmount)
}
