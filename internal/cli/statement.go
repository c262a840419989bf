package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/smartspend/internal/extractor"
	"github.com/insightdelivered/smartspend/internal/logger"
	"github.com/insightdelivered/smartspend/internal/models"
	"github.com/insightdelivered/smartspend/internal/parser"
	"github.com/insightdelivered/smartspend/internal/store"
)

func checkPDF(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}
	return nil
}

func newImportCommand(a *app) *cobra.Command {
	var goalID uint

	cmd := &cobra.Command{
		Use:   "import <statement.pdf> [more.pdf ...]",
		Short: "Import M-Pesa full statement PDFs",
		Long: `Import reads each M-Pesa full statement PDF and stores its transactions
against a goal (the active goal unless --goal is given).

Importing the same statement twice stores its transactions twice.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := checkPDF(path); err != nil {
					return err
				}
			}
			return a.withStore(func(s *store.Store) error {
				ctx := cmd.Context()
				id := goalID
				if id == 0 {
					goal, err := s.ActiveGoal(ctx)
					if err != nil {
						return fmt.Errorf("no goal to import into, create one with 'goal create' or pass --goal: %w", err)
					}
					id = goal.ID
				}

				im := parser.NewImporter(s, logger.FromContext(ctx))
				out := cmd.OutOrStdout()
				for _, path := range args {
					batch := uuid.NewString()
					n, err := im.ImportFile(models.WithImportBatch(ctx, batch), path, id)
					if err != nil {
						return fmt.Errorf("importing %s: %w", path, err)
					}
					fmt.Fprintf(out, "%s: imported %d transaction(s) into goal %d (batch %s)\n", path, n, id, batch)
					if n == 0 {
						fmt.Fprintln(out, "  Warning: No transactions found. The PDF may not be an M-Pesa full statement.")
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&goalID, "goal", 0, "goal id to attach transactions to")
	return cmd
}

func newExtractCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <statement.pdf>",
		Short: "Print the text extracted from a statement PDF",
		Long: `Extract prints the text of every page, pages separated by a
---PAGE_BREAK--- line. The output can be posted to /api/import as extractedText.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := checkPDF(path); err != nil {
				return err
			}

			pages, err := extractor.ExtractText(path)
			if err != nil {
				return fmt.Errorf("PDF extraction failed: %w", err)
			}
			a.log.Info().Str("file", path).Int("pages", len(pages)).Msg("extracted statement text")
			if !extractor.IsReadableText(pages) {
				a.log.Warn().Str("file", path).Msg("extracted text looks unreadable")
			}

			text := parser.JoinPages(pages) + "\n"
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write %q: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write text to this file instead of stdout")
	return cmd
}
