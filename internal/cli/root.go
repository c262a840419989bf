// Package cli wires the smartspend commands: the HTTP server, statement
// import, goal and transaction management, and the dashboard reports.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/smartspend/internal/config"
	"github.com/insightdelivered/smartspend/internal/logger"
	"github.com/insightdelivered/smartspend/internal/store"
)

const version = "1.0.0"

// app is the state shared by every command once flags are parsed.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	now func() time.Time
}

// withStore opens the database for the duration of fn.
func (a *app) withStore(fn func(*store.Store) error) error {
	s, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	return newRoot(&app{now: time.Now, log: zerolog.Nop()})
}

func newRoot(a *app) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "smartspend",
		Short: "Track a savings goal from M-Pesa statements",
		Long: `SmartSpend tracks progress towards a savings goal.

Transactions are added by hand or imported from M-Pesa full statement PDFs,
categorized by merchant, and summarized as a dashboard with recommendations.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("db", "", "SQLite database path (default smart_spend.db)")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		_, v, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := v.BindPFlag("database.path", flags.Lookup("db")); err != nil {
			return fmt.Errorf("failed to bind --db: %w", err)
		}
		if err := v.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
			return fmt.Errorf("failed to bind --log-level: %w", err)
		}
		a.cfg = config.FromViper(v)
		a.log = logger.Configure(a.cfg.LogLevel, a.cfg.LogFormat)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logger.WithContext(ctx, a.log))
		return nil
	}

	root.AddCommand(
		newServeCommand(a),
		newImportCommand(a),
		newExtractCommand(a),
		newGoalCommand(a),
		newTxnCommand(a),
		newDashboardCommand(a),
		newChartsCommand(a),
	)
	return root
}

// Execute runs the command tree against os.Args and returns the exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
