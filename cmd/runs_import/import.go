package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/2beens/runlog/internal/config"
	"github.com/2beens/runlog/internal/db"
	"github.com/2beens/runlog/internal/logging"
	"github.com/2beens/runlog/internal/runstats/importer"
	"github.com/2beens/runlog/internal/runstats/runs"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type importOptions struct {
	configPath string
	env        string
	file       string
	format     string
	columns    string
	logLevel   string
	dryRun     bool
}

type runCreator interface {
	Add(ctx context.Context, run runs.Run) (*runs.Run, error)
}

func newImportCmd() *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Parse, validate and store the runs of a CSV file",
		Long: "Reads the CSV, maps its columns to run fields, validates every row with the given\n" +
			"date format and stores the valid rows. Invalid rows are listed and skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportCmd(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "./config.toml", "path for the TOML config file")
	cmd.Flags().StringVar(&opts.env, "env", "development", "environment [prod | production | dev | development]")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "CSV file to import")
	cmd.Flags().StringVar(&opts.format, "format", string(importer.DefaultFormat), "date format of the date column")
	cmd.Flags().StringVar(&opts.columns, "columns", "", `column mapping as JSON, e.g. {"date":"Day","distance":"Km"}`)
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate and print the rows without storing them")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImportCmd(cmd *cobra.Command, opts *importOptions) error {
	logging.Setup(logging.LoggerSetupParams{LogLevel: opts.logLevel})
	out := cmd.OutOrStdout()

	prepared, err := prepareImport(opts)
	if err != nil {
		return err
	}
	printSummary(out, prepared)

	if opts.dryRun {
		fmt.Fprintln(out, "dry run; nothing stored")
		return nil
	}
	valid, _ := importer.Counts(prepared.rows)
	if valid == 0 {
		return fmt.Errorf("no valid rows to import")
	}

	cfg, err := config.Load(opts.env, opts.configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: cfg.PostgresHost,
		DBPort: cfg.PostgresPort,
		DBUser: cfg.PostgresUser,
		DBName: cfg.PostgresDBName,
	})
	if err != nil {
		return fmt.Errorf("new db pool: %w", err)
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}

	result := commitImport(ctx, prepared.rows, runs.NewRepo(dbPool), newProgressBar(valid))
	printResult(out, prepared.rows, result)
	if result.Err != nil {
		return fmt.Errorf("import finished with errors: %w", result.Err)
	}
	return nil
}

type preparedImport struct {
	headers []string
	columns importer.ColumnMap
	format  importer.DateFormat
	rows    []importer.ImportRow
}

func prepareImport(opts *importOptions) (*preparedImport, error) {
	format, err := importer.ParseDateFormat(opts.format)
	if err != nil {
		return nil, fmt.Errorf("%w, supported: %v", err, importer.SupportedFormats)
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	table, err := importer.ReadCSV(f)
	if err != nil {
		return nil, err
	}

	columns := importer.GuessColumnMap(table.Headers)
	if opts.columns != "" {
		if err := json.Unmarshal([]byte(opts.columns), &columns); err != nil {
			return nil, fmt.Errorf("parse columns mapping: %w", err)
		}
	}
	if columns.Date == "" || columns.Distance == "" {
		return nil, fmt.Errorf("date and distance columns must be mapped, headers: %v", table.Headers)
	}

	log.Debugf("columns mapped: %+v", columns)
	return &preparedImport{
		headers: table.Headers,
		columns: columns,
		format:  format,
		rows:    table.Resolve(columns, format),
	}, nil
}

func printSummary(out io.Writer, p *preparedImport) {
	valid, invalid := importer.Counts(p.rows)
	fmt.Fprintf(out, "columns: date=%q distance=%q duration=%q notes=%q effort=%q route=%q\n",
		p.columns.Date, p.columns.Distance, p.columns.Duration, p.columns.Notes, p.columns.Effort, p.columns.Route)
	fmt.Fprintf(out, "date format: %s\n", p.format)
	fmt.Fprintf(out, "rows: %d, valid: %d, invalid: %d\n", len(p.rows), valid, invalid)

	for _, row := range p.rows {
		if !row.Valid() {
			fmt.Fprintf(out, "  line %d: %s\n", row.Line, strings.Join(row.Errors, "; "))
			continue
		}
		if len(row.Warnings) > 0 {
			fmt.Fprintf(out, "  line %d: warning: %s\n", row.Line, strings.Join(row.Warnings, "; "))
		}
	}
}

func newProgressBar(total int) *progressbar.ProgressBar {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("importing runs"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// commitImport stores the valid rows. bar can be nil.
func commitImport(ctx context.Context, rows []importer.ImportRow, creator runCreator, bar *progressbar.ProgressBar) importer.Result {
	var progress importer.ProgressFunc
	if bar != nil {
		progress = func(importer.ImportRow, error) {
			_ = bar.Add(1)
		}
		defer func() {
			_ = bar.Finish()
		}()
	}
	return importer.ImportBatchWithProgress(ctx, rows, creator, progress)
}

func printResult(out io.Writer, rows []importer.ImportRow, result importer.Result) {
	fmt.Fprintf(out, "imported: %d, failed: %d, skipped: %d", result.Success, result.Failed, result.Skipped)
	if result.Canceled > 0 {
		fmt.Fprintf(out, ", canceled: %d", result.Canceled)
	}
	fmt.Fprintln(out)
	for _, index := range result.FailedRows {
		fmt.Fprintf(out, "  line %d failed\n", rows[index].Line)
	}
}
