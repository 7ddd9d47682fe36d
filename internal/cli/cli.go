// Package cli implements the leaderboard command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	service "github.com/okian/tutorboard/internal/app"
	"github.com/okian/tutorboard/internal/config"
	"github.com/okian/tutorboard/internal/domain/ranking"
	"github.com/okian/tutorboard/internal/domain/types"
	"github.com/okian/tutorboard/pkg/logger"
)

// Backend is the part of the leaderboard service the commands use.
type Backend interface {
	Leaderboard(ctx context.Context, q service.Query) service.Result
	Levels(ctx context.Context) ([]string, error)
	InvalidateCache(ctx context.Context) error
}

// Opener returns a ready backend and a func that releases it.
type Opener func(ctx context.Context) (Backend, func(), error)

// queryFlags are shared by show and export.
type queryFlags struct {
	level   string
	min     int
	top     int
	from    string
	to      string
	search  string
	refresh bool
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.level, "level", "", "only rank this level (default all levels)")
	cmd.Flags().IntVar(&f.min, "min", 0, "minimum distinct assignments to qualify (default from config)")
	cmd.Flags().IntVar(&f.top, "top", 0, "maximum rows (default from config)")
	cmd.Flags().StringVar(&f.from, "from", "", "count attempts on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "count attempts before this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.search, "search", "", "only students whose name or code contains this text")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass cached sheets")
}

func (f *queryFlags) query() (service.Query, error) {
	if f.min < 0 {
		return service.Query{}, errors.New("--min must not be negative")
	}
	if f.top < 0 {
		return service.Query{}, errors.New("--top must not be negative")
	}
	filter, err := ranking.ParseFilter(f.from, f.to, f.search)
	if err != nil {
		return service.Query{}, err
	}
	return service.Query{Level: f.level, MinAssignments: f.min, TopN: f.top, Filter: filter}, nil
}

// NewRootCommand builds the leaderboard command tree.
func NewRootCommand(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank students from the school's assignment score sheet",
		Long: `Compute the student leaderboard from the shared score sheet.

Configuration is read the same way as the server: defaults, then the YAML
file named by TUTORBOARD_CONFIG, then TUTORBOARD_* environment variables.`,
		SilenceUsage: true,
	}
	root.AddCommand(newLevelsCommand(open), newShowCommand(open), newExportCommand(open))
	return root
}

func newLevelsCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the levels present in the score sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			levels, err := backend.Levels(cmd.Context())
			if err != nil {
				return errors.New(service.Describe(err))
			}
			out := cmd.OutOrStdout()
			for _, l := range levels {
				fmt.Fprintln(out, l)
			}
			return nil
		},
	}
}

func newShowCommand(open Opener) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the leaderboard as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := run(cmd.Context(), open, &flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Status == service.StatusEmpty {
				fmt.Fprintln(out, res.Message)
				return nil
			}
			renderTable(out, res.Entries)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newExportCommand(open Opener) *cobra.Command {
	var (
		flags queryFlags
		path  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the leaderboard as CSV",
		Long: `Write the leaderboard as CSV to --out, or to stdout when --out is "-".
Without --out the file is named leaderboard_all_levels.csv or
leaderboard_{LEVEL}.csv in the current directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := run(cmd.Context(), open, &flags)
			if err != nil {
				return err
			}
			if path == "-" {
				return types.WriteCSV(cmd.OutOrStdout(), res.Entries)
			}
			if path == "" {
				path = types.ExportFilename(flags.level)
			}
			if err := writeFile(path, res.Entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(res.Entries), path)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&path, "out", "o", "", `output file, "-" for stdout`)
	return cmd
}

// run executes one pipeline pass. An error status becomes a Go error so
// the process exits non-zero.
func run(ctx context.Context, open Opener, flags *queryFlags) (service.Result, error) {
	q, err := flags.query()
	if err != nil {
		return service.Result{}, err
	}
	backend, release, err := open(ctx)
	if err != nil {
		return service.Result{}, err
	}
	defer release()

	if flags.refresh {
		if err := backend.InvalidateCache(ctx); err != nil {
			return service.Result{}, fmt.Errorf("refresh: %w", err)
		}
	}
	res := backend.Leaderboard(ctx, q)
	if res.Status == service.StatusError {
		return res, errors.New(res.Error)
	}
	return res, nil
}

func renderTable(w io.Writer, entries []types.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "Name", "Code", "Level", "Total", "Done", "Average", "Last Activity"})
	table.SetAutoFormatHeaders(false)
	for _, e := range entries {
		table.Append([]string{
			strconv.Itoa(e.Rank),
			e.DisplayName,
			e.StudentCode,
			e.Level,
			strconv.FormatFloat(e.TotalMarks, 'f', -1, 64),
			strconv.Itoa(e.AssignmentsCompleted),
			strconv.FormatFloat(float64(e.AverageScore), 'f', 2, 64),
			e.LastActivity.String(),
		})
	}
	table.Render()
}

func writeFile(path string, entries []types.Entry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return types.WriteCSV(f, entries)
}

// OpenService loads configuration, initializes logging on stderr and
// starts a Service.
func OpenService(ctx context.Context) (Backend, func(), error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(
		logger.WithOutput(os.Stderr),
		logger.WithLevel(cfg.LogLevel),
		logger.WithFormat(cfg.LogFormat),
	); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	svc, err := service.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := svc.Start(ctx); err != nil {
		return nil, nil, err
	}
	return svc, svc.Stop, nil
}
