// Package responses holds the commands reading the sink's responses table.
package responses

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/myrjola/survey/internal/envstruct"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
	"github.com/myrjola/survey/internal/repositories"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/myrjola/survey/internal/survey"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "responses",
	Title: "Stored responses",
}

type config struct {
	SqliteURL string `env:"SINK_SQLITE_URL" envDefault:"./responses.sqlite"`
}

// tableColumns are the answers shown by list next to the reference and receive time.
var tableColumns = []string{"name", "email", "postcode", "propertyType", "fuelType"}

func init() {
	for _, cmd := range []*cobra.Command{List, Get, Export} {
		cmd.Flags().String("sqlite-url", "", "sink database, defaults to $SINK_SQLITE_URL")
	}
	List.Flags().Int("limit", 20, "number of responses to show, 0 shows all") //nolint:mnd // a screenful.
	Export.Flags().String("out", "", "path of the CSV file, defaults to stdout")
}

var List = &cobra.Command{
	Use:     "list",
	GroupID: "responses",
	Short:   "List responses",
	Long:    "Lists the most recent responses first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return errors.Wrap(err, "limit flag")
		}
		return withRepository(cmd, func(ctx context.Context, repo *repositories.ResponseRepository) error {
			responses, listErr := repo.List(ctx, limit)
			if listErr != nil {
				return errors.Wrap(listErr, "list responses")
			}
			return WriteTable(cmd.OutOrStdout(), responses)
		})
	},
}

var Get = &cobra.Command{
	Use:     "get [reference]",
	GroupID: "responses",
	Short:   "Show one response",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(ctx context.Context, repo *repositories.ResponseRepository) error {
			resp, getErr := repo.Get(ctx, args[0])
			if getErr != nil {
				return errors.Wrap(getErr, "get response", slog.String("reference", args[0]))
			}
			return WriteDetail(cmd.OutOrStdout(), resp, repo.Columns())
		})
	},
}

var Export = &cobra.Command{
	Use:     "export",
	GroupID: "responses",
	Short:   "Export responses as CSV",
	Long:    "Exports every response in the fixed column order, oldest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := cmd.Flags().GetString("out")
		if err != nil {
			return errors.Wrap(err, "out flag")
		}
		return withRepository(cmd, func(ctx context.Context, repo *repositories.ResponseRepository) error {
			responses, listErr := repo.List(ctx, 0)
			if listErr != nil {
				return errors.Wrap(listErr, "list responses")
			}
			w := cmd.OutOrStdout()
			if out != "" {
				file, createErr := os.Create(out)
				if createErr != nil {
					return errors.Wrap(createErr, "create file", slog.String("path", out))
				}
				defer func() {
					_ = file.Close()
				}()
				w = file
			}
			return WriteCSV(w, responses, repo.Columns())
		})
	},
}

// withRepository opens the sink database named by the flag or the environment and runs fn against it.
func withRepository(
	cmd *cobra.Command,
	fn func(ctx context.Context, repo *repositories.ResponseRepository) error,
) error {
	var cfg config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if url, _ := cmd.Flags().GetString("sqlite-url"); url != "" {
		cfg.SqliteURL = url
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelWarn,
		ReplaceAttr: nil,
	})))
	return Run(ctx, cfg.SqliteURL, logger, fn)
}

// Run opens the responses database at url for the duration of fn.
func Run(
	ctx context.Context,
	url string,
	logger *slog.Logger,
	fn func(ctx context.Context, repo *repositories.ResponseRepository) error,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	columns := survey.HeatPumpEnquiry().RecordColumns()
	db, err := sqlite.NewDatabase(ctx, url, repositories.ResponsesSchema(columns), logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", url))
	}
	defer func() {
		_ = db.Close()
	}()
	repo, err := repositories.NewResponseRepository(db, columns, logger)
	if err != nil {
		return errors.Wrap(err, "new response repository")
	}
	return fn(ctx, repo)
}

// WriteTable prints responses as aligned columns.
func WriteTable(w io.Writer, responses []repositories.Response) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // two spaces of padding.
	_, _ = fmt.Fprint(tw, "REFERENCE\tRECEIVED")
	for _, column := range tableColumns {
		_, _ = fmt.Fprintf(tw, "\t%s", column)
	}
	_, _ = fmt.Fprintln(tw)
	for _, resp := range responses {
		_, _ = fmt.Fprintf(tw, "%s\t%s", resp.Reference, resp.ReceivedAt)
		for _, column := range tableColumns {
			_, _ = fmt.Fprintf(tw, "\t%s", resp.Values[column])
		}
		_, _ = fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "flush table")
	}
	return nil
}

// WriteDetail prints every column of resp on its own line.
func WriteDetail(w io.Writer, resp repositories.Response, columns []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // two spaces of padding.
	_, _ = fmt.Fprintf(tw, "reference\t%s\n", resp.Reference)
	_, _ = fmt.Fprintf(tw, "received_at\t%s\n", resp.ReceivedAt)
	for _, column := range columns {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", column, resp.Values[column])
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "flush detail")
	}
	return nil
}

// WriteCSV writes a header row followed by responses oldest first.
func WriteCSV(w io.Writer, responses []repositories.Response, columns []string) error {
	cw := csv.NewWriter(w)
	header := append([]string{"reference", "received_at"}, columns...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i := len(responses) - 1; i >= 0; i-- {
		resp := responses[i]
		row := make([]string, 0, len(header))
		row = append(row, resp.Reference, resp.ReceivedAt)
		for _, column := range columns {
			row = append(row, resp.Values[column])
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write row", slog.String("reference", resp.Reference))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}
	return nil
}
