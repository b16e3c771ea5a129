// Command posctl runs backup chores against the configured storage backend
// without going through the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"quicksale/backend/internal/app"
	"quicksale/backend/internal/backup"
	"quicksale/backend/internal/config"
	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/logging"
	"quicksale/backend/internal/products"
	"quicksale/backend/internal/service"
)

type opener func(ctx context.Context) (*app.App, error)

func main() {
	cfg := config.Load()
	logger := logging.NewWithOutput(cfg.LogLevel, os.Stderr)

	open := func(ctx context.Context) (*app.App, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return app.Open(ctx, cfg, logger)
	}

	if err := newCLI(open, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, domain.ErrCancelled) || errors.Is(err, domain.ErrConfirmationRequired) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newCLI(open opener, out io.Writer) *cli.App {
	return &cli.App{
		Name:   "posctl",
		Usage:  "export and import quicksale backups",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "reports",
				Usage: "daily sales reports",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list saved reports, newest first",
						Action: withApp(open, listReports),
					},
					{
						Name:  "export",
						Usage: "write one report as a backup file",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "report id", Required: true},
							&cli.StringFlag{Name: "out", Usage: "output file (stdout when empty)"},
						},
						Action: withApp(open, exportReport),
					},
					{
						Name:  "import",
						Usage: "import a report backup file",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "file", Usage: "backup file to read"},
							&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "apply without a dry run"},
						},
						Action: withApp(open, importReport),
					},
				},
			},
			{
				Name:  "products",
				Usage: "product catalog",
				Subcommands: []*cli.Command{
					{
						Name:  "export",
						Usage: "write the catalog as a backup file",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "out", Usage: "output file (stdout when empty)"},
						},
						Action: withApp(open, exportProducts),
					},
					{
						Name:  "import",
						Usage: "import a products backup file (merge by default)",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "file", Usage: "backup file to read"},
							&cli.BoolFlag{Name: "replace", Usage: "replace the whole catalog instead of merging"},
							&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "confirm the import"},
						},
						Action: withApp(open, importProducts),
					},
				},
			},
		},
	}
}

// withApp opens the backend, runs fn as the admin actor and closes the backend.
func withApp(open opener, fn func(ctx context.Context, c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := open(c.Context)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := service.WithActor(c.Context, domain.Actor{Username: "posctl", Role: domain.RoleAdmin})
		return fn(ctx, c, a)
	}
}

func listReports(_ context.Context, c *cli.Context, a *app.App) error {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tITEMS\tTOTAL")
	for _, r := range a.Service.ListReports() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ReportID, r.Date, r.Type, len(r.DailySales), r.GrandTotal.StringFixed(2))
	}
	return w.Flush()
}

func exportReport(ctx context.Context, c *cli.Context, a *app.App) error {
	result, err := a.Service.ExportReport(ctx, c.String("id"))
	if err != nil {
		return err
	}
	return writeExport(c, result)
}

func exportProducts(ctx context.Context, c *cli.Context, a *app.App) error {
	result, err := a.Service.ExportProducts(ctx)
	if err != nil {
		return err
	}
	return writeExport(c, result)
}

func writeExport(c *cli.Context, result service.ExportResult) error {
	path := c.String("out")
	if path == "" {
		_, err := c.App.Writer.Write(result.File.Content)
		return err
	}
	if err := os.WriteFile(path, result.File.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(c.App.ErrWriter, "wrote %s\n", path)
	if result.Location != "" {
		fmt.Fprintf(c.App.ErrWriter, "delivered to %s\n", result.Location)
	}
	return nil
}

func importReport(ctx context.Context, c *cli.Context, a *app.App) error {
	proposal, err := a.Service.ProposeReportImport(ctx, backup.FileOpener{Path: c.String("file")})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, proposal.Description)
	return commit(ctx, c, a, proposal)
}

func importProducts(ctx context.Context, c *cli.Context, a *app.App) error {
	mode := products.ImportMerge
	if c.Bool("replace") {
		mode = products.ImportReplace
	}
	proposal, err := a.Service.ProposeProductImport(ctx, backup.FileOpener{Path: c.String("file")}, mode)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, proposal.Description)
	return commit(ctx, c, a, proposal)
}

// commit applies the proposal with --yes; otherwise it is a dry run.
func commit(ctx context.Context, c *cli.Context, a *app.App, proposal service.ImportProposal) error {
	if !c.Bool("yes") {
		_ = a.Service.DiscardImport(proposal.ID)
		fmt.Fprintln(c.App.Writer, "dry run; re-run with --yes to apply. Import "+domain.ErrCancelled.Error())
		return nil
	}
	outcome, err := a.Service.CommitImport(ctx, proposal.ID, true)
	if err != nil {
		return err
	}
	switch {
	case outcome.Duplicate:
		fmt.Fprintf(c.App.Writer, "report %s already present; nothing changed\n", outcome.ReportID)
	case outcome.Kind == backup.KindReports.String():
		fmt.Fprintf(c.App.Writer, "imported report %s\n", outcome.ReportID)
	default:
		fmt.Fprintf(c.App.Writer, "imported %d product(s), dropped %d\n", outcome.Imported, outcome.Dropped)
	}
	return nil
}
