// Package cli holds the odyssey command tree: the HTTP server plus one-shot
// report rendering and export management.
package cli

import (
	"context"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-receivables/internal/analytics"
	"github.com/odyssey-erp/odyssey-receivables/internal/exports"
)

// ReportBuilder renders one report.
type ReportBuilder interface {
	Build(ctx context.Context, name analytics.ReportName, query url.Values) (analytics.Artifact, error)
}

// ExportService submits and inspects asynchronous exports.
type ExportService interface {
	Submit(ctx context.Context, req exports.Request) (string, error)
	Get(ctx context.Context, id string) (exports.Export, error)
}

// Env opens dependencies on demand so that each command only connects to
// what it uses. Every opener returns a cleanup func.
type Env struct {
	Version string
	Serve   func(ctx context.Context) error
	Reports func(ctx context.Context) (ReportBuilder, func(), error)
	Exports func(ctx context.Context) (ExportService, func(), error)
}

// NewRootCommand builds the odyssey command. Without a subcommand it serves
// HTTP.
func NewRootCommand(env Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "odyssey",
		Short:         "Accounts receivable reporting service",
		Version:       env.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Serve(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return env.Serve(cmd.Context())
			},
		},
		newRenderCommand(env),
		newExportsCommand(env),
	)
	return root
}
