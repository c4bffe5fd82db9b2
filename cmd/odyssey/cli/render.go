package cli

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-receivables/internal/analytics"
)

func newRenderCommand(env Env) *cobra.Command {
	var (
		query string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "render <report>",
		Short: "Render a report workbook to a file",
		Example: `  odyssey render cuentas_por_cobrar --query "dateTo=2024-03-31&customer=7"
  odyssey render reporte_facturacion_clientes --query "reportType=detail" --out -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := analytics.ReportName(args[0])
			if !name.Valid() {
				return fmt.Errorf("render: %w: %s", analytics.ErrUnknownReport, args[0])
			}
			values, err := url.ParseQuery(query)
			if err != nil {
				return fmt.Errorf("render: query: %w", err)
			}

			builder, cleanup, err := env.Reports(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			artifact, err := builder.Build(cmd.Context(), name, values)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(artifact.Data)
				return err
			}
			if out == "" {
				out = artifact.Filename
			}
			if err := os.WriteFile(out, artifact.Data, 0o644); err != nil {
				return fmt.Errorf("render: write %s: %w", out, err)
			}
			cmd.PrintErrf("wrote %s (%d bytes)\n", out, len(artifact.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "report filters as a URL query string")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, - for stdout (default: report filename)")
	return cmd
}
