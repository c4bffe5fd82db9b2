package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-receivables/internal/exports"
)

func newExportsCommand(env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Queue and inspect asynchronous exports",
	}
	cmd.AddCommand(newExportSubmitCommand(env), newExportStatusCommand(env))
	return cmd
}

func newExportSubmitCommand(env Env) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "submit <report>",
		Short: "Queue a report for background rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := env.Exports(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := svc.Submit(cmd.Context(), exports.Request{Report: args[0], Query: query})
			if err != nil {
				return fmt.Errorf("exports submit: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "report filters as a URL query string")
	return cmd
}

func newExportStatusCommand(env Env) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show an export's state, optionally saving the file when ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := env.Exports(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			exp, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("exports status: %w", err)
			}
			switch exp.Status {
			case exports.StatusFailed:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", exp.ID, exp.Status, exp.Reason)
			case exports.StatusReady:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", exp.ID, exp.Status, exp.Filename)
				if out != "" {
					if err := os.WriteFile(out, exp.Data, 0o644); err != nil {
						return fmt.Errorf("exports status: write %s: %w", out, err)
					}
				}
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", exp.ID, exp.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "save the file here when the export is ready")
	return cmd
}
