// Package cli implements the schemabridge command-line interface. Every
// command drives the HTTP API, so the CLI and the server share one code path
// for validation, auditing, and execution gating.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	host    string
	session string
}

func (o *rootOptions) client() *Client {
	return NewClient(o.host)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "schemabridge",
		Short:         "Schema mapping and guarded transformation CLI",
		Long:          "Command-line interface for the schemabridge mapping engine: capture schemas, review column mappings, and run guarded transformations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("SCHEMABRIDGE_HOST"); v != "" {
					opts.host = v
				}
			}
			if !cmd.Flags().Changed("session") {
				if v := os.Getenv("SCHEMABRIDGE_SESSION"); v != "" {
					opts.session = v
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.host, "host", "http://localhost:8080", "API host URL")
	rootCmd.PersistentFlags().StringVarP(&opts.session, "session", "s", "default", "session ID")

	rootCmd.AddCommand(
		newCaptureCmd(opts),
		newTablesCmd(opts),
		newSampleCmd(opts),
		newSuggestCmd(opts),
		newValidateCmd(opts),
		newClassifyCmd(opts),
		newDecideCmd(opts),
		newSQLCmd(opts),
		newDryRunCmd(opts),
		newExecuteCmd(opts),
		newAuditCmd(opts),
	)
	return rootCmd
}

// printJSON renders v as indented JSON on the writer.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
