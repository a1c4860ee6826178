package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

// readSQL loads the statement text from a file, or stdin when path is "-".
func readSQL(path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func newDryRunCmd(opts *rootOptions) *cobra.Command {
	var mappingSetID, sqlFile string
	cmd := &cobra.Command{
		Use:   "dry-run",
		Short: "Validate a statement against the warehouse and obtain an execution token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sqlText, err := readSQL(sqlFile)
			if err != nil {
				return err
			}
			body := map[string]string{"mapping_set_id": mappingSetID, "sql": sqlText}
			path := fmt.Sprintf("/v1/sessions/%s/executions/dry-run", url.PathEscape(opts.session))
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, nil, body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&mappingSetID, "mapping-set", "", "mapping set the statement was generated from")
	cmd.Flags().StringVarP(&sqlFile, "file", "f", "-", "SQL file to validate (\"-\" for stdin)")
	_ = cmd.MarkFlagRequired("mapping-set")
	return cmd
}

func newExecuteCmd(opts *rootOptions) *cobra.Command {
	var tokenID, sqlFile string
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a dry-run-validated statement with its token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sqlText, err := readSQL(sqlFile)
			if err != nil {
				return err
			}
			body := map[string]string{"token_id": tokenID, "sql": sqlText}
			path := fmt.Sprintf("/v1/sessions/%s/executions/execute", url.PathEscape(opts.session))
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, nil, body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&tokenID, "token", "", "execution token from a successful dry-run")
	cmd.Flags().StringVarP(&sqlFile, "file", "f", "-", "SQL file to execute (\"-\" for stdin)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
