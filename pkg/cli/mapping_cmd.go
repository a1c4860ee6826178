package cli

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func mappingPath(opts *rootOptions, setID, action string) string {
	p := fmt.Sprintf("/v1/sessions/%s/mappings/%s", url.PathEscape(opts.session), url.PathEscape(setID))
	if action != "" {
		p += "/" + action
	}
	return p
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var sourceDataset, sourceTable, targetDataset, targetTable string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest column mappings between a source and a target table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := map[string]string{
				"source_dataset": sourceDataset,
				"source_table":   sourceTable,
				"target_dataset": targetDataset,
				"target_table":   targetTable,
			}
			path := fmt.Sprintf("/v1/sessions/%s/mappings/suggest", url.PathEscape(opts.session))
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, nil, body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&sourceDataset, "source-dataset", "", "source dataset name")
	cmd.Flags().StringVar(&sourceTable, "source-table", "", "source table name")
	cmd.Flags().StringVar(&targetDataset, "target-dataset", "", "target dataset name")
	cmd.Flags().StringVar(&targetTable, "target-table", "", "target table name")
	for _, f := range []string{"source-dataset", "source-table", "target-dataset", "target-table"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <mapping-set-id>",
		Short: "Re-check every candidate against the captured schemas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodPost, mappingPath(opts, args[0], "validate"), nil, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <mapping-set-id>",
		Short: "Bucket candidates by confidence and report overall risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodPost, mappingPath(opts, args[0], "classify"), nil, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newDecideCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decide <mapping-set-id> <approved|rejected>",
		Short: "Record the human decision on a mapping set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"decision": args[1]}
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodPost, mappingPath(opts, args[0], "decision"), nil, body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newSQLCmd(opts *rootOptions) *cobra.Command {
	var mode, keyColumn string
	cmd := &cobra.Command{
		Use:   "sql <mapping-set-id>",
		Short: "Generate commented transformation SQL from an approved mapping set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"mode": mode}
			if keyColumn != "" {
				body["key_column"] = keyColumn
			}
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodPost, mappingPath(opts, args[0], "sql"), nil, body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "INSERT", "statement mode: INSERT or MERGE")
	cmd.Flags().StringVar(&keyColumn, "key-column", "", "match key for MERGE mode")
	return cmd
}
