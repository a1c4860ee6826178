package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <dataset>",
		Short: "Capture the schema of a dataset into the session snapshot store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap interface{}
			path := fmt.Sprintf("/v1/sessions/%s/snapshots/%s", url.PathEscape(opts.session), url.PathEscape(args[0]))
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, nil, nil, &snap); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
}

func newTablesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables <dataset> [table]",
		Short: "Show the captured schema of a dataset, or one table's columns",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1/sessions/%s/snapshots/%s", url.PathEscape(opts.session), url.PathEscape(args[0]))
			if len(args) == 2 {
				path += "/tables/" + url.PathEscape(args[1])
			}
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newSampleCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sample <dataset> <table>",
		Short: "Read a bounded row sample from a captured table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1/sessions/%s/tables/%s/%s/sample",
				url.PathEscape(opts.session), url.PathEscape(args[0]), url.PathEscape(args[1]))
			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, q, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum rows to read (server default 10, cap 100)")
	return cmd
}
