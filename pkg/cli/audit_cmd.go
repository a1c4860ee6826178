package cli

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newAuditCmd(opts *rootOptions) *cobra.Command {
	var (
		eventType   string
		action      string
		riskLevel   string
		since       string
		maxResults  int
		pageToken   string
		allSessions bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit trail",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if !allSessions {
				q.Set("session_id", opts.session)
			}
			if eventType != "" {
				q.Set("event_type", eventType)
			}
			if action != "" {
				q.Set("action", action)
			}
			if riskLevel != "" {
				q.Set("risk_level", riskLevel)
			}
			if since != "" {
				q.Set("since", since)
			}
			if maxResults > 0 {
				q.Set("max_results", strconv.Itoa(maxResults))
			}
			if pageToken != "" {
				q.Set("page_token", pageToken)
			}

			var out interface{}
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/v1/audit", q, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&eventType, "event-type", "", "filter by event type")
	cmd.Flags().StringVar(&action, "action", "", "filter by action")
	cmd.Flags().StringVar(&riskLevel, "risk-level", "", "filter by risk level (LOW, MEDIUM, HIGH, CRITICAL)")
	cmd.Flags().StringVar(&since, "since", "", "only events at or after this RFC 3339 timestamp")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "page size")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "page token from a previous response")
	cmd.Flags().BoolVar(&allSessions, "all-sessions", false, "do not restrict to the current session")
	return cmd
}
