package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

func newCRMCmd(root *rootOptions) *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "crm <question>",
		Short: "Ask the CRM assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.CRMQueryRequest{AgentID: agentID, Question: strings.Join(args, " ")}
			resp, err := newAPIClient(root.server).post(cmd.Context(), "/api/crm", req)
			if err != nil {
				return err
			}
			var res domain.CRMQueryResponse
			if err := decode(resp, &res); err != nil {
				return err
			}
			if root.output == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			return nil
		},
	}
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "CRM agent id (default: first CRM agent)")
	return cmd
}

func newHealthCmd(root *rootOptions) *cobra.Command {
	var target, username, password string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a CRM endpoint",
		Long: `Probe a CRM endpoint through the gateway. Without --url the default CRM
agent's endpoint and credentials are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if target != "" {
				q.Set("url", target)
			}
			if username != "" {
				q.Set("username", username)
			}
			if password != "" {
				q.Set("password", password)
			}
			path := "/api/health/crm"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			resp, err := newAPIClient(root.server).get(cmd.Context(), path)
			if err != nil {
				return err
			}
			var report domain.HealthReport
			if err := decode(resp, &report); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if root.output == "json" {
				return printJSON(out, report)
			}
			fmt.Fprintf(out, "%s: %s\n", report.Status, report.Summary)
			fmt.Fprintf(out, "  network:      %s %s\n", report.Checks.Network.Status, report.Checks.Network.Message)
			fmt.Fprintf(out, "  api_endpoint: %s %s\n", report.Checks.APIEndpoint.Status, report.Checks.APIEndpoint.Message)
			fmt.Fprintf(out, "  auth:         %s %s\n", report.Checks.Auth.Status, report.Checks.Auth.Message)
			if report.Status == domain.CheckError {
				return fmt.Errorf("health check failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "CRM endpoint URL")
	cmd.Flags().StringVar(&username, "username", "", "Basic auth username")
	cmd.Flags().StringVar(&password, "password", "", "Basic auth password")
	return cmd
}

func newAgentsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List configured agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newAPIClient(root.server).get(cmd.Context(), "/api/agents")
			if err != nil {
				return err
			}
			var res struct {
				Agents []domain.AgentConfig `json:"agents"`
			}
			if err := decode(resp, &res); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if root.output == "json" {
				return printJSON(out, res)
			}
			for _, a := range res.Agents {
				fmt.Fprintf(out, "%-24s %-5s %s\n", a.ID, a.Kind, a.Name)
			}
			return nil
		},
	}
}
