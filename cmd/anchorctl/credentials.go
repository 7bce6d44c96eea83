package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	credmodels "vcanchor/internal/credential/models"
)

func issueCommand() *cobra.Command {
	var (
		templateID string
		subject    string
		expiresIn  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a credential from a template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := credmodels.IssueRequest{TemplateID: templateID}
			if err := json.Unmarshal([]byte(subject), &req.Subject); err != nil {
				return fmt.Errorf("subject must be a JSON object: %w", err)
			}
			if expiresIn > 0 {
				at := time.Now().Add(expiresIn).UTC()
				req.ExpiresAt = &at
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			cred, err := newClient().IssueCredential(ctx, req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), cred, func(w io.Writer) { printCredential(w, cred) })
		},
	}
	cmd.Flags().StringVar(&templateID, "template", "", "credential template id")
	cmd.Flags().StringVar(&subject, "subject", "{}", "credential subject as a JSON object")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "validity period (0 never expires)")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <credId>",
		Short: "Show a credential and its anchoring state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			cred, err := newClient().GetCredential(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), cred, func(w io.Writer) { printCredential(w, cred) })
		},
	}
}

func revokeCommand() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke <credId>",
		Short: "Revoke a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			cred, err := newClient().RevokeCredential(ctx, args[0], reason)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), cred, func(w io.Writer) { printCredential(w, cred) })
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "revocation reason recorded in the audit trail")
	return cmd
}

func printCredential(w io.Writer, c *credmodels.CredentialResponse) {
	fmt.Fprintf(w, "Credential:  %s\n", c.ID)
	fmt.Fprintf(w, "Template:    %s\n", c.TemplateID)
	fmt.Fprintf(w, "Issued:      %s\n", c.IssuedAt.Format(time.RFC3339))
	if c.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:     %s\n", c.ExpiresAt.Format(time.RFC3339))
	}
	if c.RevokedAt != nil {
		fmt.Fprintf(w, "Revoked:     %s\n", c.RevokedAt.Format(time.RFC3339))
	}
	if c.ClaimedAt != nil {
		fmt.Fprintf(w, "Claimed:     %s\n", c.ClaimedAt.Format(time.RFC3339))
	}
	printAnchoring(w, c.Anchoring)
}
