package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vcanchor/internal/verification/models"
	"vcanchor/internal/verification/poller"
)

func verifyCommand() *cobra.Command {
	var (
		org      string
		contact  string
		purpose  string
		interval time.Duration
		budget   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "verify [credId]",
		Short: "Open a verification session, ask the holder and wait for the result",
		Long: `verify creates a session, sends the consent request to the holder and
polls until the session resolves. Without a credential id the holder picks
the credential when they answer. Ctrl-C stops waiting; the session stays
readable on the server.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var credID string
			if len(args) == 1 {
				credID = args[0]
			}
			c := newClient()
			out := cmd.OutOrStdout()

			ctx, cancel := requestContext(cmd)
			session, err := c.CreateSession(ctx, credID)
			if err == nil {
				session, err = c.BeginSession(ctx, session.SessionID, models.BeginRequest{Org: org, Contact: contact, Purpose: purpose})
			}
			cancel()
			if err != nil {
				return err
			}
			if !globalFlags.json {
				fmt.Fprintf(out, "Session %s waiting for the holder\n", session.SessionID)
			}

			p := poller.New(c,
				poller.WithInterval(interval),
				poller.WithBudget(budget),
				poller.WithOnPending(func(attempt int, elapsed time.Duration) {
					if !globalFlags.json && attempt%5 == 0 {
						fmt.Fprintf(out, "  still pending after %s\n", elapsed.Truncate(time.Second))
					}
				}),
			)
			res, err := p.Wait(cmd.Context(), session.SessionID)
			if err != nil {
				return err
			}
			return render(out, struct {
				SessionID string `json:"session_id"`
				models.Result
			}{session.SessionID, res}, func(w io.Writer) {
				verdict := "INVALID"
				if res.Valid {
					verdict = "VALID"
				}
				fmt.Fprintf(w, "%s (%s)\n", verdict, res.Reason)
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "verifying organisation shown to the holder")
	cmd.Flags().StringVar(&contact, "contact", "", "verifier contact shown to the holder")
	cmd.Flags().StringVar(&purpose, "purpose", "", "why the credential is requested")
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "poll interval")
	cmd.Flags().DurationVar(&budget, "wait", poller.DefaultBudget, "how long to wait for the holder")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("purpose")
	return cmd
}

func presentCommand() *cobra.Command {
	var decline bool
	cmd := &cobra.Command{
		Use:   "present <sessionId> [credId]",
		Short: "Answer a verification request as the holder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var credID string
			if len(args) == 2 {
				credID = args[1]
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			s, err := newClient().Present(ctx, args[0], credID, !decline)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), s, func(w io.Writer) {
				fmt.Fprintf(w, "Session %s %s: valid=%t reason=%s\n", s.SessionID, s.State, s.Result.Valid, s.Result.Reason)
			})
		},
	}
	cmd.Flags().BoolVar(&decline, "decline", false, "decline instead of presenting")
	return cmd
}
