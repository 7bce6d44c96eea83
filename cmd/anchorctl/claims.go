package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func claimCommand() *cobra.Command {
	var multi bool
	cmd := &cobra.Command{
		Use:   "claim <credId>",
		Short: "Get the active claim ticket for a credential, issuing one if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := newClient().EnsureClaim(ctx, args[0], !multi)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) {
				state := "issued"
				if res.Reused {
					state = "reused"
				}
				fmt.Fprintf(w, "Claim:   %s (%s)\n", res.ClaimID, state)
				fmt.Fprintf(w, "URL:     %s\n", res.ClaimURL)
				fmt.Fprintf(w, "Expires: %s\n", res.ExpiresAt.Format(time.RFC3339))
			})
		},
	}
	cmd.Flags().BoolVar(&multi, "multi", false, "always issue a new ticket instead of reusing the active one")
	return cmd
}

func framesCommand() *cobra.Command {
	var (
		out  string
		size int
	)
	cmd := &cobra.Command{
		Use:   "frames <claimId>",
		Short: "Download the animated QR frames of a claim as PNG files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimID := args[0]
			c := newClient()
			ctx, cancel := requestContext(cmd)
			defer cancel()
			n, err := c.FramesCount(ctx, claimID)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(4)
			for i := range n {
				g.Go(func() error {
					img, err := c.Frame(gctx, claimID, i, size)
					if err != nil {
						return fmt.Errorf("frame %d: %w", i, err)
					}
					return os.WriteFile(filepath.Join(out, fmt.Sprintf("%s-%03d.png", claimID, i)), img, 0o644)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "directory for the PNG files")
	cmd.Flags().IntVar(&size, "size", 0, "frame size in pixels (0 uses the server default)")
	return cmd
}

func redeemCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <token>",
		Short: "Redeem a claim token as the holder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := newClient().Redeem(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "Redeemed %s at %s\n", res.ClaimID, res.ClaimedAt.Format(time.RFC3339))
				printCredential(w, &res.Credential)
			})
		},
	}
}
