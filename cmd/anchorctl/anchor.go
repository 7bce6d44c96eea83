package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	anchormodels "vcanchor/internal/anchor/models"
	credmodels "vcanchor/internal/credential/models"
	"vcanchor/pkg/client"
)

func enqueueCommand() *cobra.Command {
	var batch bool
	cmd := &cobra.Command{
		Use:   "enqueue <credId>",
		Short: "Queue a credential for anchoring (now by default, --batch for the next batch)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := credmodels.QueueModeNow
			if batch {
				mode = credmodels.QueueModeBatch
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := newClient().Enqueue(ctx, args[0], mode)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%s queued (%s)\n", res.CredentialID, res.Anchoring.QueueMode)
			})
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "queue for batch minting")
	return cmd
}

func queueCommand() *cobra.Command {
	var (
		mode     string
		approved string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List credentials waiting to be anchored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := client.QueueQuery{Mode: credmodels.QueueMode(mode), Limit: limit}
			switch approved {
			case "":
			case "true", "false":
				v := approved == "true"
				q.Approved = &v
			default:
				return fmt.Errorf("--approved must be true or false")
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := newClient().Queue(ctx, q)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "CREDENTIAL\tTEMPLATE\tSTATE\tQUEUE\tAPPROVED\tREQUESTED")
				for _, e := range res.Entries {
					requested := "-"
					if e.Anchoring.RequestedAt != nil {
						requested = e.Anchoring.RequestedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.CredentialID, e.TemplateID,
						e.Anchoring.State, e.Anchoring.QueueMode, e.Anchoring.ApprovedMode, requested)
				}
				_ = tw.Flush()
				fmt.Fprintf(w, "%d queued\n", res.Count)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "filter by queue mode (now, batch)")
	cmd.Flags().StringVar(&approved, "approved", "", "filter by approval (true, false)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to return")
	return cmd
}

func approveCommand() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "approve <credId>...",
		Short: "Approve queued credentials for single or batch minting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := newClient().Approve(ctx, args, credmodels.ApprovedMode(mode))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "approved: %s\n", strings.Join(res.Approved, ", "))
				printSkipped(w, res.Skipped)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(credmodels.ApprovedModeBatch), "approved mode (single, batch)")
	return cmd
}

func runSingleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run-single <credId>",
		Short: "Anchor one approved credential in its own batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := newClient().RunSingle(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) { printMint(w, res) })
		},
	}
}

func mintCommand() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "mint [credId...]",
		Short: "Mint a batch from the approved queue, or from the given credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			var (
				res *anchormodels.MintResponse
				err error
			)
			if len(args) > 0 {
				res, err = newClient().MintSelected(ctx, args)
			} else {
				res, err = newClient().MintBatch(ctx, anchormodels.MintMode(mode))
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) { printMint(w, res) })
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(anchormodels.MintModeAll), "which approved credentials to mint (now, batch, all)")
	return cmd
}

func batchesCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List anchored batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := newClient().Batches(ctx, limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "BATCH\tMEMBERS\tROOT\tTX\tANCHORED")
				for _, b := range res.Batches {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", b.BatchID, b.MemberCount, b.MerkleRoot, b.TxHash, b.AnchoredAt.Format(time.RFC3339))
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum batches to return")
	return cmd
}

func proofCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "proof <credId>",
		Short: "Print the inclusion proof of an anchored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			res, err := newClient().Proof(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "Batch:  %s (leaf %d)\n", res.BatchID, res.LeafIndex)
				fmt.Fprintf(w, "Leaf:   %s\n", res.Digest)
				for i, step := range res.Path {
					fmt.Fprintf(w, "  %2d %-5s %s\n", i, step.Position, step.Hash)
				}
				fmt.Fprintf(w, "Root:   %s\n", res.MerkleRoot)
				fmt.Fprintf(w, "Tx:     %s (chain %s)\n", res.TxHash, res.ChainID)
			})
		},
	}
}

func printMint(w io.Writer, res *anchormodels.MintResponse) {
	if !res.Minted || res.Batch == nil {
		fmt.Fprintln(w, "nothing minted")
		printSkipped(w, res.Skipped)
		return
	}
	b := res.Batch
	fmt.Fprintf(w, "Batch:    %s\n", b.BatchID)
	fmt.Fprintf(w, "Root:     %s\n", b.MerkleRoot)
	if b.RootCID != "" {
		fmt.Fprintf(w, "Root CID: %s\n", b.RootCID)
	}
	fmt.Fprintf(w, "Tx:       %s (chain %s)\n", b.TxHash, b.ChainID)
	fmt.Fprintf(w, "Members:  %d\n", b.MemberCount)
	printSkipped(w, res.Skipped)
}

func printSkipped(w io.Writer, skipped []anchormodels.SkippedItem) {
	for _, s := range skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.CredentialID, s.Reason)
	}
}

func printAnchoring(w io.Writer, a credmodels.AnchorStateView) {
	fmt.Fprintf(w, "Anchoring: %s", a.State)
	if a.QueueMode != "" && a.QueueMode != credmodels.QueueModeNone {
		fmt.Fprintf(w, " queue=%s", a.QueueMode)
	}
	if a.ApprovedMode != "" && a.ApprovedMode != credmodels.ApprovedModeNone {
		fmt.Fprintf(w, " approved=%s", a.ApprovedMode)
	}
	if a.BatchID != "" {
		fmt.Fprintf(w, " batch=%s", a.BatchID)
	}
	fmt.Fprintln(w)
}
