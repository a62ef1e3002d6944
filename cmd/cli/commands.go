package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	baseURL string
	timeout time.Duration
	asJSON  bool
}

func (o *rootOptions) client() *apiClient {
	return newAPIClient(o.baseURL, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "expenseledger-cli",
		Short:         "Expense ledger CLI tool",
		Long:          `A command line interface for interacting with the expense ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the expense ledger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(walletsCmd(opts), ledgerCmd(opts), statsCmd(opts))
	return rootCmd
}

func walletsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "Wallet operations",
	}

	var uid string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the wallets of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().listWallets(cmd.Context(), uid)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tAMOUNT\tINCOME\tEXPENSE")
			for _, w := range resp.Wallets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", w.ID, truncate(w.Name, 24), w.Amount, w.TotalIncome, w.TotalExpense)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&uid, "uid", "", "Owner user ID")
	_ = listCmd.MarkFlagRequired("uid")

	purgeCmd := &cobra.Command{
		Use:   "purge WALLET_ID",
		Short: "Remove leftover transactions of a deleted wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().purgeWallet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d transactions of wallet %s\n", resp.Removed, resp.WalletID)
			return nil
		},
	}

	cmd.AddCommand(listCmd, purgeCmd)
	return cmd
}

func ledgerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	var uid string
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check that every wallet of a user matches its transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := opts.client().reconcile(cmd.Context(), uid)
			if err != nil {
				return err
			}
			if opts.asJSON {
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reconciled %d/%d wallets\n", report.ReconciledWallets, report.TotalWallets)
				for _, d := range report.Discrepancies {
					fmt.Fprintf(out, "  %s: recorded %s, calculated %s (difference %s)\n",
						d.WalletID, d.Recorded.Amount, d.Calculated.Amount, d.Difference)
				}
			}

			if n := len(report.Discrepancies); n > 0 {
				return fmt.Errorf("reconciliation FAILED: %d wallets out of sync", n)
			}
			return nil
		},
	}
	reconcileCmd.Flags().StringVar(&uid, "uid", "", "Owner user ID")
	_ = reconcileCmd.MarkFlagRequired("uid")

	cmd.AddCommand(reconcileCmd)
	return cmd
}

func statsCmd(opts *rootOptions) *cobra.Command {
	var uid, period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show income and expense totals per period bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().stats(cmd.Context(), uid, period)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BUCKET\tINCOME\tEXPENSE")
			for _, b := range resp.Series {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Label, b.Income, b.Expense)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "Owner user ID")
	cmd.Flags().StringVar(&period, "period", "week", "Bucketing period: week, month or year")
	_ = cmd.MarkFlagRequired("uid")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
