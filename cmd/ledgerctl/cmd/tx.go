package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	ledgerapi "github.com/example/abacus/api/ledger"
)

func newTxCommand(o *options) *cobra.Command {
	tx := &cobra.Command{
		Use:   "tx",
		Short: "Post, list and delete transactions through the ledger server",
	}
	tx.AddCommand(newTxListCommand(o), newTxPostCommand(o), newTxDeleteCommand(o))
	return tx
}

func newTxListCommand(o *options) *cobra.Command {
	var from, to string

	list := &cobra.Command{
		Use:   "list ACCOUNT",
		Short: "List an account's transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			txs, err := c.ListTransactions(cmd.Context(), args[0], from, to)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tPAYEE\tAMOUNT\tR\tCATEGORY/ACCOUNT")
			for _, t := range txs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Payee, t.Amount, t.Reconciled, t.CatOrAcctID)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&from, "from", "", "first date to include (YYYY-MM-DD)")
	list.Flags().StringVar(&to, "to", "", "last date to include (YYYY-MM-DD)")
	return list
}

func newTxPostCommand(o *options) *cobra.Command {
	var date, amount, payee, memo, kind, reconciled, target string

	post := &cobra.Command{
		Use:   "post ACCOUNT",
		Short: "Post a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := ledgerapi.TransactionFields{Date: &date, Amount: &amount}
			flags := cmd.Flags()
			if flags.Changed("payee") {
				fields.Payee = &payee
			}
			if flags.Changed("memo") {
				fields.Memo = &memo
			}
			if flags.Changed("type") {
				fields.Type = &kind
			}
			if flags.Changed("reconciled") {
				fields.Reconciled = &reconciled
			}
			if flags.Changed("target") {
				fields.CatOrAcctID = &target
			}

			c, err := o.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.PostTransaction(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", res.Transaction.ID)
			return printBalances(cmd.OutOrStdout(), res.Accounts)
		},
	}
	post.Flags().StringVar(&date, "date", "", "transaction date (YYYY-MM-DD)")
	post.Flags().StringVar(&amount, "amount", "", "signed amount, negative for money leaving the account")
	post.Flags().StringVar(&payee, "payee", "", "payee")
	post.Flags().StringVar(&memo, "memo", "", "memo")
	post.Flags().StringVar(&kind, "type", "", "transaction type")
	post.Flags().StringVar(&reconciled, "reconciled", "", `reconciliation code: "", "C" or "R"`)
	post.Flags().StringVar(&target, "target", "", "category, or acct_... id for a transfer")
	_ = post.MarkFlagRequired("date")
	_ = post.MarkFlagRequired("amount")
	return post
}

func newTxDeleteCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ACCOUNT ID",
		Short: "Delete a transaction and, for a transfer, its mirror",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.DeleteTransaction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
			return printBalances(cmd.OutOrStdout(), res.Accounts)
		},
	}
}

func printBalances(out io.Writer, accounts []*ledgerapi.AccountBalances) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tUNCLEARED\tCLEARED\tRECONCILED")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.AccountID, a.Uncleared, a.Cleared, a.Reconciled)
	}
	return w.Flush()
}
