package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/abacus/internal/ledger"
)

func newAccountsCommand(o *options) *cobra.Command {
	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "List and create accounts",
	}
	accounts.AddCommand(newAccountsListCommand(o), newAccountsCreateCommand(o))
	return accounts
}

func newAccountsListCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := o.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer l.Close()

			accts, err := l.Service.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tUNCLEARED\tCLEARED\tRECONCILED\t")
			for _, a := range accts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", a.ID, a.Name, a.Type,
					a.Uncleared.StringFixed(2), a.Cleared.StringFixed(2), a.Reconciled.StringFixed(2))
			}
			return w.Flush()
		},
	}
}

func newAccountsCreateCommand(o *options) *cobra.Command {
	var f ledger.AccountFields

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an account with zero balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := o.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer l.Close()

			f.Name = args[0]
			a, err := l.Service.CreateAccount(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", a.ID, a.URI)
			return nil
		},
	}
	create.Flags().StringVar(&f.Type, "type", "", "account type, e.g. bank or credit")
	create.Flags().StringVar(&f.BankName, "bank-name", "", "bank name")
	create.Flags().StringVar(&f.AccountNum, "account-num", "", "account number at the bank")
	create.Flags().BoolVar(&f.BudgetMonitored, "budget-monitored", false, "include the account in budgeting")
	_ = create.MarkFlagRequired("type")
	return create
}
