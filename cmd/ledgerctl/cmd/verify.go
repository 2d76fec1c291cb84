package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/abacus/internal/ledger"
)

var errInconsistent = errors.New("ledger is inconsistent")

func newVerifyCommand(o *options) *cobra.Command {
	var local bool

	verify := &cobra.Command{
		Use:   "verify [ACCOUNT]",
		Short: "Check stored balances and transfer mirrors",
		Long: `verify replays every account's log to check its stored balances and
checks that each transfer has a matching mirror. It asks the ledger server
unless --local is given, in which case the configured store is read directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var accountID string
			if len(args) == 1 {
				accountID = args[0]
			}
			if local {
				return verifyLocal(cmd, o, accountID)
			}

			c, err := o.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Verify(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			for _, r := range resp.Results {
				printResult(cmd, r.IsValid, r.ValidationType, r.AccountID, r.Message)
			}
			if !resp.Valid {
				return errInconsistent
			}
			return nil
		},
	}
	verify.Flags().BoolVar(&local, "local", false, "read the store directly instead of asking the server")
	return verify
}

func verifyLocal(cmd *cobra.Command, o *options, accountID string) error {
	l, err := o.openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer l.Close()

	v := ledger.NewValidator(l.Service)
	var results []*ledger.ValidationResult
	if accountID == "" {
		if results, err = v.ComprehensiveValidation(cmd.Context()); err != nil {
			return err
		}
	} else {
		if _, err := l.Service.GetAccount(cmd.Context(), accountID); err != nil {
			return err
		}
		results = append(results, v.ValidateAccountBalanceConsistency(cmd.Context(), accountID))
		results = append(results, v.ValidateTransferSymmetry(cmd.Context(), accountID)...)
	}

	valid := true
	for _, r := range results {
		printResult(cmd, r.IsValid, r.ValidationType, r.AccountID, r.Message)
		valid = valid && r.IsValid
	}
	if !valid {
		return errInconsistent
	}
	return nil
}

func printResult(cmd *cobra.Command, ok bool, kind, accountID, msg string) {
	mark := "ok  "
	if !ok {
		mark = "FAIL"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %-24s %s\n", mark, kind, accountID, msg)
}
