package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/abacus/pkg/audit"
)

func newAuditCommand(o *options) *cobra.Command {
	a := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit chain",
	}
	a.AddCommand(&cobra.Command{
		Use:   "verify [FILE]",
		Short: "Check that a persisted audit chain is unbroken",
		Long:  "verify checks FILE, or AUDIT_LOG_PATH when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := o.cfg.AuditLogPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no audit log given and AUDIT_LOG_PATH is not set")
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := audit.Verify(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries verified\n", path, n)
			return nil
		},
	})
	return a
}
