// Package cmd provides the ledgerctl commands.
package cmd

import (
	"context"
	"crypto/tls"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/abacus/internal/app"
	"github.com/example/abacus/internal/config"
	"github.com/example/abacus/internal/rpc"
	"github.com/example/abacus/internal/security"
)

type options struct {
	envFile  string
	debug    bool
	grpcAddr string

	cfg *config.Config
}

// NewRootCommand builds the ledgerctl command tree.
func NewRootCommand() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate an abacus ledger",
		Long: `ledgerctl manages the accounts of an abacus ledger and talks to a
running ledger server for transactions and consistency checks.

Store and server settings come from the same environment and .env file the
servers read (LEDGER_STORE, DATABASE_URL, SQLITE_PATH, GRPC_ADDR, ...).

Example:
  ledgerctl migrate
  ledgerctl accounts create "Checking" --type bank
  ledgerctl tx post acct_checking --date 2024-03-01 --amount -52.09 --target groceries
  ledgerctl verify`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if o.debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			var files []string
			if o.envFile != "" {
				files = append(files, o.envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			if o.grpcAddr != "" {
				cfg.GRPCAddr = o.grpcAddr
			}
			o.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&o.envFile, "env-file", "", "env file to load (default is .env when present)")
	root.PersistentFlags().BoolVar(&o.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&o.grpcAddr, "grpc-addr", "", "ledger server address (default GRPC_ADDR)")

	root.AddCommand(
		newMigrateCommand(o),
		newAccountsCommand(o),
		newTxCommand(o),
		newVerifyCommand(o),
		newAuditCommand(o),
	)
	return root
}

// Execute runs ledgerctl with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *options) openLedger(ctx context.Context) (*app.Ledger, error) {
	return app.Open(ctx, o.cfg, slog.Default())
}

func (o *options) dial(ctx context.Context) (*rpc.Client, error) {
	var tlsCfg *tls.Config
	if o.cfg.TLSEnabled() {
		if err := security.VerifyTLSFiles(o.cfg.TLSCert, o.cfg.TLSKey, o.cfg.TLSCA); err != nil {
			return nil, err
		}
		var err error
		tlsCfg, err = security.LoadClientTLSConfig(security.TLSConfig{
			CertFile: o.cfg.TLSCert,
			KeyFile:  o.cfg.TLSKey,
			CAFile:   o.cfg.TLSCA,
		})
		if err != nil {
			return nil, err
		}
	}
	slog.Debug("dialing ledger server", "addr", o.cfg.GRPCAddr, "tls", tlsCfg != nil)
	return rpc.Dial(ctx, o.cfg.GRPCAddr, tlsCfg)
}
