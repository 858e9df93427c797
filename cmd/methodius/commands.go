package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"methodius/cmd/internal/app"
	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/auth/storage"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:   "methodius",
		Short: "Company-management console",
		Long:  "methodius serves the admin console over the company backend and keeps the operator session.",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if flags.configFile != "" {
				return os.Setenv(app.ConfigFileEnv, flags.configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "YAML config overlay (env: "+app.ConfigFileEnv+")")

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newLogoutCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			log, closeLog := app.NewLogger(cfg)
			defer func() { _ = closeLog() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				log.Error("server.init.fail", "err", err)
				return err
			}
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env: METHODIUS_HTTP_ADDR)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.LoadConfig(); err != nil {
				return err
			}
			cfg, err := storage.LoadConfigFromEnv()
			if err != nil {
				return err
			}
			st, err := storage.Open(cfg)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			err = clearCredentials(st)
			if cerr := st.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
			return nil
		},
	}
}

func clearCredentials(st storage.Backend) error {
	return errors.Join(
		st.Delete(session.KeyToken),
		st.Delete(session.KeyAccountID),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "methodius %s (commit: %s)\n", version, commit)
		},
	}
}
