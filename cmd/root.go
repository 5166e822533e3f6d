// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the OpenSearch SQL CLI.
// It wires configuration, the local SQL library gateway and the connection
// session behind cobra subcommands, and renders results and failures with
// pterm.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"opensearchsql/cli/internal/config"
)

var (
	showVersion  bool
	flagEndpoint string
	flagUser     string
	flagInsecure bool
	flagAWSAuth  bool
	flagVerbose  bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "opensearchsql",
	Short: "Query OpenSearch with SQL and PPL",
	Long: `opensearchsql runs SQL and PPL queries against an OpenSearch cluster through a
local SQL library gateway. Clusters are reached with basic authentication or with
AWS SigV4 signed requests (--aws-auth).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			cfg, err := config.Load()
			gw := strings.Join(cfg.Gateway.Command, " ")
			if err != nil {
				gw = "unknown (" + err.Error() + ")"
			}
			fmt.Printf("opensearchsql %s\ngateway %s\n", Version, gw)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application. An interrupt cancels the command context
// so a running gateway is shut down before exit.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version and gateway command")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagEndpoint, "endpoint", "e", "", "Cluster endpoint [http|https://]host[:port]")
	pf.StringVarP(&flagUser, "user", "u", "", "Basic auth credentials user[:password]")
	pf.BoolVarP(&flagInsecure, "insecure", "k", false, "Skip TLS certificate verification")
	pf.BoolVar(&flagAWSAuth, "aws-auth", false, "Sign requests with AWS SigV4 credentials")
	pf.BoolVar(&flagVerbose, "verbose", false, "Write debug diagnostics to the log file")
}
