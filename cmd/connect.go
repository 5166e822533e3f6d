// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var saveOnConnect bool

// connectCmd starts the SQL library, verifies the cluster and initializes the
// gateway connection, then reports what it connected to.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Verify the cluster connection through the SQL library",
	Long: `The connect command starts the local SQL library gateway, verifies that the
cluster answers with the given credentials and initializes the gateway connection.

Basic authentication:   opensearchsql connect -e https://localhost:9200 -u admin -k
AWS SigV4:              opensearchsql connect -e https://search-x.us-west-2.es.amazonaws.com --aws-auth

With --save the basic-auth password is stored in the OS keychain and reused
whenever only a user name is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close(ctx)

		if err := a.connect(ctx); err != nil {
			return err
		}

		info := a.sess.Info()
		body := fmt.Sprintf("URL:      %s\nVersion:  %s\nUser:     %s", info.URL, info.Version, displayUser(info.Username))
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("OpenSearch Connection")).
			WithTopPadding(1).WithBottomPadding(1).WithLeftPadding(1).WithRightPadding(1).
			Println(body)

		if saveOnConnect && !info.AWS {
			if err := saveCredentials(flagUser, flagEndpoint, a.cfg); err != nil {
				pterm.Warning.Println("Connection verified but the password was not saved: " + err.Error())
				return nil
			}
		}
		pterm.Success.Println("Connection verified")
		return nil
	},
}

func displayUser(u string) string {
	if u == "" {
		return "(none)"
	}
	return u
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().BoolVar(&saveOnConnect, "save", false, "Save the basic-auth password in the OS keychain")
}
