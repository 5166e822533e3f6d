// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"opensearchsql/cli/internal/config"
	"opensearchsql/cli/internal/endpoint"
	"opensearchsql/cli/internal/keychain"
	"opensearchsql/cli/internal/terminal"
)

var clearAll bool

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage basic-auth passwords saved in the OS keychain",
}

var credentialsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the password for -u user on -e endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := saveCredentials(flagUser, flagEndpoint, cfg); err != nil {
			return err
		}
		pterm.Success.Println("Password saved in the OS keychain")
		return nil
	},
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the saved password for -u user on -e endpoint, or all with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return &userError{title: "Secure storage is not available on this system", detail: err.Error()}
		}
		if clearAll {
			if err := km.ClearAll(); err != nil {
				return err
			}
			pterm.Success.Println("All saved passwords have been removed")
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		user, _, _ := endpoint.SplitCredentials(firstNonEmpty(flagUser, cfg.Cluster.Username))
		if user == "" {
			return errors.New("a user is required: pass -u user or --all")
		}
		account, err := accountFor(user, flagEndpoint, cfg)
		if err != nil {
			return err
		}
		if err := km.DeletePassword(account); err != nil {
			return err
		}
		pterm.Success.Printfln("Removed saved password for %s", account)
		return nil
	},
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with a saved password",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return &userError{title: "Secure storage is not available on this system", detail: err.Error()}
		}
		accounts, err := km.Accounts()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			pterm.Info.Println("No saved passwords")
			return nil
		}
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Saved Accounts")).
			WithTopPadding(1).WithBottomPadding(1).WithLeftPadding(1).WithRightPadding(1).
			Println(strings.Join(accounts, "\n"))
		return nil
	},
}

// resolveCredentials turns the -u value into "user:password". A bare user
// name is completed from the keychain, then by prompting.
func resolveCredentials(user, rawEndpoint string, cfg config.Config) (string, error) {
	user = firstNonEmpty(user, cfg.Cluster.Username)
	if user == "" {
		return "", nil
	}
	if _, _, ok := endpoint.SplitCredentials(user); ok {
		return user, nil
	}
	account, err := accountFor(user, rawEndpoint, cfg)
	if err != nil {
		return "", err
	}
	if km, err := keychain.GetManager(); err == nil {
		if pw, err := km.LoadPassword(account); err == nil {
			return user + ":" + pw, nil
		}
	}
	pw, err := promptPassword(fmt.Sprintf("Password for %s: ", account))
	if err != nil {
		return "", err
	}
	return user + ":" + pw, nil
}

// saveCredentials stores the password for the -u user on the endpoint,
// prompting when -u carries no password.
func saveCredentials(userFlag, rawEndpoint string, cfg config.Config) error {
	user, password, ok := endpoint.SplitCredentials(firstNonEmpty(userFlag, cfg.Cluster.Username))
	if user == "" {
		return errors.New("a user is required: pass -u user[:password]")
	}
	account, err := accountFor(user, rawEndpoint, cfg)
	if err != nil {
		return err
	}
	if !ok || password == "" {
		if password, err = promptPassword(fmt.Sprintf("Password for %s: ", account)); err != nil {
			return err
		}
	}
	km, err := keychain.GetManager()
	if err != nil {
		return &userError{title: "Secure storage is not available on this system", detail: err.Error()}
	}
	return km.SavePassword(account, password)
}

func accountFor(user, rawEndpoint string, cfg config.Config) (string, error) {
	ep, err := endpoint.Parse(rawEndpoint, clusterDefaults(cfg))
	if err != nil {
		return "", err
	}
	return keychain.Account(user, ep.HostPort()), nil
}

func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password required: pass -u user:password or run 'opensearchsql credentials save'")
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	terminal.ClearPreviousLines(len(prompt))
	if err != nil {
		return "", err
	}
	pw := strings.TrimRight(string(b), "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSaveCmd, credentialsClearCmd, credentialsListCmd)
	credentialsClearCmd.Flags().BoolVar(&clearAll, "all", false, "Remove every saved password")
}
