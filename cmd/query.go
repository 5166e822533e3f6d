// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryLanguage string
	queryFormat   string
)

var queryFormats = map[string]bool{"table": true, "json": true, "csv": true}

// queryCmd runs one statement and prints the gateway's formatted result.
var queryCmd = &cobra.Command{
	Use:   "query <statement>",
	Short: "Run a SQL or PPL statement",
	Long: `The query command connects like 'connect' does, runs one statement and prints
the formatted result exactly as the SQL library returns it.

  opensearchsql query -l sql "SELECT * FROM logs LIMIT 5"
  opensearchsql query -f json "source=logs | where status = 500 | head 10"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		statement := strings.TrimSpace(strings.Join(args, " "))
		if statement == "" {
			return fmt.Errorf("query statement is empty")
		}

		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close(ctx)

		lang := strings.ToLower(firstNonEmpty(queryLanguage, a.cfg.Query.Language))
		if lang != "sql" && lang != "ppl" {
			return fmt.Errorf("unsupported language %q: use sql or ppl", lang)
		}
		format := strings.ToLower(firstNonEmpty(queryFormat, a.cfg.Query.Format))
		if !queryFormats[format] {
			return fmt.Errorf("unsupported format %q: use table, json or csv", format)
		}

		if err := a.connect(ctx); err != nil {
			return err
		}
		out := a.sess.Query(ctx, statement, lang == "ppl", format)
		if strings.HasPrefix(out, "Error:") {
			return &userError{title: "Query failed", detail: strings.TrimSpace(strings.TrimPrefix(out, "Error:"))}
		}
		fmt.Println(out)
		return nil
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryLanguage, "language", "l", "", "Query language: sql or ppl (default from config)")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "", "Output format: table, json or csv (default from config)")
}
