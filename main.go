// Package main is the entry point for the OpenSearch SQL CLI.
package main

import (
	"opensearchsql/cli/cmd"
)

func main() {
	cmd.Execute()
}
