// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build windows

package gateway

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

func setProcessGroup(cmd *exec.Cmd) {}

func killTree(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := strconv.Itoa(cmd.Process.Pid)
	if err := exec.Command("taskkill", "/F", "/T", "/PID", pid).Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

// killListeners finds listeners on port with netstat and ends them with taskkill.
func killListeners(ctx context.Context, port int) error {
	out, err := exec.CommandContext(ctx, "netstat", "-ano", "-p", "TCP").Output()
	if err != nil {
		return fmt.Errorf("netstat: %w", err)
	}
	suffix := ":" + strconv.Itoa(port)
	var pids strings.Builder
	for _, line := range strings.Split(string(out), "\n") {
		f := strings.Fields(line)
		if len(f) < 5 || !strings.EqualFold(f[3], "LISTENING") || !strings.HasSuffix(f[1], suffix) {
			continue
		}
		pids.WriteString(f[4])
		pids.WriteByte('\n')
	}
	for _, pid := range parsePIDs(pids.String(), os.Getpid()) {
		if err := exec.CommandContext(ctx, "taskkill", "/F", "/PID", strconv.Itoa(pid)).Run(); err != nil {
			return fmt.Errorf("taskkill %d: %w", pid, err)
		}
	}
	return nil
}
