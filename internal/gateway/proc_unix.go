// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !windows

package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the gateway in its own process group so killTree
// also reaches the JVM children of a wrapper script.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killTree(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !stderrors.Is(err, syscall.ESRCH) {
		if kerr := cmd.Process.Kill(); kerr != nil && !stderrors.Is(kerr, os.ErrProcessDone) {
			return fmt.Errorf("kill gateway process %d: %w", pid, kerr)
		}
	}
	return nil
}

// killListeners SIGKILLs every process listening on port, found with lsof.
func killListeners(ctx context.Context, port int) error {
	out, err := exec.CommandContext(ctx, "lsof", "-t", "-i", fmt.Sprintf("TCP:%d", port), "-sTCP:LISTEN").Output()
	if err != nil {
		// lsof exits 1 with no output when nothing matches.
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) && len(out) == 0 {
			return nil
		}
		return fmt.Errorf("lsof: %w", err)
	}
	for _, pid := range parsePIDs(string(out), os.Getpid()) {
		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !stderrors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("kill pid %d: %w", pid, err)
		}
	}
	return nil
}
