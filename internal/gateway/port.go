// Copyright (c) 2025 OpenSearch SQL CLI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"net"
	"strconv"
	"strings"
	"time"
)

const probeTimeout = time.Second

// portInUse reports whether something accepts TCP connections on localhost:port.
func portInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)), probeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// parsePIDs extracts positive, unique pids from whitespace separated output.
func parsePIDs(out string, self int) []int {
	seen := make(map[int]bool)
	var pids []int
	for _, field := range strings.Fields(out) {
		pid, err := strconv.Atoi(field)
		if err != nil || pid <= 0 || pid == self || seen[pid] {
			continue
		}
		seen[pid] = true
		pids = append(pids, pid)
	}
	return pids
}
