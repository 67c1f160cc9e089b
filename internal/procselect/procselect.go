//go:build linux

// Package procselect resolves the configured match criteria into the set of
// currently live process ids.
package procselect

import (
	"bufio"
	"bytes"
	"errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// Selector finds the processes to monitor, either by matching a pattern
// against the full command lines reported by ps, or by probing an explicit
// pid list for liveness. Selection never fails: any listing problem yields
// an empty set and a logged warning.
type Selector struct {
	pattern *regexp.Regexp
	pids    []int
	list    func() ([]byte, error)
	alive   func(pid int) bool
	log     *zap.SugaredLogger
}

// NewCommandLine selects every process whose command line matches the
// pattern (an unanchored search, not a full match).
func NewCommandLine(pattern *regexp.Regexp, log *zap.SugaredLogger) *Selector {
	return &Selector{pattern: pattern, list: listProcesses, alive: isAlive, log: log}
}

// NewPids selects the given pids, filtered down to the ones still alive.
func NewPids(pids []int, log *zap.SugaredLogger) *Selector {
	return &Selector{pids: pids, list: listProcesses, alive: isAlive, log: log}
}

// Select returns the current set of matching live pids.
func (s *Selector) Select() map[int]struct{} {
	if s.pattern != nil {
		return s.matchCommandLines()
	}

	matched := make(map[int]struct{})
	for _, pid := range s.pids {
		if s.alive(pid) {
			matched[pid] = struct{}{}
		}
	}
	return matched
}

func (s *Selector) matchCommandLines() map[int]struct{} {
	matched := make(map[int]struct{})

	out, err := s.list()
	if err != nil {
		s.log.Warnf("cannot list processes: %v", err)
		return matched
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		sp := strings.Index(line, " ")
		if sp <= 0 {
			continue
		}
		first := line[:sp]
		// ps prints a header line; skip it.
		if strings.EqualFold(first, "pid") {
			continue
		}
		pid, err := strconv.Atoi(first)
		if err != nil {
			continue
		}
		if s.pattern.MatchString(line[sp+1:]) {
			matched[pid] = struct{}{}
		}
	}
	return matched
}

// listProcesses asks ps for every process with its pid and full command line.
func listProcesses() ([]byte, error) {
	return exec.Command("ps", "ax", "-o", "pid,command").Output()
}

// isAlive probes the pid with signal 0, which checks for existence without
// delivering anything. ESRCH means the process is gone; a permission error
// still proves it exists.
func isAlive(pid int) bool {
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}
	return !errors.Is(err, syscall.ESRCH)
}
