// Package monconfig holds the agent configuration: which processes to
// monitor, how often, and which optional features to enable.
package monconfig

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// SelfPID is the pid list token that resolves to the agent's own process id.
const SelfPID = "$$"

var (
	DefaultPollInterval = 30 * time.Second
	DefaultAddress      = ""
)

type Config struct {
	ID           string        `env:"MONITOR_ID"`
	CommandLine  string        `env:"COMMANDLINE"`
	Pid          string        `env:"PID"`
	PollInterval time.Duration `env:"POLL_INTERVAL"`
	Address      string        `env:"ADDRESS"`
	HostMetrics  bool          `env:"HOST_METRICS"`
	NetReaders   bool          `env:"NET_READERS"`

	// Resolved by Validate from CommandLine and Pid.
	Pattern *regexp.Regexp `env:"-"`
	Pids    []int          `env:"-"`
}

// InitConfig parses the environment, then the flags, then re-applies the
// environment so it always wins, and validates the result. A misconfigured
// instance fails fast here.
func InitConfig() Config {
	var cfg Config

	err := env.Parse(&cfg)
	if err != nil {
		log.Fatal(err)
	}

	flag.StringVar(&cfg.ID, "id", cfg.ID, "Monitor instance id, reported as the app dimension of every metric.")
	flag.StringVar(&cfg.CommandLine, "commandline", cfg.CommandLine, "Regular expression matched against full process command lines.")
	flag.StringVar(&cfg.Pid, "pid", cfg.Pid, "Comma-separated pids to monitor; $$ means the agent itself. Ignored when -commandline is set.")
	flag.DurationVar(&cfg.PollInterval, "p", DefaultPollInterval, "Frequency of metric collection.")
	flag.StringVar(&cfg.Address, "a", DefaultAddress, "Debug server address and port, empty disables the server.")
	flag.BoolVar(&cfg.HostMetrics, "host", cfg.HostMetrics, "Also report host cpu and memory gauges.")
	flag.BoolVar(&cfg.NetReaders, "net", cfg.NetReaders, "Enable the per-process network readers.")
	flag.Parse()

	if envID := os.Getenv("MONITOR_ID"); envID != "" {
		cfg.ID = envID
	}
	if envCmd := os.Getenv("COMMANDLINE"); envCmd != "" {
		cfg.CommandLine = envCmd
	}
	if envPid := os.Getenv("PID"); envPid != "" {
		cfg.Pid = envPid
	}
	if pollInt := os.Getenv("POLL_INTERVAL"); pollInt != "" {
		cfg.PollInterval, err = time.ParseDuration(pollInt)
		if err != nil {
			cfg.PollInterval = DefaultPollInterval
		}
	}
	if envAddr := os.Getenv("ADDRESS"); envAddr != "" {
		cfg.Address = envAddr
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	return cfg
}

// Validate checks the match criteria and resolves them into Pattern or Pids.
// When both criteria are set the commandline matcher wins and the pid list
// is ignored.
func (c *Config) Validate() error {
	if c.ID == "" {
		return errors.New("id is a required field")
	}
	if c.CommandLine == "" && c.Pid == "" {
		return errors.New("at least one of the following fields must be provided: commandline or pid")
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.CommandLine != "" {
		re, err := regexp.Compile(c.CommandLine)
		if err != nil {
			return fmt.Errorf("bad commandline pattern: %w", err)
		}
		c.Pattern = re
		return nil
	}

	c.Pids = c.Pids[:0]
	for _, part := range strings.Split(c.Pid, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == SelfPID {
			c.Pids = append(c.Pids, os.Getpid())
			continue
		}
		pid, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("bad pid %q: %w", part, err)
		}
		c.Pids = append(c.Pids, pid)
	}
	if len(c.Pids) == 0 {
		return errors.New("pid list is empty")
	}
	return nil
}
