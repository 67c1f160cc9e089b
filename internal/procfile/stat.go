package procfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tklauser/go-sysconf"
	"go.uber.org/zap"

	"github.com/code-sauce/procmetrics/internal/metrics"
)

// Zero-based offsets into the /proc/<pid>/stat fields that follow the
// "pid (comm) " prefix. The comm value may contain spaces, so the prefix is
// stripped up to the closing paren before splitting.
const (
	statUserTicks   = 11
	statSystemTicks = 12
	statNice        = 16
	statThreads     = 17
	statStartTicks  = 19
)

// statParser converts the single stat line into cpu, uptime, nice and thread
// metrics. It needs the kernel tick rate for the time conversions and the
// machine boot time (read once from the uptime file) for process uptime.
type statParser struct {
	ticksPerSec int64
	bootTimeMS  int64
	uptimePath  string
	now         func() time.Time
}

func newStatParser() *statParser {
	return &statParser{
		ticksPerSec: clockTicks(),
		uptimePath:  "/proc/uptime",
		now:         time.Now,
	}
}

// NewStatReader reads /proc/<pid>/stat and reports app.cpu{user,system},
// app.uptime, app.nice and app.threads.
func NewStatReader(pid int, log *zap.SugaredLogger) Gatherer {
	p := newStatParser()
	return newFileReader(pid, KindStat, "/proc/%d/stat", p.parse, log)
}

// clockTicks returns the kernel's reported ticks per second (SC_CLK_TCK),
// falling back to the common default of 100 if sysconf is unavailable.
func clockTicks() int64 {
	hz, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || hz <= 0 {
		return 100
	}
	return hz
}

// timeCS converts kernel jiffies to centiseconds.
func (p *statParser) timeCS(jiffies int64) int64 {
	return jiffies * 100 / p.ticksPerSec
}

// timeMS converts kernel jiffies to milliseconds.
func (p *statParser) timeMS(jiffies int64) int64 {
	return jiffies * 1000 / p.ticksPerSec
}

// uptimeMS returns how long the machine has been up, in milliseconds. The
// boot time is computed once from the first token of the uptime file.
func (p *statParser) uptimeMS() (int64, error) {
	if p.bootTimeMS == 0 {
		b, err := os.ReadFile(p.uptimePath)
		if err != nil {
			return 0, err
		}
		fields := strings.Fields(string(b))
		if len(fields) == 0 {
			return 0, fmt.Errorf("unexpected format of %s", p.uptimePath)
		}
		secs, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, fmt.Errorf("unexpected format of %s: %w", p.uptimePath, err)
		}
		p.bootTimeMS = p.now().Unix()*1000 - int64(secs*1000.0)
	}
	return p.now().Unix()*1000 - p.bootTimeMS, nil
}

func (p *statParser) parse(r io.Reader, s metrics.Sample) error {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return fmt.Errorf("stat file is empty")
	}
	line := sc.Text()

	// Chop off the "pid (comm) " prefix; comm is the only field that can
	// contain spaces.
	i := strings.Index(line, ") ")
	if i < 0 {
		return fmt.Errorf("malformed stat line %q", line)
	}
	fields := strings.Fields(line[i+2:])
	if len(fields) <= statStartTicks {
		return fmt.Errorf("stat line has %d fields, want more than %d", len(fields), statStartTicks)
	}

	utime, err := strconv.ParseInt(fields[statUserTicks], 10, 64)
	if err != nil {
		return fmt.Errorf("parse utime: %w", err)
	}
	stime, err := strconv.ParseInt(fields[statSystemTicks], 10, 64)
	if err != nil {
		return fmt.Errorf("parse stime: %w", err)
	}
	nice, err := strconv.ParseFloat(fields[statNice], 64)
	if err != nil {
		return fmt.Errorf("parse nice: %w", err)
	}
	threads, err := strconv.ParseInt(fields[statThreads], 10, 64)
	if err != nil {
		return fmt.Errorf("parse threads: %w", err)
	}
	start, err := strconv.ParseInt(fields[statStartTicks], 10, 64)
	if err != nil {
		return fmt.Errorf("parse starttime: %w", err)
	}

	up, err := p.uptimeMS()
	if err != nil {
		return err
	}

	s[metrics.Key{Name: metrics.CPU, Type: "user"}] = float64(p.timeCS(utime))
	s[metrics.Key{Name: metrics.CPU, Type: "system"}] = float64(p.timeCS(stime))
	s[metrics.Key{Name: metrics.Uptime}] = float64(up - p.timeMS(start))
	s[metrics.Key{Name: metrics.Nice}] = nice
	s[metrics.Key{Name: metrics.Threads}] = float64(threads)
	return nil
}
