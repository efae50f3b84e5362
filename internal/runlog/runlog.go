// Package runlog keeps a daily JSON-lines journal of pipeline runs.
package runlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"xau-signal-bot/internal/types"
)

const (
	dayLayout = "2006-01-02"
	ext       = ".jsonl"
)

type Entry struct {
	Time        string        `json:"time"`
	Symbol      string        `json:"symbol"`
	Provider    string        `json:"provider,omitempty"`
	Model       string        `json:"model,omitempty"`
	Result      string        `json:"result"`
	Kind        string        `json:"kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	DurationMs  int64         `json:"duration_ms"`
	Candles     int           `json:"candles,omitempty"`
	LatestClose float64       `json:"latest_close,omitempty"`
	LogRows     int           `json:"log_rows,omitempty"`
	Signal      *types.Signal `json:"signal,omitempty"`
}

// NewEntry fills the outcome fields of an entry from a run's result or error.
func NewEntry(symbol string, res *types.RunResult, err error, took time.Duration) Entry {
	e := Entry{Symbol: symbol, Result: "ok", DurationMs: took.Milliseconds()}
	if err != nil {
		e.Result = "error"
		e.Kind = types.ErrorKind(err)
		e.Error = err.Error()
		return e
	}
	if res != nil {
		sig := res.Signal
		e.Signal = &sig
		e.Candles = res.Candles
		e.LatestClose = res.LatestClose
		e.LogRows = res.LogRows
	}
	return e
}

type Journal struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func New(dir string) *Journal {
	if dir == "" {
		dir = "logs/runs"
	}
	return &Journal{dir: dir, now: time.Now}
}

func (j *Journal) Dir() string { return j.dir }

func (j *Journal) path(t time.Time) string {
	return filepath.Join(j.dir, t.Format(dayLayout)+ext)
}

// Append stamps e with the current time and adds it to today's file.
func (j *Journal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	e.Time = now.Format(time.RFC3339)
	p := j.path(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files last modified more than retentionDays
// ago and removes the originals. Per-file failures are skipped; the count
// of compressed files is returned.
func (j *Journal) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	n := 0
	for _, d := range entries {
		if d.IsDir() || filepath.Ext(d.Name()) != ext {
			continue
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(j.dir, d.Name())
		if _, err := os.Stat(p + ".gz"); err == nil {
			_ = os.Remove(p)
			continue
		}
		if err := gzipFile(p); err == nil {
			n++
		}
	}
	return n, nil
}

func gzipFile(p string) error {
	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	gz := p + ".gz"
	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, err = io.Copy(gw, in)
	if cerr := gw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(gz)
		return err
	}
	return os.Remove(p)
}
