// Package signallog persists signals as a bounded CSV table that is
// rewritten whole, atomically, on every append.
package signallog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/types"
)

const lockRetryDelay = 50 * time.Millisecond

type Params struct {
	Path        string
	MaxRows     int
	Extended    bool
	LockTimeout time.Duration
}

type Log struct {
	p Params
}

var _ interfaces.SignalLog = (*Log)(nil)

func New(p Params) *Log {
	if p.MaxRows <= 0 {
		p.MaxRows = 500
	}
	if p.LockTimeout <= 0 {
		p.LockTimeout = 30 * time.Second
	}
	return &Log{p: p}
}

func (l *Log) Path() string { return l.p.Path }

// Load returns the stored signals oldest first. A missing or empty file is
// an empty log.
func (l *Log) Load(ctx context.Context) ([]types.Signal, error) {
	sigs, _, err := l.read()
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", types.ErrPersistenceFailed, l.p.Path, err)
	}
	return sigs, nil
}

// Append adds sig, keeps the newest MaxRows rows and replaces the file.
// It returns the row count written. On error the file is left as it was.
func (l *Log) Append(ctx context.Context, sig types.Signal) (int, error) {
	n, err := l.appendLocked(ctx, sig)
	if err != nil {
		return 0, fmt.Errorf("%w: append %s: %w", types.ErrPersistenceFailed, l.p.Path, err)
	}
	return n, nil
}

func (l *Log) appendLocked(ctx context.Context, sig types.Signal) (int, error) {
	if dir := filepath.Dir(l.p.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}

	fl := flock.New(l.p.Path + ".lock")
	lctx, cancel := context.WithTimeout(ctx, l.p.LockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(lctx, lockRetryDelay)
	if err != nil {
		return 0, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return 0, errors.New("acquire lock: timed out")
	}
	defer fl.Unlock()

	sigs, hadProjections, err := l.read()
	if err != nil {
		return 0, err
	}

	sigs = append(sigs, sig)
	if len(sigs) > l.p.MaxRows {
		sigs = sigs[len(sigs)-l.p.MaxRows:]
	}

	extended := l.p.Extended || hadProjections || sig.Projections != nil
	var buf bytes.Buffer
	if err := encode(&buf, sigs, extended); err != nil {
		return 0, err
	}
	if err := atomic.WriteFile(l.p.Path, &buf); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}

	logger.Debug(ctx, "Signal log rewritten", "path", l.p.Path, "rows", len(sigs), "extended", extended)
	return len(sigs), nil
}

// read parses the file and reports whether its header carries the
// projection columns.
func (l *Log) read() ([]types.Signal, bool, error) {
	data, err := os.ReadFile(l.p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, false, fmt.Errorf("read header: %w", err)
	}
	hasProjections := slices.Contains(header, projectionColumns[0])

	var rows []*extendedRow
	if err := gocsv.Unmarshal(bytes.NewReader(data), &rows); err != nil {
		return nil, false, fmt.Errorf("parse csv: %w", err)
	}

	sigs := make([]types.Signal, 0, len(rows))
	for i, r := range rows {
		s, err := r.signal()
		if err != nil {
			return nil, false, fmt.Errorf("row %d: %w", i+1, err)
		}
		sigs = append(sigs, s)
	}
	return sigs, hasProjections, nil
}

func encode(w io.Writer, sigs []types.Signal, extended bool) error {
	if extended {
		rows := make([]*extendedRow, len(sigs))
		for i, s := range sigs {
			rows[i] = toExtended(s)
		}
		return gocsv.Marshal(rows, w)
	}
	rows := make([]*basicRow, len(sigs))
	for i, s := range sigs {
		rows[i] = toBasic(s)
	}
	return gocsv.Marshal(rows, w)
}
