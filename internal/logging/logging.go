// Package logging wraps charmbracelet/log with the daily-rotating file
// convention the filter-graph engine uses for its run log: structured
// key-value logging over a file that rolls to a new name each UTC day,
// using lestrrat-go/strftime to format the file name.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// DefaultDailyPattern names one log file per UTC day, mirroring the
// teacher's "2006-01-02.log" daily name format.
const DefaultDailyPattern = "%Y-%m-%d.log"

// Logger is the engine-wide structured logger. It wraps a
// *charmlog.Logger so callers get leveled, field-based logging, while
// Rotator underneath decides which file receives the bytes.
type Logger struct {
	*charmlog.Logger
	rotator *Rotator
}

// New returns a Logger writing to w with no rotation, suitable for
// stderr/stdout use from CLI tools.
func New(w io.Writer, level charmlog.Level) *Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return &Logger{Logger: l}
}

// Rotator opens a new file named by pattern (an strftime layout,
// evaluated in UTC) under dir whenever the formatted name changes,
// closing the previous file first: one log file per day, named by date.
type Rotator struct {
	mu          sync.Mutex
	dir         string
	pattern     *strftime.Strftime
	currentName string
	currentFile *os.File
}

// NewRotator prepares a daily-rotating writer under dir using pattern
// (an strftime layout). dir is created if it does not already exist.
func NewRotator(dir, pattern string) (*Rotator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: creating log dir %q: %w", dir, err)
	}
	p, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid log file pattern %q: %w", pattern, err)
	}
	return &Rotator{dir: dir, pattern: p}, nil
}

// Write implements io.Writer, rolling to a new file whenever the
// formatted name for the current time differs from the currently open
// file.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := r.pattern.FormatString(time.Now().UTC())
	if r.currentFile == nil || name != r.currentName {
		if err := r.rollLocked(name); err != nil {
			return 0, err
		}
	}
	return r.currentFile.Write(p)
}

func (r *Rotator) rollLocked(name string) error {
	if r.currentFile != nil {
		r.currentFile.Close()
	}
	full := filepath.Join(r.dir, name)
	f, err := os.OpenFile(full, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("logging: opening log file %q: %w", full, err)
	}
	r.currentFile = f
	r.currentName = name
	return nil
}

// Close closes the currently open log file, if any.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentFile == nil {
		return nil
	}
	err := r.currentFile.Close()
	r.currentFile = nil
	return err
}

// NewDaily returns a Logger that writes to dir using pattern, rotating
// daily, in addition to echoing everything to stderr at the same level.
func NewDaily(dir, pattern string, level charmlog.Level) (*Logger, error) {
	rot, err := NewRotator(dir, pattern)
	if err != nil {
		return nil, err
	}
	w := io.MultiWriter(os.Stderr, rot)
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return &Logger{Logger: l, rotator: rot}, nil
}

// Close releases the underlying rotated file, if this Logger was built
// with NewDaily.
func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}
