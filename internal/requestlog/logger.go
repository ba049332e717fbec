// Package requestlog appends one line per limited request to a daily log file.
package requestlog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrCreateDirectory is returned when the log directory cannot be created.
var ErrCreateDirectory = errors.New("error creating logs directory")

const (
	fileDateLayout = "2006-01-02"
	lineTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Logger writes request outcomes to <dir>/<YYYY-MM-DD>.log. Each line reads
// "<timestamp> - <ip> - <url> - Success|Failed". It is safe for concurrent use.
type Logger struct {
	dir string

	mu      sync.Mutex
	day     string
	current *os.File
}

// New creates the log directory when missing and returns a logger writing into it.
// A directory that already exists is fine; any other failure is returned.
func New(dir string) (*Logger, error) {
	if err := os.Mkdir(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: %w", ErrCreateDirectory, err)
	}

	return &Logger{dir: dir}, nil
}

// Log appends a line for a request observed at the given time.
func (l *Logger) Log(at time.Time, ip, url string, success bool) error {
	at = at.UTC()

	result := "Success"
	if !success {
		result = "Failed"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.file(at.Format(fileDateLayout))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(f, "%s - %s - %s - %s\n", at.Format(lineTimeLayout), ip, url, result)

	return err
}

// file returns the open file for day, rotating when the day changed.
func (l *Logger) file(day string) (*os.File, error) {
	if l.current != nil && l.day == day {
		return l.current, nil
	}

	if l.current != nil {
		_ = l.current.Close()
		l.current = nil
	}

	f, err := os.OpenFile(filepath.Join(l.dir, day+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open request log: %w", err)
	}

	l.current = f
	l.day = day

	return f, nil
}

// Shutdown closes the current log file.
func (l *Logger) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil
	}

	err := l.current.Close()
	l.current = nil

	return err
}
