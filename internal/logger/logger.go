package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const filePrefix = "swift-mcp-server-"

// Config logger configuration
type Config struct {
	LogDir     string        // Log directory, empty disables file output
	Level      zerolog.Level // Minimum level
	MaxDays    int           // Max days to keep logs
	ConsoleOut bool          // Output to console as well
	Console    io.Writer     // Console writer, defaults to os.Stderr
}

// Logger is a zerolog logger writing to a daily rotated file and,
// optionally, the console.
type Logger struct {
	zerolog.Logger
	file *dailyFile
}

var (
	defaultLogger *Logger
	nop           = zerolog.Nop()
	once          sync.Once
)

// LevelFor maps the verbosity flag onto a log level.
func LevelFor(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// Init initializes the default logger
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		defaultLogger, err = New(cfg)
	})
	return err
}

// New creates a new logger instance
func New(cfg Config) (*Logger, error) {
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 7
	}

	var writers []io.Writer
	l := &Logger{}

	if cfg.LogDir != "" {
		f, err := openDailyFile(cfg.LogDir, cfg.MaxDays)
		if err != nil {
			return nil, err
		}
		l.file = f
		writers = append(writers, f)
	}

	if cfg.ConsoleOut {
		out := cfg.Console
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})
	}

	var w io.Writer = io.Discard
	if len(writers) > 0 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	l.Logger = zerolog.New(w).Level(cfg.Level).With().Timestamp().Logger()
	return l, nil
}

// Close closes the current log file, if any
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// L returns the default logger, or a no-op logger before Init.
func L() *zerolog.Logger {
	if defaultLogger == nil {
		return &nop
	}
	return &defaultLogger.Logger
}

// Close closes the default logger
func Close() error {
	if defaultLogger != nil {
		return defaultLogger.Close()
	}
	return nil
}

// dailyFile is an io.Writer that starts a new file every day and keeps at
// most maxDays files.
type dailyFile struct {
	mu          sync.Mutex
	dir         string
	maxDays     int
	current     *os.File
	currentDate string
	now         func() time.Time
}

func openDailyFile(dir string, maxDays int) (*dailyFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f := &dailyFile{dir: dir, maxDays: maxDays, now: time.Now}
	if err := f.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *dailyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return f.current.Write(p)
}

// rotateIfNeeded must be called with mu held (or before the file is shared).
func (f *dailyFile) rotateIfNeeded() error {
	today := f.now().Format(time.DateOnly)
	if f.currentDate == today && f.current != nil {
		return nil
	}

	if f.current != nil {
		f.current.Close()
	}

	name := filepath.Join(f.dir, filePrefix+today+".log")
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	f.current = file
	f.currentDate = today
	f.cleanOldLogs()
	return nil
}

// cleanOldLogs removes log files beyond the newest maxDays
func (f *dailyFile) cleanOldLogs() {
	files, err := filepath.Glob(filepath.Join(f.dir, filePrefix+"*.log"))
	if err != nil || len(files) <= f.maxDays {
		return
	}

	// Names sort by date
	sort.Strings(files)
	for _, old := range files[:len(files)-f.maxDays] {
		os.Remove(old)
	}
}

func (f *dailyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	err := f.current.Close()
	f.current = nil
	return err
}
