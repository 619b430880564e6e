// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package logger holds the process wide zap logger used by the harness.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger for the application.
	Logger *zap.Logger
	// mu protects Logger from concurrent access
	mu sync.RWMutex
	// initialized tracks whether logger has been initialized
	initialized bool
	// level is shared by every core built through Configure so SetLevel
	// takes effect without rebuilding the logger.
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	// logFile is the path of the current run's log file, empty when
	// logging to the console only.
	logFile string
	// out is the open handle behind logFile. It is closed when the logger
	// is replaced or reset.
	out *os.File
)

// Options controls how Configure builds the global logger.
type Options struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// Dir receives a test_YYYYMMDD_HHMMSS.log file per run. Empty disables
	// file output.
	Dir string
	// Now is used for the log file name. Defaults to time.Now.
	Now func() time.Time
}

// InitLogger initializes the global logger safely to prevent race conditions.
func InitLogger() {
	mu.Lock()
	defer mu.Unlock()

	// Only initialize if not already done
	if !initialized || Logger == nil {
		Logger = zap.New(zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stdout), level))
		initialized = true
	}
}

// Configure replaces the global logger with one writing to the console and,
// when opts.Dir is set, to a timestamped file under that directory.
func Configure(opts Options) (*zap.Logger, error) {
	if err := SetLevel(opts.Level); err != nil {
		return nil, err
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stdout), level),
	}

	path := ""
	var f *os.File
	if opts.Dir != "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		path = filepath.Join(opts.Dir, fmt.Sprintf("test_%s.log", now().Format("20060102_150405")))
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(fileEncoder(), zapcore.Lock(f), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	mu.Lock()
	defer mu.Unlock()
	if Logger != nil {
		_ = Logger.Sync()
	}
	closeOut()
	Logger = l
	logFile = path
	out = f
	initialized = true
	return l, nil
}

// SetLevel changes the minimum level of every core built by this package.
// An empty name keeps the current level.
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(lvl)
	return nil
}

// Level returns the current minimum level.
func Level() zapcore.Level {
	return level.Level()
}

// File returns the path of the active log file, if any.
func File() string {
	mu.RLock()
	defer mu.RUnlock()
	return logFile
}

// GetLogger returns the global logger, initializing it if necessary.
func GetLogger() *zap.Logger {
	mu.RLock()
	if initialized && Logger != nil {
		defer mu.RUnlock()
		return Logger
	}
	mu.RUnlock()

	InitLogger()

	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

// ResetLogger resets the logger for testing purposes.
// This should only be used in tests.
func ResetLogger() {
	mu.Lock()
	defer mu.Unlock()

	if Logger != nil {
		_ = Logger.Sync() // Flush any pending log entries
	}
	closeOut()
	Logger = nil
	logFile = ""
	initialized = false
}

// closeOut closes the current log file. Callers hold mu.
func closeOut() {
	if out != nil {
		_ = out.Close()
		out = nil
	}
}

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func fileEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}
