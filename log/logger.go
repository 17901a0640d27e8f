package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	mu     *sync.Mutex
	writer io.Writer

	Name  string
	Level LogLevel

	TimeFormat string
	NoColor    bool
	JSON       bool
	NoTerminal bool
}

type LoggerOptions struct {
	Level      LogLevel
	File       string
	JSON       bool
	NoColor    bool
	NoTerminal bool
	Rotation   *LoggerRotation
}

type LoggerRotation struct {
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service,omitempty"`
	Message   string `json:"message"`
}

// NewLogger creates a logger writing to stdout and, when opts.File is set,
// to a rotated log file.
func NewLogger(name string, opts LoggerOptions) *Logger {
	var writers []io.Writer
	if !opts.NoTerminal {
		writers = append(writers, os.Stdout)
	}

	if opts.File != "" {
		rotation := opts.Rotation
		if rotation == nil {
			rotation = &LoggerRotation{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
			}
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    rotation.MaxSize,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAge,
			Compress:   rotation.Compress,
		})
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	l := NewWriterLogger(name, opts.Level, io.MultiWriter(writers...))
	l.JSON = opts.JSON
	// Colors only make sense on a terminal-only writer
	l.NoColor = opts.NoColor || opts.NoTerminal || opts.File != ""
	l.NoTerminal = opts.NoTerminal
	return l
}

// NewWriterLogger creates an uncolored logger on top of an arbitrary writer.
func NewWriterLogger(name string, level LogLevel, w io.Writer) *Logger {
	return &Logger{
		mu:         &sync.Mutex{},
		writer:     w,
		Name:       name,
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	return NewWriterLogger("", Fatal+1, io.Discard)
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if level < l.Level {
		return
	}

	timestamp := time.Now().Format(l.TimeFormat)
	formattedMsg := fmt.Sprintf(msg, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.JSON {
		entry := logEntry{
			Timestamp: timestamp,
			Level:     level.String(),
			Message:   formattedMsg,
		}
		if l.Name != "" {
			entry.Service = l.Name
		}

		jsonBytes, _ := json.Marshal(entry)
		fmt.Fprintf(l.writer, "%s\n", jsonBytes)
	} else {
		prefix := fmt.Sprintf("[%s] %-5s", timestamp, level)
		if l.Name != "" {
			prefix = fmt.Sprintf("%s [%s]", prefix, l.Name)
		}

		if !l.NoColor {
			fmt.Fprintf(l.writer, "%s%s %s%s\n", level.ansiColor(), prefix, formattedMsg, colorReset)
		} else {
			fmt.Fprintf(l.writer, "%s %s\n", prefix, formattedMsg)
		}
	}

	if level == Fatal {
		os.Exit(1)
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(Debug, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(Info, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(Warn, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(Error, msg, args...)
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.log(Fatal, msg, args...)
}

// Named returns a sub-logger sharing the same writer, e.g. "carupload/meta".
func (l *Logger) Named(name string) *Logger {
	fullName := name
	if l.Name != "" {
		fullName = fmt.Sprintf("%s/%s", l.Name, name)
	}

	return &Logger{
		mu:     l.mu,
		writer: l.writer,

		Name:  fullName,
		Level: l.Level,

		TimeFormat: l.TimeFormat,
		NoColor:    l.NoColor,
		NoTerminal: l.NoTerminal,
		JSON:       l.JSON,
	}
}
