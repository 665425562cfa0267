// Package logging wraps arbor so every component logs through the same writers.
package logging

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// Config selects the level and the writers of a Logger.
type Config struct {
	Level      string
	Outputs    []string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
}

// Logger wraps arbor.ILogger.
type Logger struct {
	arbor.ILogger
}

type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// lineWriter renders arbor's JSON events as "message k=v" lines on an io.Writer.
type lineWriter struct {
	out   io.Writer
	level log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}
	if _, err := w.out.Write([]byte(formatLine(evt) + "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

// formatLine renders the message followed by the fields in key order.
func formatLine(evt models.LogEvent) string {
	msg := evt.Message
	for _, k := range slices.Sorted(maps.Keys(evt.Fields)) {
		msg += fmt.Sprintf(" %s=%v", k, evt.Fields[k])
	}
	if evt.Error != "" {
		msg += " error=" + evt.Error
	}
	return msg
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.level = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }

// New builds a logger from cfg. Unknown outputs are ignored; an empty list means console only.
func New(cfg Config) *Logger {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	l := arbor.NewLogger()
	for _, out := range outputs {
		switch out {
		case "console":
			l = l.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: timeFormat,
			})
		case "file":
			path := cfg.FilePath
			if path == "" {
				path = "logs/portfolio.log"
			}
			maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
			if maxSize <= 0 {
				maxSize = 10 * 1024 * 1024
			}
			maxBackups := cfg.MaxBackups
			if maxBackups <= 0 {
				maxBackups = 5
			}
			l = l.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   path,
				MaxSize:    maxSize,
				MaxBackups: maxBackups,
				TimeFormat: timeFormat,
			})
		case "memory":
			l = l.WithMemoryWriter(models.WriterConfiguration{
				Type: models.LogWriterTypeMemory,
			})
		}
	}

	return &Logger{ILogger: l.WithLevelFromString(level)}
}

// NewWithOutput writes plain "message k=v" lines to w. Used by tests that assert on log output.
func NewWithOutput(level string, w io.Writer) *Logger {
	l := arbor.NewLogger().
		WithWriters([]writers.IWriter{&lineWriter{out: w, level: log.TraceLevel}}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// NewSilent discards everything.
func NewSilent() *Logger {
	l := arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})
	return &Logger{ILogger: l}
}
