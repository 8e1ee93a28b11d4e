package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"pgmirror/shared/application/ports"
)

// LoggerOptions configures the stdout logger.
type LoggerOptions struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	JSON   bool
	// Level "error" drops Info entries.
	Level string
	// File, when set, receives a copy of every entry through a rotating
	// lumberjack sink.
	File string
}

// Logger implements ports.Logger on top of the standard log package.
type Logger struct {
	fields    map[string]interface{}
	logger    *log.Logger
	json      bool
	errorOnly bool
	now       func() time.Time
}

// NewLogger creates a stdout logger.
func NewLogger(opts LoggerOptions) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		})
	}

	return &Logger{
		fields:    make(map[string]interface{}),
		logger:    log.New(out, "", 0),
		json:      opts.JSON,
		errorOnly: strings.EqualFold(opts.Level, "error"),
		now:       time.Now,
	}
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	if l.errorOnly {
		return
	}
	l.log("INFO", msg, fields...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log("ERROR", msg, fields...)
}

// WithFields returns a logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	clone := *l
	clone.fields = merged
	return &clone
}

func (l *Logger) log(level, msg string, fields ...interface{}) {
	entry := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		entry[k] = v
	}
	// fields are key/value pairs; a dangling key is dropped
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, ok := fields[i+1].(error); ok {
			entry[key] = err.Error()
			continue
		}
		entry[key] = fields[i+1]
	}

	timestamp := l.now().UTC().Format(time.RFC3339)
	if l.json {
		entry["timestamp"] = timestamp
		entry["level"] = level
		entry["message"] = msg
		b, err := json.Marshal(entry)
		if err != nil {
			l.logger.Printf("failed to marshal log entry: %v", err)
			return
		}
		l.logger.Println(string(b))
		return
	}

	keys := make([]string, 0, len(entry))
	for k := range entry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	line := fmt.Sprintf("%s [%s] %s", timestamp, level, msg)
	if len(keys) > 0 {
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s=%v", k, entry[k])
		}
		line += " | " + strings.Join(pairs, " ")
	}
	l.logger.Println(line)
}
