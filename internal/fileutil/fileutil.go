// Package fileutil collects small filesystem helpers shared by the
// orchestrator's components: directory creation, path layout under
// .scriptorium, YAML marshaling, and process-wide logging.
package fileutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// EnsureDir creates a directory and all parent directories with 0755 permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteYAML marshals v as YAML and writes it to path.
func WriteYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadYAML reads and unmarshals a YAML file at path into v.
func ReadYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

var (
	loggerMu sync.Mutex
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// ConfigureLogger installs the process-wide logger, writing at minLevel and
// above to w. Called once at startup from scriptorium.json's settings.logLevel.
func ConfigureLogger(w io.Writer, minLevel slog.Level) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: minLevel}))
}

// Logger returns the process-wide structured logger.
func Logger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	return logger
}

// LogError logs a formatted message at ERROR level. Kept as a thin
// printf-style wrapper because most call sites in the orchestrator build
// their message with fmt-style verbs rather than structured attributes.
func LogError(format string, args ...interface{}) {
	Logger().Error(fmt.Sprintf(format, args...))
}

// LogInfo logs a formatted message at INFO level.
func LogInfo(format string, args ...interface{}) {
	Logger().Info(fmt.Sprintf(format, args...))
}

// LogDebug logs a formatted message at DEBUG level.
func LogDebug(format string, args ...interface{}) {
	Logger().Debug(fmt.Sprintf(format, args...))
}
