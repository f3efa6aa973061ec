// Package nodelog wires the node's structured logging onto
// github.com/ethereum/go-ethereum/log, the teacher's own slog-based
// logging wrapper, so config_setLogLevel/config_setLogging can adjust
// verbosity at runtime the same way geth's own --verbosity flag and
// its glog handler do.
package nodelog

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
)

// levelByName maps the accepted level names to geth's log levels.
// Only these six names are accepted; numeric levels are not.
var levelByName = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

// ParseLevel resolves a config_setLogLevel level name.
func ParseLevel(name string) (slog.Level, error) {
	lvl, ok := levelByName[name]
	if !ok {
		return 0, fmt.Errorf("nodelog: unknown log level %q", name)
	}
	return lvl, nil
}

// Handle is a live handle on the node's logging setup: the opened file
// (closed at shutdown) and the glog handler whose verbosity
// config_setLogLevel mutates in place.
type Handle struct {
	File *os.File
	Glog *log.GlogHandler
}

// Setup opens path for appending and installs a glog-wrapped terminal
// handler at the given initial level as the process-wide default
// logger (log.SetDefault), matching the teacher's own cmd/geth startup
// sequence. It never writes to stdout: every line goes to path, per
// spec.md's append-only log file.
func Setup(path, levelName string) (*Handle, error) {
	lvl, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("nodelog: open log file %s: %w", path, err)
	}
	glog := log.NewGlogHandler(log.NewTerminalHandlerWithLevel(f, lvl, false))
	glog.Verbosity(lvl)
	log.SetDefault(log.NewLogger(glog))
	return &Handle{File: f, Glog: glog}, nil
}

// SetLevel swaps the glog handler's verbosity atomically, used by
// config_setLogLevel.
func (h *Handle) SetLevel(levelName string) error {
	lvl, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	h.Glog.Verbosity(lvl)
	return nil
}

// Close flushes and closes the underlying log file.
func (h *Handle) Close() error {
	return h.File.Close()
}
