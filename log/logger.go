package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var (
	// The console format
	format = logging.MustStringFormatter(
		`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
	)

	// The file format omits color escape sequences
	fileFormat = logging.MustStringFormatter(
		`[%{time:2006-01-02 15:04:05.000}] [%{module}] [%{level}] %{message}`,
	)
)

// Sink state. Changing the sink or the level rebuilds the backend.
var (
	mu             sync.Mutex
	consoleSink    io.Writer
	fileSink       io.WriteCloser
	curLevel       = Notice
	leveledBackend logging.LeveledBackend
)

// The logger interface
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// Settings for the rotating log file sink.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Create a new named logger.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// Override the console output sink.
func SetSink(sink io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	consoleSink = sink
	rebuildBackend()
}

// Tee log output to a size-rotated log file. Passing a config with an empty
// path closes and detaches any previously configured file sink.
func SetFileSink(cfg FileConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if fileSink != nil {
		fileSink.Close()
		fileSink = nil
	}

	if cfg.Path != "" {
		fileSink = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		}
	}

	rebuildBackend()
	return nil
}

// Set logger verbosity.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()

	curLevel = level
	leveledBackend.SetLevel(level.loggingLevel(), "")
}

// Parse a level name as used by config files and command line flags.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "notice", "":
		return Notice, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	}
	return Notice, fmt.Errorf("log: unknown level %q", name)
}

// Implements Stringer.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) loggingLevel() logging.Level {
	switch l {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	}
	return logging.NOTICE
}

// Rebuild the leveled backend from the current sinks. Must be called with mu held.
func rebuildBackend() {
	backends := make([]logging.Backend, 0, 2)
	if consoleSink != nil {
		backends = append(backends, logging.NewBackendFormatter(logging.NewLogBackend(consoleSink, "", 0), format))
	}
	if fileSink != nil {
		backends = append(backends, logging.NewBackendFormatter(logging.NewLogBackend(fileSink, "", 0), fileFormat))
	}

	leveledBackend = logging.MultiLogger(backends...)
	leveledBackend.SetLevel(curLevel.loggingLevel(), "")
	logging.SetBackend(leveledBackend)
}

func init() {
	SetSink(os.Stdout)
	SetLevel(Notice)
}
