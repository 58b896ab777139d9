package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "devmetrics.log"

// Init configures the global logger with a console sink on stderr and a
// rotating file under logDir. An empty logDir disables the file sink.
func Init(level, logDir string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = zerolog.New(writer(os.Stderr, logDir)).
		With().
		Timestamp().
		Logger()

	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
	}
}

func writer(stderr *os.File, logDir string) io.Writer {
	isTerminal := isatty.IsTerminal(stderr.Fd()) || isatty.IsCygwinTerminal(stderr.Fd())
	console := zerolog.ConsoleWriter{
		Out:        stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}
	if logDir == "" {
		return console
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(stderr, "warning: failed to create log directory %q, logging to stderr only: %v\n", logDir, err)
		return console
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFileName),
		MaxSize:    16, // megabytes
		MaxBackups: 8,
		MaxAge:     90, // days
		Compress:   true,
	}
	return zerolog.MultiLevelWriter(console, file)
}
