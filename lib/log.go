package lib

import (
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	LogTimeFormat = "2006-01-02T15:04:05.000"
)

func ZeroConsoleLog() zerolog.Logger {
	// zerolog.TimeFieldFormat = LogTimeFormat
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	sysType := runtime.GOOS

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: false, TimeFormat: LogTimeFormat})

	if sysType == "windows" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: colorable.NewColorableStdout(), TimeFormat: LogTimeFormat})
	}
	return log.Logger
}

// ZeroConsoleAndFileLog sets up zerolog to write to both a pretty console
// writer and filename, honoring the "logging.level"/"logging.file" keys.
func ZeroConsoleAndFileLog(filename string) zerolog.Logger {
	if filename == "" {
		filename = viper.GetString("logging.file")
	}
	if filename == "" {
		filename = "recon.log"
	}

	level, err := zerolog.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	sysType := runtime.GOOS

	var logFile *os.File
	if LocalFileExists(filename) {
		logFile, err = os.OpenFile(filename, os.O_WRONLY|os.O_APPEND, 0666)
	} else {
		logFile, err = os.Create(filename)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error setting up log config")
	}

	var consoleLog zerolog.ConsoleWriter
	if sysType == "windows" {
		consoleLog = zerolog.ConsoleWriter{Out: colorable.NewColorableStdout(), TimeFormat: LogTimeFormat}
	} else {
		consoleLog = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: false, TimeFormat: LogTimeFormat}
	}

	writers := []io.Writer{consoleLog}
	if logFile != nil {
		writers = append(writers, logFile)
	}
	mw := io.MultiWriter(writers...)
	logger := zerolog.New(mw).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
