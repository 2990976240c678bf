// Package logging настраивает zerolog для движка и добавляет два помощника:
// уровень critical и пару сообщений start/stop вокруг операции.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options - параметры логгера
type Options struct {
	// Level - debug, info, warn, error (по умолчанию info)
	Level string

	// Console - человекочитаемый вывод вместо JSON
	Console bool

	// Output - куда писать (по умолчанию os.Stderr)
	Output io.Writer
}

// New создает логгер по опциям
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// OrNop возвращает логгер или отключенный логгер для nil
func OrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}

// Critical начинает сообщение критического уровня
// В отличие от Fatal() не завершает процесс
func Critical(l zerolog.Logger) *zerolog.Event {
	return l.WithLevel(zerolog.FatalLevel).Str("severity", "critical")
}

// Bracket пишет start сейчас и возвращает функцию, пишущую stop
//
// Пример:
//
//	defer logging.Bracket(log, "Starting read from DynamoDB", "DynamoDB read complete")()
func Bracket(l zerolog.Logger, start, stop string) func() {
	l.Info().Msg(start)
	began := time.Now()
	return func() {
		l.Info().Dur("elapsed", time.Since(began)).Msg(stop)
	}
}
