package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorMagenta = 35
	colorBold    = 1
)

func colorize(s interface{}, c int) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

// New creates a logger for env at the given level. Development environments
// get colored console output, everything else JSON.
func New(env, level string) zerolog.Logger {
	var l zerolog.Logger
	if env == "development" || env == "dev" || env == "" {
		l = NewDevelopment()
	} else {
		l = NewProduction()
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return l.Level(lvl)
}

// NewDevelopment creates a development logger with console output and colors
func NewDevelopment() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
		FormatLevel: func(i interface{}) string {
			ll, ok := i.(string)
			if !ok || len(ll) < 3 {
				return strings.ToUpper(fmt.Sprintf("%-3s", i))[0:3]
			}
			switch ll {
			case "trace":
				return colorize("TRC", colorMagenta)
			case "debug":
				return colorize("DBG", colorYellow)
			case "info":
				return colorize("INF", colorGreen)
			case "warn", "error", "fatal", "panic":
				return colorize(strings.ToUpper(ll)[0:3], colorRed)
			default:
				return colorize(strings.ToUpper(ll)[0:3], colorBold)
			}
		},
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// NewProduction creates a production logger with JSON output and UNIX timestamps
func NewProduction() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", "learnhub-web").Logger()
}
