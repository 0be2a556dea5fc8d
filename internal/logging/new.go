package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Supported output formats.
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatConsole = "console"
)

// New builds a Logger writing to w. format is one of FormatJSON, FormatText
// (both slog) or FormatConsole (zerolog); level is debug, info, warn or error.
func New(format, level string, w io.Writer) (Logger, error) {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel})
		return NewSlogLogger(slog.New(h)), nil
	case FormatText:
		h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})
		return NewSlogLogger(slog.New(h)), nil
	case FormatConsole:
		zl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("unknown log level %q", level)
		}
		out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
		return NewZerologLogger(zerolog.New(out).Level(zl).With().Timestamp().Logger()), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
