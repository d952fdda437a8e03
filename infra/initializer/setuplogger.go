package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/mileage/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	infoTxtColor  = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warnTxtColor  = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	errorTxtColor = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}
	debugTxtColor = lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#7E57C2"}
)

// SetupLogger builds the process logger on stdout and makes it the slog default.
func SetupLogger(cfg *config.Log) *slog.Logger {
	slogger := NewLogger(os.Stdout, cfg)
	slog.SetDefault(slogger)
	return slogger
}

// NewLogger returns a slog logger backed by a charmbracelet handler writing to w.
// LOG_FORMAT selects json or text; anything else falls back to text.
func NewLogger(w io.Writer, cfg *config.Log) *slog.Logger {
	formattersMap := map[string]log.Formatter{
		"json": log.JSONFormatter,
		"text": log.TextFormatter,
	}
	formatter := log.TextFormatter
	if f, ok := formattersMap[cfg.Format]; ok {
		formatter = f
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	logger.SetStyles(ledgerStyles())

	return slog.New(logger)
}

func ledgerStyles() *log.Styles {
	styles := log.DefaultStyles()

	levels := map[log.Level]struct {
		icon  string
		color lipgloss.AdaptiveColor
	}{
		log.ErrorLevel: {"❌", errorTxtColor},
		log.InfoLevel:  {"ℹ️", infoTxtColor},
		log.WarnLevel:  {"⚠️", warnTxtColor},
		log.DebugLevel: {"🐛", debugTxtColor},
	}
	for lvl, s := range levels {
		styles.Levels[lvl] = lipgloss.NewStyle().
			SetString(s.icon).
			Bold(true).
			Padding(0, 1).
			Foreground(s.color)
	}

	keys := map[string]lipgloss.AdaptiveColor{
		"error":          errorTxtColor,
		"operation":      infoTxtColor,
		"userID":         infoTxtColor,
		"user_id":        infoTxtColor,
		"points":         warnTxtColor,
		"balanceAfter":   warnTxtColor,
		"sequence":       debugTxtColor,
		"transactionID":  debugTxtColor,
		"transaction_id": debugTxtColor,
		"prefix":         debugTxtColor,
		"caller":         debugTxtColor,
		"time":           debugTxtColor,
	}
	for k, color := range keys {
		styles.Keys[k] = lipgloss.NewStyle().Foreground(color)
		styles.Values[k] = lipgloss.NewStyle().Bold(true)
	}
	return styles
}
