package waveui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// statusMsg carries a log record shown on the status line.
type statusMsg struct {
	summary string
	level   slog.Level
}

// LogHandler is a slog.Handler that shows records on the Model's status
// line. Records arriving before SetSender is called are dropped.
//
// Handlers derived via WithAttrs and WithGroup share the sender, so one
// SetSender call on the root handler reaches all of them.
type LogHandler struct {
	level  slog.Level
	sender *atomic.Pointer[Sender]
	attrs  []slog.Attr
	prefix string
}

// NewLogHandler creates a handler delivering records at or above level.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{
		level:  level,
		sender: &atomic.Pointer[Sender]{},
	}
}

// SetSender sets the program that receives log records.
func (h *LogHandler) SetSender(s Sender) {
	h.sender.Store(&s)
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	sender := h.sender.Load()
	if sender == nil {
		return nil
	}

	var parts []string
	for _, attr := range h.attrs {
		if attr.Key == "component" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", h.prefix, attr.Key, attr.Value))
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	(*sender).Send(statusMsg{summary: summary, level: record.Level})
	return nil
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}
