package ipa

import (
	"context"
	"log/slog"
	"strings"
)

// LogFunc receives every log record emitted by the engine as a level and a formatted message.
//
// This is the shape of callback that foreign callers (e.g. a host application loading this module as a shared library)
// usually register.
type LogFunc func(level slog.Level, message string)

// WithLogFunc sets [Options.Logger] to a logger that forwards records to fn.
//
// The name is prepended to every message in the form "[name] ".
func WithLogFunc(name string, fn LogFunc) func(*Options) {
	return func(opts *Options) {
		opts.Logger = slog.New(NewLogFuncHandler(name, fn))
	}
}

// NewLogFuncHandler returns a slog.Handler that formats records into a single line and passes them to fn.
//
// Attributes are rendered as space-separated key=value pairs after the message. A nil fn discards everything.
func NewLogFuncHandler(name string, fn LogFunc) slog.Handler {
	return &logFuncHandler{name: name, fn: fn, level: slog.LevelDebug}
}

type logFuncHandler struct {
	name   string
	fn     LogFunc
	level  slog.Level
	prefix string
	attrs  []slog.Attr
}

func (h *logFuncHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.fn != nil && level >= h.level
}

func (h *logFuncHandler) Handle(_ context.Context, r slog.Record) error {
	if h.fn == nil {
		return nil
	}

	var sb strings.Builder
	if h.name != "" {
		sb.WriteString("[" + h.name + "] ")
	}
	sb.WriteString(r.Message)

	for _, a := range h.attrs {
		h.appendAttr(&sb, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&sb, h.prefix, a)
		return true
	})

	h.fn(r.Level, sb.String())
	return nil
}

func (h *logFuncHandler) appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}

	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range v.Group() {
			h.appendAttr(sb, prefix, ga)
		}
		return
	}

	sb.WriteString(" " + prefix + a.Key + "=" + v.String())
}

func (h *logFuncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a = slog.Group(strings.TrimSuffix(h.prefix, "."), a)
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *logFuncHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}
