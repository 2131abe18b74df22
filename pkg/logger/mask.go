package logger

import (
	"context"
	"log/slog"
	"slices"
)

// maskPrefixLen is how many characters of a masked value survive. Enough to
// correlate log lines against provider dashboards, useless to an attacker.
const maskPrefixLen = 8

// DefaultMaskKeys are the attribute keys masked when no explicit set is given.
var DefaultMaskKeys = []string{"code", "token", "secret", "password", "client_secret"}

// MaskingHandler wraps a slog.Handler and truncates values of credential-like
// attributes before they reach the underlying handler. Masking happens per
// log call so that records built from request data never persist full
// authorization codes or tokens.
type MaskingHandler struct {
	next slog.Handler
	keys []string
}

// NewMaskingHandler creates a masking decorator for next. With no keys,
// DefaultMaskKeys is used.
func NewMaskingHandler(next slog.Handler, keys ...string) slog.Handler {
	if len(keys) == 0 {
		keys = DefaultMaskKeys
	}
	return &MaskingHandler{next: next, keys: keys}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) Handle(ctx context.Context, rec slog.Record) error {
	masked := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.next.Handle(ctx, masked)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.maskAttr(a)
	}
	return &MaskingHandler{next: h.next.WithAttrs(out), keys: h.keys}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name), keys: h.keys}
}

func (h *MaskingHandler) maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = h.maskAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if !slices.Contains(h.keys, a.Key) {
		return a
	}
	return slog.String(a.Key, Mask(a.Value.String()))
}

// Mask truncates a credential-like value to a short prefix. Values at or
// below the prefix length are fully replaced to avoid leaking short secrets.
func Mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= maskPrefixLen {
		return "[MASKED]"
	}
	return v[:maskPrefixLen] + "...[MASKED]"
}
