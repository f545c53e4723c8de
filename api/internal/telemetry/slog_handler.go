package telemetry

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

// TeeHandler forwards every record to the wrapped slog.Handler and also
// publishes a flattened copy to the Hub, so /api/logs serves the agent's real log.
type TeeHandler struct {
	next  slog.Handler
	hub   *Hub
	attrs []slog.Attr // already qualified with their group prefix
	group string
}

func NewTeeHandler(next slog.Handler, hub *Hub) *TeeHandler {
	return &TeeHandler{next: next, hub: hub}
}

func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})

	h.hub.Publish(domain.LogRecord{
		ID:        uuid.New(),
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   b.String(),
	})

	return h.next.Handle(ctx, r)
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	qualified := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	qualified = append(qualified, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		qualified = append(qualified, a)
	}
	return &TeeHandler{
		next:  h.next.WithAttrs(attrs),
		hub:   h.hub,
		attrs: qualified,
		group: h.group,
	}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TeeHandler{
		next:  h.next.WithGroup(name),
		hub:   h.hub,
		attrs: h.attrs,
		group: group,
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}
