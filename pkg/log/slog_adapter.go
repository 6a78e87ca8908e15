package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// SlogAdapter mirrors capture events into an slog.Logger, one record per
// event with the payload in a group named after its category. Frames and
// state changes log at Debug, verdicts at Info and errors at Warn, so a
// console at Info shows only results.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	level, payload := eventPayload(event)
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 5)
	attrs = append(attrs, slog.String("run", event.RunID), slog.String("layer", event.Layer.String()))
	if event.Layer == LayerBus {
		attrs = append(attrs, slog.String("dir", event.Direction.String()))
	}
	if event.Test != "" {
		attrs = append(attrs, slog.String("test", event.Test))
	}
	attrs = append(attrs, payload)
	a.logger.LogAttrs(ctx, level, "capture "+payload.Key, attrs...)
}

func eventPayload(e Event) (slog.Level, slog.Attr) {
	switch {
	case e.Frame != nil:
		return slog.LevelDebug, frameAttr(e)
	case e.Verdict != nil:
		v := e.Verdict
		attrs := []any{slog.String("area", v.Area), slog.String("test", v.Test), slog.String("result", v.Verdict)}
		if v.Expected != "" {
			attrs = append(attrs, slog.String("expected", v.Expected))
		}
		return slog.LevelInfo, slog.Group("verdict", attrs...)
	case e.StateChange != nil:
		sc := e.StateChange
		attrs := []any{slog.String("entity", sc.Entity.String()), slog.String("from", sc.OldState), slog.String("to", sc.NewState)}
		if sc.Reason != "" {
			attrs = append(attrs, slog.String("reason", sc.Reason))
		}
		return slog.LevelDebug, slog.Group("state", attrs...)
	case e.Error != nil:
		return slog.LevelWarn, slog.Group("error",
			slog.String("layer", e.Error.Layer.String()),
			slog.String("message", e.Error.Message),
			slog.String("context", e.Error.Context))
	}
	return slog.LevelDebug, slog.String("event", e.Category.String())
}

func frameAttr(e Event) slog.Attr {
	attrs := []any{slog.String("data", fmt.Sprintf("% x", e.Frame.Data))}
	if f, err := cec.ParseFrame(e.Frame.Data); err == nil {
		attrs = append(attrs, slog.String("decoded", f.String()))
	}
	if e.Direction == DirectionOut {
		attrs = append(attrs, slog.String("status", e.Frame.TxStatus.String()))
	}
	return slog.Group("frame", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
