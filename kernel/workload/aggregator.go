package workload

import (
	"context"

	"github.com/openkiss/kiss/kernel/routing"
)

// Aggregator buffers messages and emits a report each time the window fills.
type Aggregator struct {
	WindowSize int

	messages []any
}

func (a *Aggregator) Run(ctx context.Context, inbox <-chan routing.Envelope, api *routing.Router) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope, ok := <-inbox:
			if !ok {
				return nil
			}
			a.messages = append(a.messages, envelope.Value)
			log.Infof("aggregator received %v (count: %d)", envelope.Value, len(a.messages))

			if len(a.messages) < a.WindowSize {
				if envelope.IsRequest() {
					envelope.Reply.Resolve(nil)
				}
				continue
			}

			report := map[string]any{
				"count":    len(a.messages),
				"messages": append([]any(nil), a.messages...),
				"sample":   a.messages[0],
			}
			log.Infof("aggregator report: %v", report)
			if envelope.IsRequest() {
				envelope.Reply.Resolve(report)
			}
			a.messages = a.messages[:0]
		}
	}
}

func init() {
	Register("aggregator", func(params map[string]any) (Workload, error) {
		windowSize := paramInt(params, "window_size", 5)
		if windowSize < 1 {
			windowSize = 1
		}
		return &Aggregator{WindowSize: windowSize}, nil
	})
}
