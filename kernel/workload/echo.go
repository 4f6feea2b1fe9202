package workload

import (
	"context"
	"fmt"

	"github.com/openkiss/kiss/kernel/routing"
)

// Echo replies to requests with its prefix prepended and logs
// fire-and-forget messages.
type Echo struct {
	Prefix string
}

func (e *Echo) Run(ctx context.Context, inbox <-chan routing.Envelope, api *routing.Router) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope, ok := <-inbox:
			if !ok {
				return nil
			}
			response := fmt.Sprintf("%s: %v", e.Prefix, envelope.Value)
			if envelope.IsRequest() {
				envelope.Reply.Resolve(response)
			} else {
				log.Infof("echo received: %s", response)
			}
		}
	}
}

func init() {
	Register("echo", func(params map[string]any) (Workload, error) {
		return &Echo{Prefix: paramString(params, "prefix", "ECHO")}, nil
	})
}
