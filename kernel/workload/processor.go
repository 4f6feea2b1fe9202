package workload

import (
	"context"
	"fmt"
	"strings"

	"github.com/openkiss/kiss/kernel/routing"
)

// Processor transforms string messages (uppercase, lowercase, reverse) and
// optionally forwards results to another container or service.
type Processor struct {
	Operation string
	ForwardTo string
}

func (p *Processor) Run(ctx context.Context, inbox <-chan routing.Envelope, api *routing.Router) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope, ok := <-inbox:
			if !ok {
				return nil
			}
			result := p.transform(fmt.Sprintf("%v", envelope.Value))
			if envelope.IsRequest() {
				envelope.Reply.Resolve(result)
			}
			if p.ForwardTo != "" {
				p.forward(result, api)
			}
		}
	}
}

func (p *Processor) transform(value string) string {
	switch p.Operation {
	case "uppercase":
		return strings.ToUpper(value)
	case "lowercase":
		return strings.ToLower(value)
	case "reverse":
		runes := []rune(value)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	default:
		return value
	}
}

// forward tries the target as a container first, then as a service.
func (p *Processor) forward(result string, api *routing.Router) {
	if _, err := api.SendToContainer(p.ForwardTo, result, false); err == nil {
		return
	}
	if _, err := api.SendToService(p.ForwardTo, result, false); err != nil {
		log.WithError(err).Warnf("processor failed to forward to [%s]", p.ForwardTo)
	}
}

func init() {
	Register("processor", func(params map[string]any) (Workload, error) {
		return &Processor{
			Operation: paramString(params, "operation", "uppercase"),
			ForwardTo: paramString(params, "forward_to", ""),
		}, nil
	})
}
