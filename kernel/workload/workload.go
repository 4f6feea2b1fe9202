package workload

import (
	"context"

	"github.com/michaelquigley/pfxlog"
	"github.com/openkiss/kiss/kernel/routing"
)

var log = pfxlog.ChannelLogger("workload")

// Workload is the body of an in-process container. Run is invoked once per
// container lifetime and must drain inbox until ctx is cancelled or the
// channel closes, resolving any reply handle exactly once per request it
// consumes. The router handle supports forwarding to other units.
type Workload interface {
	Run(ctx context.Context, inbox <-chan routing.Envelope, api *routing.Router) error
}

// Factory builds a workload instance from its declared parameters.
type Factory func(params map[string]any) (Workload, error)

func paramString(params map[string]any, key, dflt string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return dflt
}

func paramInt(params map[string]any, key string, dflt int) int {
	v, ok := params[key]
	if !ok {
		return dflt
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return dflt
	}
}

func paramFloat(params map[string]any, key string, dflt float64) float64 {
	v, ok := params[key]
	if !ok {
		return dflt
	}
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return dflt
	}
}
