package workload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/openkiss/kiss/kernel/routing"
)

// Generator emits count messages to a target at a fixed interval, trying the
// target as a service first and falling back to a container name.
type Generator struct {
	Target   string
	Interval time.Duration
	Count    int
}

func (g *Generator) Run(ctx context.Context, inbox <-chan routing.Envelope, api *routing.Router) error {
	log.Infof("generator sending %d messages to [%s]", g.Count, g.Target)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for i := 0; i < g.Count; i++ {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-inbox:
			// any control message stops the run early
			if !ok {
				return nil
			}
			return nil
		case <-timer.C:
		}

		message := fmt.Sprintf("message-%d-%d", i, 1000+rand.IntN(9000))
		if _, err := api.SendToService(g.Target, message, false); err != nil {
			if _, err := api.SendToContainer(g.Target, message, false); err != nil {
				log.WithError(err).Warnf("generator failed to send to [%s]", g.Target)
			}
		}
		timer.Reset(g.Interval)
	}

	log.Info("generator finished")
	return nil
}

func init() {
	Register("generator", func(params map[string]any) (Workload, error) {
		interval := paramFloat(params, "interval", 2)
		return &Generator{
			Target:   paramString(params, "target", ""),
			Interval: time.Duration(interval * float64(time.Second)),
			Count:    paramInt(params, "count", 10),
		}, nil
	})
}
