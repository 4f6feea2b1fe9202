package workload

import (
	"context"

	"github.com/openkiss/kiss/kernel/routing"
	"github.com/pkg/errors"
)

// Calculator serves request-reply arithmetic. Requests are maps with an
// "operation" (sum, product, average) and numeric "operands".
type Calculator struct{}

func (c *Calculator) Run(ctx context.Context, inbox <-chan routing.Envelope, api *routing.Router) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope, ok := <-inbox:
			if !ok {
				return nil
			}
			if !envelope.IsRequest() {
				log.Info("calculator: ignoring non-request message")
				continue
			}
			result, err := c.calculate(envelope.Value)
			if err != nil {
				envelope.Reply.Fail(err)
				continue
			}
			envelope.Reply.Resolve(result)
		}
	}
}

func (c *Calculator) calculate(request any) (float64, error) {
	req, ok := request.(map[string]any)
	if !ok {
		return 0, errors.Errorf("calculator request must be a map, got %T", request)
	}
	operation, _ := req["operation"].(string)
	operands, err := toFloats(req["operands"])
	if err != nil {
		return 0, err
	}

	switch operation {
	case "sum":
		total := 0.0
		for _, x := range operands {
			total += x
		}
		return total, nil
	case "product":
		product := 1.0
		for _, x := range operands {
			product *= x
		}
		return product, nil
	case "average":
		if len(operands) == 0 {
			return 0, nil
		}
		total := 0.0
		for _, x := range operands {
			total += x
		}
		return total / float64(len(operands)), nil
	default:
		return 0, errors.Errorf("unknown operation '%s'", operation)
	}
}

func toFloats(v any) ([]float64, error) {
	entries, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, errors.Errorf("operands must be a list, got %T", v)
	}
	out := make([]float64, 0, len(entries))
	for _, e := range entries {
		switch n := e.(type) {
		case int:
			out = append(out, float64(n))
		case int64:
			out = append(out, float64(n))
		case float64:
			out = append(out, n)
		default:
			return nil, errors.Errorf("operand %v is not numeric", e)
		}
	}
	return out, nil
}

func init() {
	Register("calculator", func(params map[string]any) (Workload, error) {
		return &Calculator{}, nil
	})
}
