package servicecall

import (
	"context"
	"fmt"

	"github.com/riskline/decisionengine/internal/listsvc"
	"github.com/riskline/decisionengine/internal/value"
)

// ListCaller exposes a listsvc.Service as a "list.*" servicecall.Caller,
// since the DSL's fixed step-kind set (spec §3) has no dedicated list step
// — list membership is reached from a pipeline the same way any other
// external collaborator is, through service_call.
type ListCaller struct {
	service *listsvc.Service
}

func NewListCaller(service *listsvc.Service) *ListCaller {
	return &ListCaller{service: service}
}

func (c *ListCaller) Call(ctx context.Context, service string, params map[string]value.Value, deadlineMs int) (map[string]value.Value, error) {
	listID := params["list_id"].String()

	switch service {
	case "list.contains":
		ok, err := c.service.Contains(ctx, listID, params["value"].String())
		if err != nil {
			return nil, err
		}
		return map[string]value.Value{"result": value.Bool(ok)}, nil

	case "list.add":
		if err := c.service.Add(ctx, listID, params["value"].String()); err != nil {
			return nil, err
		}
		return map[string]value.Value{"result": value.Bool(true)}, nil

	case "list.remove":
		if err := c.service.Remove(ctx, listID, params["value"].String()); err != nil {
			return nil, err
		}
		return map[string]value.Value{"result": value.Bool(true)}, nil

	case "list.get_all":
		values, err := c.service.GetAll(ctx, listID)
		if err != nil {
			return nil, err
		}
		items := make([]value.Value, len(values))
		for i, v := range values {
			items[i] = value.String(v)
		}
		return map[string]value.Value{"result": value.List(items)}, nil

	default:
		return nil, fmt.Errorf("servicecall: unknown list operation %q", service)
	}
}
