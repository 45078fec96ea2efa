package dtcapi

import (
	"context"

	"github.com/dtcinsights/dtc-insights/internal/domain/assistant"
)

const endpointChat = "chat"

type chatRequest struct {
	Message      string  `json:"message"`
	VehicleKey   *string `json:"vehicle_key"`
	CustomerName *string `json:"customer_name"`
	Hours        int     `json:"hours"`
	Minutes      int     `json:"minutes"`
	Days         int     `json:"days"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat forwards a question to the DTC agent. Failures carry the agent's
// detail message when the body has one.
func (c *Client) Chat(ctx context.Context, req assistant.Request) (string, error) {
	payload := chatRequest{
		Message:      req.Message,
		VehicleKey:   nonEmpty(req.VehicleKey),
		CustomerName: nonEmpty(req.CustomerName),
		Hours:        req.Hours,
		Minutes:      req.Minutes,
		Days:         req.Days,
	}
	var resp chatResponse
	if err := c.postJSON(ctx, endpointChat, "/chat", payload, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
