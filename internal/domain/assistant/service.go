package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	apperrors "github.com/dtcinsights/dtc-insights/pkg/errors"
)

const (
	defaultHours   = 24
	defaultMinutes = 60
	defaultDays    = 30
	maxMessageLen  = 4000

	// EmptyReply is shown when the agent answers with nothing.
	EmptyReply = "(sem resposta)"
	// ErrMsgAssistant is shown when the agent cannot be reached.
	ErrMsgAssistant = "Erro ao consultar o assistente."
)

// Request is a question for the DTC agent, optionally scoped to one vehicle
// (plate, IMEI or last 8 of the chassis) or one customer.
type Request struct {
	Message      string `json:"message"`
	VehicleKey   string `json:"vehicleKey,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	Hours        int    `json:"hours,omitempty"`
	Minutes      int    `json:"minutes,omitempty"`
	Days         int    `json:"days,omitempty"`
}

// Response carries the agent's answer.
type Response struct {
	Reply string `json:"reply"`
}

// Client talks to the upstream agent.
type Client interface {
	Chat(ctx context.Context, req Request) (string, error)
}

// Service answers dashboard chat messages.
type Service interface {
	Ask(ctx context.Context, req Request) (Response, error)
}

type service struct {
	client Client
	logger *slog.Logger
}

func NewService(client Client, logger *slog.Logger) Service {
	return &service{client: client, logger: logger.With("component", "assistant.service")}
}

func (s *service) Ask(ctx context.Context, req Request) (Response, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "message cannot be empty", nil)
	}
	if len([]rune(req.Message)) > maxMessageLen {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "message is too long", nil)
	}
	req.VehicleKey = strings.TrimSpace(req.VehicleKey)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.Hours <= 0 {
		req.Hours = defaultHours
	}
	if req.Minutes <= 0 {
		req.Minutes = defaultMinutes
	}
	if req.Days <= 0 {
		req.Days = defaultDays
	}

	reply, err := s.client.Chat(ctx, req)
	if err != nil {
		s.logger.Error("assistant chat failed", "vehicle_key", req.VehicleKey, "error", err)
		return Response{}, apperrors.Wrap(apperrors.CodeAssistant, failureMessage(err), err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = EmptyReply
	}
	return Response{Reply: reply}, nil
}

// detailer is implemented by upstream errors that carry the agent's own
// explanation (a "detail" or "message" field).
type detailer interface {
	Detail() string
}

func failureMessage(err error) string {
	var d detailer
	if errors.As(err, &d) && strings.TrimSpace(d.Detail()) != "" {
		return ErrMsgAssistant + " " + strings.TrimSpace(d.Detail())
	}
	return ErrMsgAssistant
}
