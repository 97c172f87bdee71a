package rabbitmq

import (
	"strings"

	"github.com/baechuer/forgot-password/internal/domain"
)

const (
	DefaultExchange = "auth.events"

	RKPasswordResetRequested = "auth.password.reset.requested"
)

// ResetRequestedEvent is the wire form of domain.ResetRequest.
type ResetRequestedEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"url"`
}

func eventFromRequest(req domain.ResetRequest) ResetRequestedEvent {
	return ResetRequestedEvent{
		UserID: req.User.ID,
		Email:  req.User.Email,
		Name:   req.User.Name,
		URL:    req.URL,
	}
}

func (e ResetRequestedEvent) toRequest() domain.ResetRequest {
	return domain.ResetRequest{
		User: domain.User{
			ID:    strings.TrimSpace(e.UserID),
			Email: strings.TrimSpace(e.Email),
			Name:  e.Name,
		},
		URL: strings.TrimSpace(e.URL),
	}
}
