// Package mailer hands rendered messages to SendGrid's v3 mail API.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
)

// Message is a fully rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid posts messages to /v3/mail/send.
type SendGrid struct {
	http     *resty.Client
	from     string
	fromName string
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

// NewSendGrid builds a client; the API key is required.
func NewSendGrid(cfg config.SendgridConfig) (*SendGrid, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &SendGrid{http: client, from: cfg.DefaultFrom, fromName: cfg.FromName}, nil
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}
	body := sgRequest{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To, Name: msg.ToName}}}},
		From:             sgAddress{Email: s.from, Name: s.fromName},
		Subject:          msg.Subject,
	}
	if msg.Text != "" {
		body.Content = append(body.Content, sgContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		body.Content = append(body.Content, sgContent{Type: "text/html", Value: msg.HTML})
	}
	if len(body.Content) == 0 {
		return errors.New("message body is empty")
	}

	var failure sgErrorBody
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&failure).
		Post("/v3/mail/send")
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.IsError() {
		if len(failure.Errors) > 0 {
			return fmt.Errorf("sendgrid %d: %s", resp.StatusCode(), failure.Errors[0].Message)
		}
		return fmt.Errorf("sendgrid %d", resp.StatusCode())
	}
	return nil
}

// Noop drops every message; used when emails are disabled.
type Noop struct{}

func (Noop) Send(context.Context, Message) error { return nil }
