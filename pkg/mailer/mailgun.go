package mailer

import (
	"context"
	"net/http"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun delivers through Mailgun stored templates, so subject lines and
// bodies live provider-side and the engine only routes template ids.
type Mailgun struct {
	Domain string
	APIKey string
	Sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender}
}

func (m *Mailgun) Deliver(ctx context.Context, to, templateID string, variables map[string]any) error {
	client := mg.NewMailgun(m.Domain, m.APIKey)
	msg := client.NewMessage(m.Sender, "", "", to)
	msg.SetTemplate(templateID)
	for k, v := range variables {
		if err := msg.AddTemplateVariable(k, v); err != nil {
			return &PermanentError{Reason: "bad template variable " + k + ": " + err.Error()}
		}
	}
	_, _, err := client.Send(ctx, msg)
	if err == nil {
		return nil
	}
	// Mailgun answers 4xx for rejected addresses and malformed requests;
	// retrying those wastes the attempt budget.
	if status := mg.GetStatusFromErr(err); status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return &PermanentError{Reason: err.Error()}
	}
	return err
}
