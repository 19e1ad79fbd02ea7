package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"

	"assogest/internal/config"
	"assogest/internal/models"
)

// DeliveryResult is the gateway's answer for a successful dispatch.
type DeliveryResult struct {
	ProviderRef string
}

// DeliveryGateway dispatches a rendered reminder over a channel. The
// wire protocol is the provider's business; the engine only needs the
// outcome and an optional provider reference.
type DeliveryGateway interface {
	Send(ctx context.Context, channel models.ReminderChannel, recipient, subject, body string) (DeliveryResult, error)
}

// SMTPEmailGateway delivers email reminders over plain SMTP.
type SMTPEmailGateway struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

// NewSMTPEmailGateway builds the email gateway from configuration.
func NewSMTPEmailGateway(cfg config.SMTPConfig) *SMTPEmailGateway {
	return &SMTPEmailGateway{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
	}
}

func (g *SMTPEmailGateway) Send(ctx context.Context, channel models.ReminderChannel, recipient, subject, body string) (DeliveryResult, error) {
	if g.host == "" || g.port == "" || g.user == "" || g.password == "" {
		return DeliveryResult{}, fmt.Errorf("SMTP credentials not fully configured")
	}

	auth := smtp.PlainAuth("", g.user, g.password, g.host)

	message := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", recipient, subject, body))

	addr := fmt.Sprintf("%s:%s", g.host, g.port)

	if err := smtp.SendMail(addr, auth, g.from, []string{recipient}, message); err != nil {
		return DeliveryResult{}, fmt.Errorf("failed to send email: %w", err)
	}

	return DeliveryResult{ProviderRef: "smtp:" + recipient}, nil
}

// HTTPMessagingGateway delivers SMS and letter reminders through an
// external messaging provider's HTTP API.
type HTTPMessagingGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPMessagingGateway builds the messaging gateway from
// configuration.
func NewHTTPMessagingGateway(cfg config.MessagingConfig) *HTTPMessagingGateway {
	return &HTTPMessagingGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{},
	}
}

type messagingResponse struct {
	ID string `json:"id"`
}

func (g *HTTPMessagingGateway) Send(ctx context.Context, channel models.ReminderChannel, recipient, subject, body string) (DeliveryResult, error) {
	endpoint := "/api/messages/sms"
	if channel == models.ReminderChannelLetter {
		endpoint = "/api/messages/letter"
	}

	payload := map[string]string{
		"to":      recipient,
		"subject": subject,
		"body":    body,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, bytes.NewBuffer(data))
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return DeliveryResult{}, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed messagingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Provider reference is optional; a successful send without one
		// is still a success.
		return DeliveryResult{}, nil
	}

	return DeliveryResult{ProviderRef: parsed.ID}, nil
}

// ChannelRouter routes each reminder channel to its gateway.
type ChannelRouter struct {
	Email  DeliveryGateway
	SMS    DeliveryGateway
	Letter DeliveryGateway
}

// NewChannelRouter wires the default gateways: SMTP for email, the HTTP
// messaging provider for SMS and letters.
func NewChannelRouter(cfg config.Config) *ChannelRouter {
	messaging := NewHTTPMessagingGateway(cfg.Messaging)
	return &ChannelRouter{
		Email:  NewSMTPEmailGateway(cfg.SMTP),
		SMS:    messaging,
		Letter: messaging,
	}
}

func (r *ChannelRouter) Send(ctx context.Context, channel models.ReminderChannel, recipient, subject, body string) (DeliveryResult, error) {
	var gateway DeliveryGateway
	switch channel {
	case models.ReminderChannelEmail:
		gateway = r.Email
	case models.ReminderChannelSMS:
		gateway = r.SMS
	case models.ReminderChannelLetter:
		gateway = r.Letter
	default:
		return DeliveryResult{}, fmt.Errorf("no delivery gateway for channel %q", channel)
	}
	return gateway.Send(ctx, channel, recipient, subject, body)
}
