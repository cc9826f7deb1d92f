package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*BrevoMailer)(nil)

// BrevoMailer sends transactional email through the Brevo v3 REST API.
type BrevoMailer struct {
	apiKey  string
	baseURL string
	from    brevoAddress
	client  *http.Client
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"` // base64
}

type brevoRequest struct {
	Sender      brevoAddress      `json:"sender"`
	To          []brevoAddress    `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

func NewBrevoMailer(cfg config.MailConfig) *BrevoMailer {
	return &BrevoMailer{
		apiKey:  cfg.Brevo.APIKey,
		baseURL: strings.TrimRight(cfg.Brevo.BaseURL, "/"),
		from:    brevoAddress{Name: cfg.SenderName, Email: cfg.SenderEmail},
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (b *BrevoMailer) Send(ctx context.Context, e adapter.Email) error {
	payload := brevoRequest{
		Sender:      b.from,
		To:          []brevoAddress{{Name: e.ToName, Email: e.To}},
		Subject:     e.Subject,
		HTMLContent: e.HTML,
	}
	for _, a := range e.Attachments {
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Name:    a.Name,
			Content: base64.StdEncoding.EncodeToString(a.Data),
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMailFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: brevo http %d: %s", domain.ErrMailFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
