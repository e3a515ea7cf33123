package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Sentinel errors for mail delivery failures.
var (
	ErrMailUnreachable = errors.New("mail service unreachable")
	ErrMailRejected    = errors.New("mail service rejected message")
	ErrMailTimeout     = errors.New("mail send timeout")
)

// SendGridClient implements Notifier using the SendGrid v3 mail send API.
type SendGridClient struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

// NewSendGridClient creates a new SendGrid mail client.
func NewSendGridClient(baseURL, apiKey, from string, timeout time.Duration) *SendGridClient {
	return &SendGridClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *SendGridClient) Send(ctx context.Context, message, recipient, subject string) error {
	payload := sendRequest{
		Personalizations: []personalization{{
			To: []address{{Email: recipient}},
		}},
		From:    address{Email: c.from},
		Subject: subject,
		Content: []content{{Type: "text/plain", Value: message}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}

	u := fmt.Sprintf("%s/v3/mail/send", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrMailRejected, resp.StatusCode)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrMailTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrMailTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrMailUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrMailUnreachable, err)
}

// --- SendGrid request types ---

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Compile-time check that SendGridClient implements Notifier.
var _ Notifier = (*SendGridClient)(nil)
