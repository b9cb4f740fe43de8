package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/shopsence/user-service/internal/core/domain"
)

const (
	defaultBaseURL = "https://api.resend.com/"
	defaultFrom    = "ShopSence <noreply@shopsence.com>"
	defaultTimeout = 10 * time.Second

	verificationSubject = "Email Verification"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`
<h3>Hello {{.FullName}},</h3>
<p>Please verify your email by clicking below:</p>
<a href="{{.Link}}">Verify Email</a>
`))

// Config holds the Resend API settings.
type Config struct {
	APIKey  string
	From    string
	BaseURL string
	Timeout time.Duration
}

// ResendClient sends transactional mail through the Resend SDK.
type ResendClient struct {
	client *resend.Client
	from   string
}

// NewResendClient builds the SDK client. BaseURL overrides the API host,
// which tests point at a local server.
func NewResendClient(cfg Config) (*ResendClient, error) {
	from := cfg.From
	if from == "" {
		from = defaultFrom
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(defaultBaseURL, "/")
	}
	baseURL, err := url.Parse(base + "/")
	if err != nil {
		return nil, fmt.Errorf("resend base url: %w", err)
	}

	client := resend.NewCustomClient(&http.Client{Timeout: timeout}, cfg.APIKey)
	client.BaseURL = baseURL

	return &ResendClient{client: client, from: from}, nil
}

// SendVerificationEmail renders the verification message and sends it.
// Anything the provider answers with other than success is reported as
// domain.ErrDeliveryRejected; transport failures are returned as is.
func (c *ResendClient) SendVerificationEmail(ctx context.Context, msg domain.VerificationEmail) error {
	html, err := renderVerification(msg)
	if err != nil {
		return err
	}

	_, err = c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: verificationSubject,
		Html:    html,
	})
	if err == nil {
		return nil
	}

	var transportErr *url.Error
	if errors.As(err, &transportErr) {
		return fmt.Errorf("send email request: %w", err)
	}
	return fmt.Errorf("%w: %v", domain.ErrDeliveryRejected, err)
}

func renderVerification(msg domain.VerificationEmail) (string, error) {
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("render verification email: %w", err)
	}
	return buf.String(), nil
}

// LogMailer writes verification links to the log instead of sending them.
// It stands in for Resend when no API key is configured.
type LogMailer struct {
	Log zerolog.Logger
}

func (m LogMailer) SendVerificationEmail(_ context.Context, msg domain.VerificationEmail) error {
	m.Log.Info().Str("to", msg.To).Str("link", msg.Link).Msg("verification email (not sent: mail provider disabled)")
	return nil
}
