package mailer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/mail"
	"net/url"
	"os"

	"github.com/dajohi/goemail"
	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

// Config holds the SMTP settings. Email is disabled when any of Host, User
// or Password is missing.
type Config struct {
	Host       string `json:"host" mapstructure:"host"`
	User       string `json:"user" mapstructure:"user"`
	Password   string `json:"password" mapstructure:"password"`
	From       string `json:"from" mapstructure:"from"`
	CertPath   string `json:"cert_path" mapstructure:"cert_path"`
	SkipVerify bool   `json:"skip_verify" mapstructure:"skip_verify"`
	BaseURL    string `json:"base_url" mapstructure:"base_url"`
}

// Enabled reports whether the SMTP credentials are complete
func (c Config) Enabled() bool {
	return c.Host != "" && c.User != "" && c.Password != ""
}

// sender is the part of goemail.SMTP the client uses
type sender interface {
	Send(msg *goemail.Message) error
}

// Client sends account notifications over SMTP. It implements
// accounts.Notifier.
type Client struct {
	smtp        sender
	renderer    *Renderer
	mailName    string
	mailAddress string
	disabled    bool
	logger      accounts.Logger
}

var _ accounts.Notifier = (*Client)(nil)

// Option customizes a Client
type Option func(*Client)

// WithLogger sets the logger
func WithLogger(logger accounts.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRenderer overrides the default templates
func WithRenderer(r *Renderer) Option {
	return func(c *Client) {
		if r != nil {
			c.renderer = r
		}
	}
}

// withSender replaces the SMTP transport
func withSender(s sender) Option {
	return func(c *Client) {
		c.smtp = s
	}
}

// New returns a Client for cfg. A disabled client is returned when the SMTP
// credentials are incomplete.
func New(cfg Config, opts ...Option) (*Client, error) {
	renderer, err := NewRenderer(cfg.BaseURL, DefaultTemplates())
	if err != nil {
		return nil, err
	}

	c := &Client{
		renderer: renderer,
		logger:   nopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if !cfg.Enabled() && c.smtp == nil {
		c.logger.Info("mail: DISABLED")
		c.disabled = true
		return c, nil
	}

	a, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid mail from address").
			WithMetadata(map[string]any{"from": cfg.From})
	}
	c.mailName = a.Name
	c.mailAddress = a.Address

	if c.smtp != nil {
		return c, nil
	}

	u, err := url.Parse(fmt.Sprintf("smtps://%v:%v@%v", cfg.User, cfg.Password, cfg.Host))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid mail host")
	}

	c.logger.Info("mail host: smtps://%v:[password]@%v", cfg.User, cfg.Host)

	tlsConfig, err := newTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	smtp, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set up smtp client")
	}
	c.smtp = smtp

	return c, nil
}

// IsEnabled returns whether the mail server is enabled.
func (c *Client) IsEnabled() bool {
	return !c.disabled
}

// Send implements accounts.Notifier.
func (c *Client) Send(ctx context.Context, templateID string, payload accounts.Notification) error {
	if c.disabled {
		c.logger.Debug("email is disabled; skipping %s for %s", templateID, payload.To)
		return nil
	}

	if payload.To == "" {
		return goerrors.New("notification has no recipient", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"template": templateID})
	}

	subject, body, err := c.renderer.Render(templateID, payload)
	if err != nil {
		return err
	}

	msg := goemail.NewMessage(c.mailAddress, subject, body)
	msg.SetName(c.mailName)
	msg.AddBCC(payload.To)

	done := make(chan error, 1)
	go func() {
		done <- c.smtp.Send(msg)
	}()

	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled while sending email")
	case err := <-done:
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send email").
				WithMetadata(map[string]any{"template": templateID})
		}
		return nil
	}
}

func newTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.SkipVerify,
	}

	if cfg.SkipVerify || cfg.CertPath == "" {
		return tlsConfig, nil
	}

	cert, err := os.ReadFile(cfg.CertPath)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read mail certificate").
			WithMetadata(map[string]any{"cert_path": cfg.CertPath})
	}

	certPool, err := x509.SystemCertPool()
	if err != nil {
		certPool = x509.NewCertPool()
	}
	certPool.AppendCertsFromPEM(cert)
	tlsConfig.RootCAs = certPool

	return tlsConfig, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
