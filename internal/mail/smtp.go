package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/leafsii/leafsii-cms/internal/config"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"go.uber.org/zap"
)

// ErrNotConfigured means neither the settings row nor the environment name
// a mail server
var ErrNotConfigured = errors.New("mail server not configured")

// SettingsSource supplies the current mail transport fields
type SettingsSource interface {
	Get(ctx context.Context) (*entities.Settings, error)
}

// Transport is the resolved SMTP endpoint for one send
type Transport struct {
	Server   string
	Port     int
	UseTLS   bool
	Username string
	Password string
	From     string
}

func (t Transport) Addr() string {
	return net.JoinHostPort(t.Server, strconv.Itoa(t.Port))
}

// SMTPSender delivers mail through the server named in settings, falling
// back to the environment configuration. The transport is resolved per send
// so settings edits apply immediately.
type SMTPSender struct {
	settings SettingsSource
	fallback config.MailConfig
	timeout  time.Duration
	logger   *zap.SugaredLogger

	unconfigured Sender
}

func NewSMTPSender(settings SettingsSource, fallback config.MailConfig, logger *zap.SugaredLogger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SMTPSender{
		settings: settings,
		fallback: fallback,
		timeout:  15 * time.Second,
		logger:   logger,
	}
}

// OnUnconfigured routes messages to next while no server is configured
func (s *SMTPSender) OnUnconfigured(next Sender) *SMTPSender {
	s.unconfigured = next
	return s
}

// Resolve picks the transport for the next send
func (s *SMTPSender) Resolve(ctx context.Context) (Transport, error) {
	fb := s.fallback
	t := Transport{
		Server:   fb.Server,
		Port:     fb.Port,
		UseTLS:   fb.UseTLS,
		Username: fb.Username,
		Password: fb.Password,
		From:     fb.DefaultSender,
	}

	if s.settings != nil {
		st, err := s.settings.Get(ctx)
		if err != nil {
			return Transport{}, fmt.Errorf("failed to load mail settings: %w", err)
		}
		if st.MailServer != "" {
			t = Transport{
				Server:   st.MailServer,
				Port:     st.MailPort,
				UseTLS:   st.MailUseTLS,
				Username: st.MailUsername,
				Password: st.MailPassword,
				From:     st.MailDefaultSender,
			}
		}
	}

	if t.Server == "" {
		return Transport{}, ErrNotConfigured
	}
	if t.Port == 0 {
		t.Port = 587
	}
	if t.From == "" {
		t.From = t.Username
	}
	if t.From == "" {
		return Transport{}, fmt.Errorf("%w: no sender address", ErrNotConfigured)
	}
	return t, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	t, err := s.Resolve(ctx)
	if errors.Is(err, ErrNotConfigured) && s.unconfigured != nil {
		return s.unconfigured.Send(ctx, msg)
	}
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, t, msg); err != nil {
		s.logger.Errorw("Mail delivery failed", "server", t.Addr(), "subject", msg.Subject, "error", err)
		return err
	}
	s.logger.Infow("Mail sent", "server", t.Addr(), "to", strings.Join(msg.To, ","), "subject", msg.Subject)
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, t Transport, msg Message) error {
	dialer := &net.Dialer{Timeout: s.timeout}
	var (
		conn net.Conn
		err  error
	)
	// 465 speaks TLS from the first byte; other ports upgrade with STARTTLS
	if t.UseTLS && t.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: t.Server}}).DialContext(ctx, "tcp", t.Addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", t.Addr())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.Addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(s.timeout))
	}

	c, err := smtp.NewClient(conn, t.Server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if t.UseTLS && t.Port != 465 {
		if err := c.StartTLS(&tls.Config{ServerName: t.Server}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if t.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", t.Username, t.Password, t.Server)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(t.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(compose(t.From, msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp DATA close: %w", err)
	}
	return c.Quit()
}

func compose(from string, msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.Bytes()
}
