package mail

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/leafsii/leafsii-cms/internal/config"
	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type staticSettings struct {
	settings *entities.Settings
	err      error
}

func (s staticSettings) Get(ctx context.Context) (*entities.Settings, error) {
	return s.settings, s.err
}

func TestResolvePrefersSettings(t *testing.T) {
	fallback := config.MailConfig{Server: "smtp.gmail.com", Port: 587, UseTLS: true, Username: "env@example.com"}

	sender := NewSMTPSender(staticSettings{settings: &entities.Settings{
		MailServer:        "mail.example.com",
		MailPort:          2525,
		MailUsername:      "db-user",
		MailPassword:      "db-pass",
		MailDefaultSender: "cms@example.com",
	}}, fallback, nil)

	tr, err := sender.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com:2525", tr.Addr())
	assert.Equal(t, "db-pass", tr.Password)
	assert.Equal(t, "cms@example.com", tr.From)
	assert.False(t, tr.UseTLS)
}

func TestResolveFallsBackToConfig(t *testing.T) {
	fallback := config.MailConfig{Server: "smtp.gmail.com", UseTLS: true, Username: "env@example.com"}

	sender := NewSMTPSender(staticSettings{settings: &entities.Settings{}}, fallback, nil)
	tr, err := sender.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "smtp.gmail.com:587", tr.Addr())
	assert.Equal(t, "env@example.com", tr.From)

	_, err = NewSMTPSender(staticSettings{settings: &entities.Settings{}}, config.MailConfig{}, nil).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSMTPSender(staticSettings{err: errors.New("db down")}, fallback, nil).Resolve(context.Background())
	assert.Error(t, err)
}

// fakeSMTP accepts one session and returns the DATA payload on the channel
func fakeSMTP(t *testing.T) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		tp.PrintfLine("220 localhost ESMTP")

		var data string
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				tp.PrintfLine("250 localhost")
			case strings.HasPrefix(line, "MAIL"), strings.HasPrefix(line, "RCPT"):
				tp.PrintfLine("250 OK")
			case line == "DATA":
				tp.PrintfLine("354 go ahead")
				b, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				data = string(b)
				tp.PrintfLine("250 queued")
			case line == "QUIT":
				tp.PrintfLine("221 bye")
				got <- data
				return
			default:
				tp.PrintfLine("502 not implemented")
			}
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, got
}

func TestSMTPSenderDelivers(t *testing.T) {
	port, got := fakeSMTP(t)

	sender := NewSMTPSender(staticSettings{settings: &entities.Settings{
		MailServer:        "127.0.0.1",
		MailPort:          port,
		MailDefaultSender: "cms@example.com",
	}}, config.MailConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := PasswordResetMessage("alice@example.com", "alice", "http://localhost:8080/admin/reset-password/abc")
	require.NoError(t, sender.Send(ctx, msg))

	select {
	case data := <-got:
		assert.Contains(t, data, "From: cms@example.com")
		assert.Contains(t, data, "To: alice@example.com")
		assert.Contains(t, data, "Subject: Password Reset Request")
		assert.Contains(t, data, "/admin/reset-password/abc")
	case <-time.After(5 * time.Second):
		t.Fatal("smtp server did not receive the message")
	}
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core).Sugar())

	require.NoError(t, sender.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi", Body: "body"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Hi", logs.All()[0].ContextMap()["subject"])
}

func TestSMTPSenderUnconfiguredFallsBackToLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSMTPSender(staticSettings{settings: &entities.Settings{}}, config.MailConfig{}, nil).
		OnUnconfigured(NewLogSender(zap.New(core).Sugar()))

	require.NoError(t, sender.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Reset"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Reset", logs.All()[0].ContextMap()["subject"])

	bare := NewSMTPSender(staticSettings{settings: &entities.Settings{}}, config.MailConfig{}, nil)
	assert.ErrorIs(t, bare.Send(context.Background(), Message{Subject: "Reset"}), ErrNotConfigured)
}
