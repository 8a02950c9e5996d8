package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	messages []*gomail.Message
	err      error
	delay    time.Duration
}

func (f *fakeSender) Send(ctx context.Context, m *gomail.Message) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.messages = append(f.messages, m)
	return f.err
}

func newTestMailer(s sender, timeout time.Duration) *SMTPMailer {
	return &SMTPMailer{
		cfg: Config{
			From:    "no-reply@example.com",
			Timeout: timeout,
			CodeTTL: 5 * time.Minute,
		},
		sender: s,
	}
}

func TestSMTPMailer_SendOTP(t *testing.T) {
	s := &fakeSender{}
	m := newTestMailer(s, time.Second)

	require.NoError(t, m.SendOTP(context.Background(), "a@x.com", "123456"))
	require.Len(t, s.messages, 1)

	msg := s.messages[0]
	assert.Equal(t, []string{"no-reply@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"a@x.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your TaskTracker OTP"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "123456")
	assert.Contains(t, buf.String(), "5 minutes")
}

func TestSMTPMailer_SendOTP_RelayError(t *testing.T) {
	relayErr := errors.New("535 authentication failed")
	m := newTestMailer(&fakeSender{err: relayErr}, time.Second)

	err := m.SendOTP(context.Background(), "a@x.com", "123456")
	assert.ErrorIs(t, err, relayErr)
}

func TestSMTPMailer_SendOTP_Timeout(t *testing.T) {
	m := newTestMailer(&fakeSender{delay: 200 * time.Millisecond}, 10*time.Millisecond)

	err := m.SendOTP(context.Background(), "a@x.com", "123456")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewSMTPMailer_UsesImplicitTLSOn465(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.example.com", Port: 465})

	s, ok := m.sender.(*smtpSender)
	require.True(t, ok)
	assert.True(t, s.implicitTLS)

	m = NewSMTPMailer(Config{Host: "smtp.example.com", Port: 587})
	s = m.sender.(*smtpSender)
	assert.False(t, s.implicitTLS)
}

// startRelay accepts one connection and hands it to serve.
func startRelay(t *testing.T, serve func(conn net.Conn)) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestSMTPSender_DeliversThroughRelay(t *testing.T) {
	received := make(chan string, 1)
	host, port := startRelay(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		fmt.Fprint(conn, "220 relay ready\r\n")
		var data strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"):
				fmt.Fprint(conn, "250-relay\r\n250 8BITMIME\r\n")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				fmt.Fprint(conn, "250 ok\r\n")
			case cmd == "DATA":
				fmt.Fprint(conn, "354 go ahead\r\n")
				for {
					body, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if body == ".\r\n" {
						break
					}
					data.WriteString(body)
				}
				received <- data.String()
				fmt.Fprint(conn, "250 queued\r\n")
			case cmd == "QUIT":
				fmt.Fprint(conn, "221 bye\r\n")
				return
			default:
				fmt.Fprint(conn, "502 unknown\r\n")
			}
		}
	})

	m := &SMTPMailer{
		cfg:    Config{From: "no-reply@example.com", Timeout: 5 * time.Second, CodeTTL: time.Minute},
		sender: &smtpSender{host: host, port: port},
	}
	require.NoError(t, m.SendOTP(context.Background(), "a@x.com", "246810"))

	select {
	case body := <-received:
		assert.Contains(t, body, "246810")
		assert.Contains(t, body, "1 minute")
	case <-time.After(time.Second):
		t.Fatal("relay received no message")
	}
}

func TestSMTPSender_StalledRelayIsAbandoned(t *testing.T) {
	closed := make(chan struct{})
	host, port := startRelay(t, func(conn net.Conn) {
		// Never greets; wait for the client to hang up.
		io.Copy(io.Discard, conn)
		close(closed)
	})

	m := &SMTPMailer{
		cfg:    Config{From: "no-reply@example.com", Timeout: 50 * time.Millisecond},
		sender: &smtpSender{host: host, port: port},
	}

	start := time.Now()
	err := m.SendOTP(context.Background(), "a@x.com", "123456")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection to stalled relay was left open")
	}
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	host, port := startRelay(t, func(conn net.Conn) {
		io.Copy(io.Discard, conn)
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	s := &smtpSender{host: host, port: port}
	err := s.Send(ctx, NewOTPMessage("no-reply@example.com", "a@x.com", "123456", time.Minute))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHumanizeTTL(t *testing.T) {
	assert.Equal(t, "5 minutes", humanizeTTL(5*time.Minute))
	assert.Equal(t, "1 minute", humanizeTTL(time.Minute))
	assert.Equal(t, "1m30s", humanizeTTL(90*time.Second))
	assert.Equal(t, "a few minutes", humanizeTTL(0))
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.SendOTP(context.Background(), "a@x.com", "654321"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "654321", entries[0].ContextMap()["code"])
}
