// Package mailer delivers one-time passwords by email.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const otpSubject = "Your TaskTracker OTP"

const otpBody = `Hello,

Your OTP for TaskTracker login is:

    %s

This OTP is valid for %s.
Do not share it with anyone.

- TaskTracker Team
`

// Config holds the mail relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
	// CodeTTL is mentioned in the message body.
	CodeTTL time.Duration
}

type sender interface {
	Send(ctx context.Context, m *gomail.Message) error
}

// SMTPMailer sends codes through an SMTP relay. Port 465 uses implicit
// TLS, any other port upgrades with STARTTLS.
type SMTPMailer struct {
	cfg    Config
	sender sender
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{
		cfg: cfg,
		sender: &smtpSender{
			host:        cfg.Host,
			port:        cfg.Port,
			username:    cfg.Username,
			password:    cfg.Password,
			implicitTLS: cfg.Port == 465,
		},
	}
}

// SendOTP delivers code to recipient synchronously. There is no retry.
// The whole SMTP session is bounded by ctx and cfg.Timeout.
func (m *SMTPMailer) SendOTP(ctx context.Context, recipient, code string) error {
	msg := NewOTPMessage(m.cfg.From, recipient, code, m.cfg.CodeTTL)

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	zap.L().Info("OTP email sent", zap.String("to", recipient))
	return nil
}

// smtpSender runs one SMTP session per message on a connection that is
// closed as soon as the context ends.
type smtpSender struct {
	host        string
	port        int
	username    string
	password    string
	implicitTLS bool
}

func (s *smtpSender) Send(ctx context.Context, m *gomail.Message) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Closing the connection unblocks whatever step of the session is
	// waiting on the relay.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	err = s.session(ctx, conn, m)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (s *smtpSender) session(ctx context.Context, conn net.Conn, m *gomail.Message) error {
	tlsConfig := &tls.Config{ServerName: s.host}

	if s.implicitTLS {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return err
		}
		conn = tlsConn
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer c.Close()

	if !s.implicitTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	if s.username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
				return err
			}
		}
	}

	send := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		if err := c.Mail(from); err != nil {
			return err
		}
		for _, addr := range to {
			if err := c.Rcpt(addr); err != nil {
				return err
			}
		}
		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := msg.WriteTo(w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
	if err := gomail.Send(send, m); err != nil {
		return err
	}
	return c.Quit()
}

// NewOTPMessage composes the plaintext OTP email.
func NewOTPMessage(from, to, code string, ttl time.Duration) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", otpSubject)
	m.SetBody("text/plain", fmt.Sprintf(otpBody, code, humanizeTTL(ttl)))
	return m
}

func humanizeTTL(ttl time.Duration) string {
	if ttl <= 0 {
		return "a few minutes"
	}
	if ttl%time.Minute == 0 {
		minutes := int(ttl / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return ttl.String()
}

// LogMailer writes codes to the log instead of sending them. Local
// development only.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendOTP(_ context.Context, recipient, code string) error {
	m.log.Warn("OTP email not sent, mail driver is log",
		zap.String("to", recipient),
		zap.String("code", code),
	)
	return nil
}
