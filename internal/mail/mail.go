// Package mail delivers confirmation codes to users.
package mail

import (
	"context" // Cancellation for outbound delivery
	"fmt"     // Error wrapping
	"net"     // Relay connections
	"strconv" // Port parsing
	"sync"    // Connection bookkeeping
	"time"    // Relay timeouts

	"github.com/sirupsen/logrus"          // Logrus for structured logging
	gomail "github.com/wneessen/go-mail" // SMTP client and message builder
)

// DefaultTimeout bounds a relay conversation when SMTPSender.Timeout is unset
const DefaultTimeout = 15 * time.Second

// Sender delivers a plain text message to a single recipient
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through an SMTP relay, upgrading to STARTTLS when offered
type SMTPSender struct {
	Host     string        // Relay host
	Port     string        // Relay port
	Username string        // PLAIN auth is used when set
	Password string        // Relay password
	From     string        // Sender address
	Timeout  time.Duration // Per-connection limit, DefaultTimeout when zero
}

// Send implements Sender. The relay conversation ends at the context deadline or when ctx is cancelled.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, release, err := s.newClient(ctx)
	if err != nil {
		return err
	}
	defer release()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if ctxErr := contextErr(ctx); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}

// contextErr is ctx.Err, also reporting a deadline the connection hit before the context timer fired
func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return context.DeadlineExceeded
	}
	return nil
}

// newClient configures a relay client whose connections follow ctx; release must be called once sending is done
func (s *SMTPSender) newClient(ctx context.Context) (*gomail.Client, func(), error) {
	port, err := strconv.Atoi(s.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid SMTP port %q: %w", s.Port, err)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var (
		mu    sync.Mutex
		stops []func() bool
	)
	release := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, stop := range stops {
			stop()
		}
	}
	dial := func(dialCtx context.Context, network, address string) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		deadline := time.Now().Add(timeout)
		if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
			deadline = dl
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		// Cancelling ctx unblocks any pending read or write
		stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
		mu.Lock()
		stops = append(stops, stop)
		mu.Unlock()
		return conn, nil
	}

	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTimeout(timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithDialContextFunc(dial),
	}
	if s.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.Username),
			gomail.WithPassword(s.Password),
		)
	}
	client, err := gomail.NewClient(s.Host, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure SMTP client: %w", err)
	}
	return client, release, nil
}

// LogSender writes messages to the log instead of delivering them
type LogSender struct{}

// Send implements Sender
func (LogSender) Send(_ context.Context, to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info(body)
	return nil
}

// ConfirmationMessage returns the subject and body of the signup email
func ConfirmationMessage(username, code string) (string, string) {
	subject := "Your confirmation code"
	body := "Hello, " + username + ".\n" +
		"Use this confirmation code to obtain an API token:\n" + code
	return subject, body
}
