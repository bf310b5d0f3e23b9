// Package notify mails the operator about runs that need attention.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"gaokao-admissions/lib/telemetry"
	"gaokao-admissions/lib/timezone"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("lib/notify")

type Config struct {
	SmtpServer   string   `json:"smtp_server"`
	SmtpPort     int      `json:"smtp_port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
	// StallEvery sends a rate limit notice every n consecutive retries, 0 never.
	StallEvery int `json:"stall_every"`
}

// Sender delivers one message, it exists so tests can capture mail.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// Notifier never fails the caller, delivery problems are only logged. The
// zero value and a Notifier without a configured server are silent.
type Notifier struct {
	sender     Sender
	stallEvery int
	runTag     string
}

func New(config Config, runTag string) Notifier {
	if config.SmtpServer == "" || len(config.To) == 0 {
		return Notifier{}
	}
	return Notifier{
		sender:     smtpSender{config: config},
		stallEvery: config.StallEvery,
		runTag:     runTag,
	}
}

// WithSender replaces the delivery mechanism.
func (n Notifier) WithSender(sender Sender, stallEvery int, runTag string) Notifier {
	n.sender = sender
	n.stallEvery = stallEvery
	n.runTag = runTag
	return n
}

func (n Notifier) Enabled() bool {
	return n.sender != nil
}

func (n Notifier) send(ctx context.Context, subject, body string) {
	if n.sender == nil {
		return
	}
	subject = fmt.Sprintf("[admissions %s] %s", n.runTag, subject)
	err := n.sender.Send(ctx, subject, body)
	if err != nil {
		slog.WarnContext(ctx, "failed to send notification", "subject", subject, "err", err)
	}
}

// RunAborted reports a fatal error together with the scrape flags that
// finish the run, one line per rerun.
func (n Notifier) RunAborted(ctx context.Context, report, institution string, resume []string, cause error) {
	n.send(ctx, fmt.Sprintf("%s run aborted", report), fmt.Sprintf(`The %s run stopped at %s.

Institution: %s
Resume with:
  %s

Error: %v`,
		report,
		timezone.Now().Format("2006-01-02 15:04:05"),
		institution,
		strings.Join(resume, "\n  "),
		cause,
	))
}

// RateLimitStall is meant as eol.EngineOptions.OnRateLimited.
func (n Notifier) RateLimitStall(ctx context.Context, retries int) {
	if n.stallEvery <= 0 || retries%n.stallEvery != 0 {
		return
	}
	n.send(ctx, "still rate limited", fmt.Sprintf(
		"The api has answered %d consecutive requests with a rate limit as of %s, the scraper keeps backing off.",
		retries,
		timezone.Now().Format("2006-01-02 15:04:05"),
	))
}

type smtpSender struct {
	config Config
}

func (s smtpSender) Send(ctx context.Context, subject, body string) error {
	ctx, span := tracer.Start(ctx, "notify:send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Admissions Scraper <%s>", s.config.EmailAddress)
	mail.To = s.config.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", s.config.SmtpServer, s.config.SmtpPort)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.SmtpServer),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
