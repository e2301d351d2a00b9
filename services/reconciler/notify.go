package reconciler

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/timezone"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

// EmailNotifier mails a summary of the listings a run added. Runs that
// added nothing are not reported.
type EmailNotifier struct {
	config SmtpConfig
	send   func(mail *email.Email) error
}

func NewEmailNotifier(config SmtpConfig) EmailNotifier {
	n := EmailNotifier{config: config}
	n.send = n.sendSmtp
	return n
}

func (n EmailNotifier) sendSmtp(mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	return err
}

func (n EmailNotifier) Notify(ctx context.Context, report Report) error {
	if len(report.NewAddresses) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "EmailNotifier.Notify")
	defer span.End()
	span.SetAttributes(
		attribute.String("county", report.County),
		attribute.Int("new", len(report.NewAddresses)),
	)

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Foreclosure Listings <%s>", n.config.EmailAddress)
	mail.To = n.config.To
	mail.Subject = fmt.Sprintf(
		"%d new sheriff sale listings in %s",
		len(report.NewAddresses), report.County,
	)
	mail.Text = []byte(summary(report))

	err := n.send(mail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

func summary(report Report) string {
	byAddress := listing.IndexOf(report.Batch)

	var b strings.Builder
	fmt.Fprintf(
		&b, "%s run at %s: %d inserted, %d updated, %d listings stored.\n\n",
		report.County,
		report.StartedAt.In(timezone.Location).Format("Jan 2, 2006 3:04 PM MST"),
		report.Inserted, report.Updated, report.TotalAfter,
	)
	for _, address := range report.NewAddresses {
		rec := byAddress[address]
		fmt.Fprintf(&b, "- %s", address)
		if rec.SaleDate != "" {
			fmt.Fprintf(&b, " (sale %s)", rec.SaleDate)
		}
		if rec.Price != nil {
			fmt.Fprintf(&b, " $%.2f", *rec.Price)
		}
		if rec.DetailUrl != "" {
			fmt.Fprintf(&b, "\n  %s", rec.DetailUrl)
		}
		b.WriteString("\n")
	}
	return b.String()
}
