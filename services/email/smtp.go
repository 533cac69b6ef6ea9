package emailsvc

import (
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
)

type smtpService struct {
	addr             string
	auth             smtp.Auth
	defaultFromEmail mail.Address
	subjPrefix       string
	logger           core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(logger core.Logger, conf *core.Config) *smtpService {
	var auth smtp.Auth
	if conf.SMTP.Username != "" {
		auth = smtp.PlainAuth("", conf.SMTP.Username, conf.SMTP.Password, conf.SMTP.Host)
	}
	return &smtpService{
		addr:             conf.SMTP.Address(),
		auth:             auth,
		defaultFromEmail: conf.DefaultFromEmail(),
		subjPrefix:       "[" + conf.AppName + "] ",
		logger:           logger,
	}
}

func (svc smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if msg.HasRecipients() && msg.HasContent() {
				svc.send(*msg)
			}
		}()
	}
}

func (svc smtpService) send(msg core.EmailMessage) {
	recipients := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	for _, addrs := range [][]mail.Address{msg.To, msg.Cc, msg.Bcc} {
		for _, a := range addrs {
			recipients = append(recipients, a.Address)
		}
	}

	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.defaultFromEmail.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if msg.HTMLContent != "" {
		_, _ = fmt.Fprint(body, "Content-Type: text/html; charset=utf-8\r\n\r\n")
		_, _ = fmt.Fprintf(body, "%s\r\n", msg.HTMLContent)
	} else {
		_, _ = fmt.Fprint(body, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
		_, _ = fmt.Fprintf(body, "%s\r\n", msg.TextContent)
	}

	if err := smtp.SendMail(svc.addr, svc.auth, svc.defaultFromEmail.Address, recipients, []byte(body.String())); err != nil {
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	}
}
