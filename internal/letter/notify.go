package letter

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/reoring/plasm"
	"github.com/reoring/plasm/codec"
	"github.com/reoring/plasm/config"
	"github.com/reoring/plasm/effect"
)

// SendFunc delivers one message. It matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier mails the staff whenever the publishing API stores a letter.
type Notifier struct {
	SMTP config.SMTP
	Log  *slog.Logger
	// Send defaults to implicit TLS on port 465 and smtp.SendMail otherwise.
	Send SendFunc
}

const subject = "New letter"

// Notify is the side effect run after a published letter is stored.
func (n *Notifier) Notify(ctx context.Context, e plasm.Entity) (effect.Outcome, error) {
	if !n.SMTP.Enabled() {
		return effect.Fail("smtp not configured"), nil
	}
	send := n.Send
	if send == nil {
		send = smtp.SendMail
		if n.SMTP.Port == 465 {
			send = sendTLS
		}
	}
	var auth smtp.Auth
	if n.SMTP.Username != "" {
		auth = smtp.PlainAuth("", n.SMTP.Username, n.SMTP.Password, n.SMTP.Host)
	}
	if err := send(n.SMTP.Addr(), auth, n.SMTP.From, []string{n.SMTP.To}, message(n.SMTP, e)); err != nil {
		return effect.Outcome{}, fmt.Errorf("send mail: %w", err)
	}
	if n.Log != nil {
		id, _ := e.ID()
		n.Log.InfoContext(ctx, "letter notification sent", slog.Int64("id", id))
	}
	return effect.Done(), nil
}

func message(c config.SMTP, e plasm.Entity) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.From)
	fmt.Fprintf(&b, "To: %s\r\n", c.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if s, ok := e.Values["createdAt"].(string); ok {
		if at, err := codec.Decode(s); err == nil {
			fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
		}
	}
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	id, _ := e.ID()
	fmt.Fprintf(&b, "A new letter (%d) has been stored.\r\n", id)
	if doc, ok := e.Values["document"].(string); ok && doc != "" {
		fmt.Fprintf(&b, "Document: %s\r\n", doc)
	}
	return []byte(b.String())
}

func sendTLS(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host := addr[:strings.LastIndex(addr, ":")]
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()
	if a != nil {
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
