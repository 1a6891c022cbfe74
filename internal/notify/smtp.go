package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPDispatcher emails reminders. Destination is the recipient address.
// The context's deadline bounds the whole exchange: the dial and every
// protocol read/write carry it as a connection deadline, so a hung server
// surfaces as a timeout error instead of stalling the caller.
type SMTPDispatcher struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string

	// sendMail is swapped in tests.
	sendMail func(ctx context.Context, addr, host string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPDispatcher(host string, port int, username, password, from string) *SMTPDispatcher {
	if from == "" {
		from = username
	}
	return &SMTPDispatcher{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		Subject:  "Task Reminder",
		sendMail: sendMailContext,
	}
}

func (d *SMTPDispatcher) Send(ctx context.Context, destination, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(destination) == "" {
		return ErrNoDestination
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", d.From)
	fmt.Fprintf(&b, "To: %s\r\n", destination)
	fmt.Fprintf(&b, "Subject: %s\r\n", d.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(message)
	b.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", d.Host, d.Port)
	auth := smtp.PlainAuth("", d.Username, d.Password, d.Host)
	if err := d.sendMail(ctx, addr, d.Host, auth, d.From, []string{destination}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", destination, err)
	}
	return nil
}

// sendMailContext is smtp.SendMail with the context's deadline applied to
// the connection, which smtp.SendMail itself cannot do.
func sendMailContext(ctx context.Context, addr, host string, a smtp.Auth, from string, to []string, msg []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return err
		}
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
