package notify

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestSMTPDispatcherBuildsMessage(t *testing.T) {
	var gotAddr, gotHost, gotFrom string
	var gotTo []string
	var gotMsg string

	d := NewSMTPDispatcher("smtp.example.com", 587, "bot@example.com", "secret", "")
	d.sendMail = func(_ context.Context, addr, host string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotHost, gotFrom, gotTo, gotMsg = addr, host, from, to, string(msg)
		return nil
	}

	err := d.Send(context.Background(), "user@example.com", "Task \"Pay rent\" is due March 5, 2025 at 9:00 AM")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || gotHost != "smtp.example.com" {
		t.Fatalf("addr = %q, host = %q", gotAddr, gotHost)
	}
	if gotFrom != "bot@example.com" {
		t.Fatalf("from defaults to username, got %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Fatalf("to = %#v", gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Task Reminder") || !strings.Contains(gotMsg, "Pay rent") {
		t.Fatalf("unexpected message: %q", gotMsg)
	}
}

func TestSMTPDispatcherRejectsEmptyDestination(t *testing.T) {
	d := NewSMTPDispatcher("smtp.example.com", 587, "bot@example.com", "secret", "")
	d.sendMail = func(context.Context, string, string, smtp.Auth, string, []string, []byte) error {
		t.Fatalf("sendMail must not be called")
		return nil
	}
	if err := d.Send(context.Background(), "  ", "msg"); !errors.Is(err, ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
}

func TestSMTPDispatcherHonoursCancelledContext(t *testing.T) {
	d := NewSMTPDispatcher("smtp.example.com", 587, "bot@example.com", "secret", "")
	called := false
	d.sendMail = func(context.Context, string, string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Send(ctx, "user@example.com", "msg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("sendMail called after cancellation")
	}
}

// A server that accepts connections but never sends its greeting must not
// hold Send past the context deadline.
func TestSMTPDispatcherTimesOutOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Hold the connection open, say nothing.
		<-done
		_ = conn.Close()
	}()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("unexpected listener address %T", ln.Addr())
	}
	d := NewSMTPDispatcher("127.0.0.1", addr.Port, "bot@example.com", "secret", "")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = d.Send(ctx, "user@example.com", "msg")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed > 2*time.Second {
		t.Fatalf("Send blocked %s past a 200ms deadline", elapsed)
	}
}
