package notification

import (
	"context"
	"strings"
	"testing"
)

func newTestManager() (*Manager, *MockEmailSender, *MockSMSSender) {
	email := &MockEmailSender{}
	sms := &MockSMSSender{}
	return NewManager(email, sms, NewTemplateEngine()), email, sms
}

func TestRender(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render("queue-admission", map[string]string{
		"patient_name":   "Jordan Okafor",
		"department":     "Laboratory",
		"queue_number":   "4",
		"estimated_wait": "30",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "You have joined the Laboratory queue" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "number 4") || !strings.Contains(body, "30 minutes") {
		t.Errorf("body = %q", body)
	}

	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRender_MissingKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render("lab-result-ready", map[string]string{"patient_name": "A"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(body, "{{completed_count}}") {
		t.Errorf("unfilled placeholder should remain, body = %q", body)
	}
}

func TestSend(t *testing.T) {
	mgr, email, _ := newTestManager()
	ctx := context.Background()

	n := &Notification{Type: TypeEmail, Recipient: "patient@example.com", Subject: "s", Body: "b"}
	if err := mgr.Send(ctx, n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n.Status != "sent" || n.SentAt == nil {
		t.Errorf("notification = %+v", n)
	}
	if len(email.Calls()) != 1 {
		t.Errorf("email calls = %d, want 1", len(email.Calls()))
	}
}

func TestSend_FailureRecorded(t *testing.T) {
	mgr, email, _ := newTestManager()
	email.ShouldFail = true
	email.FailError = "smtp down"
	ctx := context.Background()

	n := &Notification{Type: TypeEmail, Recipient: "patient@example.com", Body: "b"}
	if err := mgr.Send(ctx, n); err == nil {
		t.Fatal("expected send error")
	}
	if n.Status != "failed" || n.Error != "smtp down" {
		t.Errorf("notification = %+v", n)
	}

	got, err := mgr.Get(ctx, n.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("stored status = %s", got.Status)
	}
}

func TestSend_SMS(t *testing.T) {
	mgr, _, sms := newTestManager()

	n := &Notification{Type: TypeSMS, Recipient: "+2348012345678", Body: "b"}
	if err := mgr.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sms.Calls()) != 1 {
		t.Errorf("sms calls = %d, want 1", len(sms.Calls()))
	}
}

func TestRetry(t *testing.T) {
	mgr, email, _ := newTestManager()
	email.ShouldFail = true
	email.FailError = "smtp down"
	ctx := context.Background()

	n := &Notification{Type: TypeEmail, Recipient: "patient@example.com", Body: "b"}
	mgr.Send(ctx, n)

	email.ShouldFail = false
	if err := mgr.Retry(ctx, n.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	got, _ := mgr.Get(ctx, n.ID)
	if got.Status != "sent" || got.Error != "" {
		t.Errorf("retried notification = %+v", got)
	}

	// Only failed notifications are retryable.
	if err := mgr.Retry(ctx, n.ID); err == nil {
		t.Error("retry of sent notification should fail")
	}
}

func TestDispatcher_AdmissionNotice(t *testing.T) {
	mgr, email, _ := newTestManager()
	d := NewDispatcher(mgr)
	ctx := context.Background()

	d.AdmissionNotice(ctx, "patient@example.com", "Jordan Okafor", "Laboratory", 4, 30)

	calls := email.Calls()
	if len(calls) != 1 {
		t.Fatalf("email calls = %d, want 1", len(calls))
	}
	if !strings.Contains(calls[0].Body, "Jordan Okafor") || !strings.Contains(calls[0].Body, "Laboratory") {
		t.Errorf("body = %q", calls[0].Body)
	}
}

func TestDispatcher_SkipsEmptyRecipient(t *testing.T) {
	mgr, email, _ := newTestManager()
	d := NewDispatcher(mgr)

	d.ResultsReady(context.Background(), "", "Jordan Okafor", 2)
	if len(email.Calls()) != 0 {
		t.Error("notice without recipient should be skipped")
	}
}

func TestDispatcher_SwallowsFailures(t *testing.T) {
	mgr, email, _ := newTestManager()
	email.ShouldFail = true
	email.FailError = "smtp down"
	d := NewDispatcher(mgr)

	// Must not panic or propagate.
	d.TransferNotice(context.Background(), "patient@example.com", "Jordan Okafor", "Emergency", "Laboratory")

	stats := mgr.Stats(context.Background())
	if stats["failed"] != 1 {
		t.Errorf("stats = %v, want one failed", stats)
	}
}

func TestStats(t *testing.T) {
	mgr, email, _ := newTestManager()
	ctx := context.Background()

	mgr.Send(ctx, &Notification{Type: TypeEmail, Recipient: "a@example.com", Body: "b"})
	email.ShouldFail = true
	email.FailError = "smtp down"
	mgr.Send(ctx, &Notification{Type: TypeEmail, Recipient: "b@example.com", Body: "b"})

	stats := mgr.Stats(ctx)
	if stats["sent"] != 1 || stats["failed"] != 1 {
		t.Errorf("stats = %v", stats)
	}
}
