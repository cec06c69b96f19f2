// internal/notify/notify_test.go
package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/zoho"
	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/models"
	"tour-estimate-workers/internal/sessionbus"
)

// ==========================
// Fakes
// ==========================

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	SendTextFunc func(ctx context.Context, to []string, subject, body string) (string, error)
	sent         []sentMail
}

func (f *fakeMailer) SendText(ctx context.Context, to []string, subject, body string) (string, error) {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	if f.SendTextFunc != nil {
		return f.SendTextFunc(ctx, to, subject, body)
	}
	return "msg-1", nil
}

type fakeTexter struct {
	SendSMSFunc func(ctx context.Context, phone, message string) (string, error)
	phones      []string
	messages    []string
}

func (f *fakeTexter) SendSMS(ctx context.Context, phone, message string) (string, error) {
	f.phones = append(f.phones, phone)
	f.messages = append(f.messages, message)
	if f.SendSMSFunc != nil {
		return f.SendSMSFunc(ctx, phone, message)
	}
	return "sms-1", nil
}

type fakeCRM struct {
	CreateLeadFunc func(ctx context.Context, lead *zoho.Lead) (string, error)
	leads          []*zoho.Lead
}

func (f *fakeCRM) CreateLead(ctx context.Context, lead *zoho.Lead) (string, error) {
	f.leads = append(f.leads, lead)
	if f.CreateLeadFunc != nil {
		return f.CreateLeadFunc(ctx, lead)
	}
	return "lead-1", nil
}

type published struct {
	sessionID string
	eventType string
	payload   interface{}
}

type fakePublisher struct {
	events []published
}

func (f *fakePublisher) Publish(sessionID, eventType string, payload interface{}) sessionbus.Event {
	f.events = append(f.events, published{sessionID, eventType, payload})
	return sessionbus.Event{SessionID: sessionID, Type: eventType, Payload: payload}
}

func notice(trigger estimate.Trigger) estimate.Notice {
	return estimate.Notice{
		Trigger: trigger,
		Session: &models.QuoteSession{
			ID: "sess-1",
			Contact: models.Contact{
				Name:  "Minji Kim",
				Email: "minji@example.com",
				Phone: "+821012345678",
			},
			Survey: models.Survey{
				Region:    "seoul",
				Days:      3,
				Travelers: 2,
				Interests: []string{"history", "food"},
				MustSee:   []string{"N Seoul Tower"},
			},
		},
		Estimate: &models.Estimate{
			ID:         "est-1",
			ShareToken: "tok-abc",
			SessionID:  "sess-1",
			Status:     models.StatusSent,
			Items: []models.EstimateItem{
				models.NewPlaceholderItem(1, "Day 1", ""),
				models.NewPlaceholderItem(2, "Day 2", ""),
			},
			ValidUntil: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Previous: models.StatusPending,
	}
}

// ==========================
// EmailHook
// ==========================

func TestEmailHook_Recipients(t *testing.T) {
	tests := []struct {
		trigger estimate.Trigger
		wantTo  string
		wantIn  string
	}{
		{estimate.TriggerSubmitted, "desk@example.com", "Must see:    N Seoul Tower"},
		{estimate.TriggerSent, "minji@example.com", "https://tours.example.com/e/tok-abc"},
		{estimate.TriggerApproved, "desk@example.com", "sent"},
		{estimate.TriggerRevisionRequested, "desk@example.com", "est-1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.trigger), func(t *testing.T) {
			mailer := &fakeMailer{}
			hook := NewEmailHook(mailer, "desk@example.com", "https://tours.example.com/e/", logger.NewTestLogger(t))

			require.NoError(t, hook.Fire(context.Background(), notice(tt.trigger)))
			require.Len(t, mailer.sent, 1)
			assert.Equal(t, []string{tt.wantTo}, mailer.sent[0].to)
			assert.Contains(t, mailer.sent[0].body, tt.wantIn)
		})
	}
}

func TestEmailHook_SubmittedSummary(t *testing.T) {
	mailer := &fakeMailer{}
	hook := NewEmailHook(mailer, "desk@example.com", "", logger.NewTestLogger(t))

	require.NoError(t, hook.Fire(context.Background(), notice(estimate.TriggerSubmitted)))
	mail := mailer.sent[0]
	assert.Equal(t, "[Estimate request] 3 days in seoul for 2", mail.subject)
	assert.Contains(t, mail.body, "Interests:   history, food")
	assert.Contains(t, mail.body, "Items:       2 (2 awaiting resolution)")
}

func TestEmailHook_SkipsWithoutRecipient(t *testing.T) {
	mailer := &fakeMailer{}
	hook := NewEmailHook(mailer, "", "", logger.NewTestLogger(t))

	require.NoError(t, hook.Fire(context.Background(), notice(estimate.TriggerSubmitted)))

	n := notice(estimate.TriggerSent)
	n.Session = nil
	require.NoError(t, hook.Fire(context.Background(), n))

	require.NoError(t, hook.Fire(context.Background(), notice(estimate.TriggerItemUpdated)))
	assert.Empty(t, mailer.sent)
}

func TestEmailHook_SendFailure(t *testing.T) {
	mailer := &fakeMailer{SendTextFunc: func(context.Context, []string, string, string) (string, error) {
		return "", errors.New("throttled")
	}}
	hook := NewEmailHook(mailer, "desk@example.com", "", logger.NewTestLogger(t))

	err := hook.Fire(context.Background(), notice(estimate.TriggerSubmitted))
	assert.ErrorContains(t, err, "throttled")
}

// ==========================
// SMSHook
// ==========================

func TestSMSHook(t *testing.T) {
	texter := &fakeTexter{}
	hook := NewSMSHook(texter, "https://tours.example.com/e", logger.NewTestLogger(t))

	require.NoError(t, hook.Fire(context.Background(), notice(estimate.TriggerSent)))
	require.NoError(t, hook.Fire(context.Background(), notice(estimate.TriggerApproved)))
	require.NoError(t, hook.Fire(context.Background(), notice(estimate.TriggerSubmitted)))

	require.Len(t, texter.messages, 2)
	assert.Equal(t, "+821012345678", texter.phones[0])
	assert.Contains(t, texter.messages[0], "https://tours.example.com/e/tok-abc")
	assert.Contains(t, texter.messages[1], "confirmed")
}

func TestSMSHook_NoPhone(t *testing.T) {
	texter := &fakeTexter{}
	hook := NewSMSHook(texter, "", logger.NewTestLogger(t))

	n := notice(estimate.TriggerSent)
	n.Session.Contact.Phone = ""
	require.NoError(t, hook.Fire(context.Background(), n))
	assert.Empty(t, texter.messages)
}

// ==========================
// CRMHook
// ==========================

func TestCRMHook_CreatesLeadOnSubmit(t *testing.T) {
	crm := &fakeCRM{}
	hook := NewCRMHook(crm, logger.NewTestLogger(t))

	require.NoError(t, hook.Fire(context.Background(), notice(estimate.TriggerSubmitted)))
	require.NoError(t, hook.Fire(context.Background(), notice(estimate.TriggerSent)))

	require.Len(t, crm.leads, 1)
	lead := crm.leads[0]
	assert.Equal(t, "Minji", lead.FirstName)
	assert.Equal(t, "Kim", lead.LastName)
	assert.Equal(t, leadSource, lead.Source)
	assert.Contains(t, lead.Description, "3 days in seoul")
	assert.Contains(t, lead.Description, "estimate est-1")
}

func TestCRMHook_Failure(t *testing.T) {
	crm := &fakeCRM{CreateLeadFunc: func(context.Context, *zoho.Lead) (string, error) {
		return "", errors.New("invalid token")
	}}
	err := NewCRMHook(crm, logger.NewTestLogger(t)).Fire(context.Background(), notice(estimate.TriggerSubmitted))
	assert.ErrorContains(t, err, "invalid token")
}

// ==========================
// BusHook
// ==========================

func TestBusHook_EventTypes(t *testing.T) {
	tests := []struct {
		trigger estimate.Trigger
		want    string
	}{
		{estimate.TriggerGenerated, sessionbus.EventEstimateGenerated},
		{estimate.TriggerSubmitted, sessionbus.EventEstimateSubmitted},
		{estimate.TriggerSent, sessionbus.EventEstimateStatusChanged},
		{estimate.TriggerDeclined, sessionbus.EventEstimateStatusChanged},
		{estimate.TriggerRevisionRequested, sessionbus.EventEstimateStatusChanged},
		{estimate.TriggerItemUpdated, sessionbus.EventEstimateItemUpdated},
		{estimate.TriggerIdentityLinked, sessionbus.EventSessionLinked},
	}
	for _, tt := range tests {
		pub := &fakePublisher{}
		require.NoError(t, NewBusHook(pub).Fire(context.Background(), notice(tt.trigger)))
		require.Len(t, pub.events, 1)
		assert.Equal(t, tt.want, pub.events[0].eventType, tt.trigger)
		assert.Equal(t, "sess-1", pub.events[0].sessionID)
	}
}

func TestBusHook_Payload(t *testing.T) {
	pub := &fakePublisher{}
	n := notice(estimate.TriggerRevisionRequested)
	n.Revision = &models.RevisionEntry{ID: "rev-1"}

	require.NoError(t, NewBusHook(pub).Fire(context.Background(), n))
	ev, ok := pub.events[0].payload.(EstimateEvent)
	require.True(t, ok)
	assert.Equal(t, "est-1", ev.EstimateID)
	assert.Equal(t, models.StatusPending, ev.PreviousStatus)
	assert.True(t, ev.HasPlaceholders)
	assert.Equal(t, 2, ev.ItemCount)
	assert.Equal(t, "rev-1", ev.RevisionID)
}

func TestBusHook_EstimateOnlyNotice(t *testing.T) {
	pub := &fakePublisher{}
	n := notice(estimate.TriggerItemUpdated)
	n.Session = nil

	require.NoError(t, NewBusHook(pub).Fire(context.Background(), n))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "sess-1", pub.events[0].sessionID)
}

func TestBusHook_PublishesToRealBus(t *testing.T) {
	bus := sessionbus.New(sessionbus.Options{}, logger.NewTestLogger(t))
	sub := bus.Subscribe("sess-1")
	defer bus.Unsubscribe(sub)

	require.NoError(t, NewBusHook(bus).Fire(context.Background(), notice(estimate.TriggerSent)))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, sessionbus.EventEstimateStatusChanged, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestShareURL(t *testing.T) {
	assert.Equal(t, "https://x.io/e/abc", ShareURL("https://x.io/e/", "abc"))
	assert.Equal(t, "/abc", ShareURL("", "abc"))
	assert.Equal(t, "", ShareURL("https://x.io", ""))
}
