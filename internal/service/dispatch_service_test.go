package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dripmail/dripmail/internal/content"
	"github.com/dripmail/dripmail/internal/email"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/model"
	"github.com/dripmail/dripmail/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeScheduleStore struct {
	mu    sync.Mutex
	sends map[string]*model.ScheduledSend
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{sends: make(map[string]*model.ScheduledSend)}
}

func (f *fakeScheduleStore) Create(_ context.Context, send *model.ScheduledSend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *send
	f.sends[send.ID] = &cp
	return nil
}

func (f *fakeScheduleStore) GetByID(_ context.Context, id string) (*model.ScheduledSend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	send, ok := f.sends[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *send
	return &cp, nil
}

func (f *fakeScheduleStore) List(_ context.Context) ([]model.ScheduledSend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ScheduledSend, 0, len(f.sends))
	for _, send := range f.sends {
		out = append(out, *send)
	}
	return out, nil
}

func (f *fakeScheduleStore) ListDue(_ context.Context, now time.Time) ([]model.ScheduledSend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ScheduledSend
	for _, send := range f.sends {
		if send.IsDue(now) {
			out = append(out, *send)
		}
	}
	return out, nil
}

func (f *fakeScheduleStore) MarkSent(_ context.Context, id string, sentAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	send, ok := f.sends[id]
	if !ok || send.Sent {
		return false, nil
	}
	send.Sent = true
	send.SentDate = &sentAt
	return true, nil
}

func (f *fakeScheduleStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sends[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.sends, id)
	return nil
}

type fakeTemplateReader struct {
	templates map[string]*model.EmailTemplate
}

func (f *fakeTemplateReader) GetByID(_ context.Context, id string) (*model.EmailTemplate, error) {
	tmpl, ok := f.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return tmpl, nil
}

type fakeRecipientStore struct {
	recipients map[string]*model.Recipient
}

func (f *fakeRecipientStore) GetByID(_ context.Context, id string) (*model.Recipient, error) {
	rec, ok := f.recipients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRecipientStore) ListByIDs(_ context.Context, ids []string) ([]model.Recipient, error) {
	var out []model.Recipient
	for _, id := range ids {
		if rec, ok := f.recipients[id]; ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRecipientStore) List(_ context.Context) ([]model.Recipient, error) {
	out := make([]model.Recipient, 0, len(f.recipients))
	for _, rec := range f.recipients {
		out = append(out, *rec)
	}
	return out, nil
}

type passthroughPreparer struct{}

func (passthroughPreparer) PrepareForSend(htmlContent string) (string, []content.Image, error) {
	return htmlContent, nil, nil
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []email.Message
	failFor map[string]bool
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, addr := range msg.To {
		if f.failFor[addr] {
			return fmt.Errorf("%w: mailbox unavailable", email.ErrDelivery)
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) deliveries() []email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]email.Message(nil), f.sent...)
}

type dispatchFixture struct {
	svc       *DispatchService
	schedules *fakeScheduleStore
	sender    *fakeSender
	template  *model.EmailTemplate
}

func newDispatchFixture(t *testing.T, recipients ...*model.Recipient) *dispatchFixture {
	t.Helper()
	tmpl := &model.EmailTemplate{
		ID:      uuid.New().String(),
		Subject: "Spring offers",
		Title:   "Spring offers",
		Content: "<p>Hello</p>",
	}
	recs := make(map[string]*model.Recipient, len(recipients))
	for _, rec := range recipients {
		recs[rec.ID] = rec
	}
	schedules := newFakeScheduleStore()
	sender := &fakeSender{failFor: make(map[string]bool)}
	svc := NewDispatchService(
		schedules,
		&fakeTemplateReader{templates: map[string]*model.EmailTemplate{tmpl.ID: tmpl}},
		&fakeRecipientStore{recipients: recs},
		passthroughPreparer{},
		sender,
		logger.New("error", "text"),
	)
	return &dispatchFixture{svc: svc, schedules: schedules, sender: sender, template: tmpl}
}

func newRecipient(addr string) *model.Recipient {
	return &model.Recipient{ID: uuid.New().String(), Email: addr, FirstName: "Test", LastName: "User"}
}

func (fx *dispatchFixture) addSend(recipientID string, at time.Time) string {
	id := uuid.New().String()
	fx.schedules.sends[id] = &model.ScheduledSend{
		ID:            id,
		RecipientID:   recipientID,
		TemplateID:    fx.template.ID,
		ScheduledDate: &at,
		CreatedAt:     time.Now().UTC(),
	}
	return id
}

func TestSweepDispatchesDueSends(t *testing.T) {
	recA := newRecipient("a@example.com")
	recB := newRecipient("b@example.com")
	fx := newDispatchFixture(t, recA, recB)

	start := time.Now().UTC()
	past := start.Add(-time.Hour)
	future := start.Add(time.Hour)
	dueA := fx.addSend(recA.ID, past)
	dueB := fx.addSend(recB.ID, past)
	pending := fx.addSend(recB.ID, future)

	report, err := fx.svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, SweepReport{Selected: 2, Sent: 2}, report)
	require.Len(t, fx.sender.deliveries(), 2)

	for _, id := range []string{dueA, dueB} {
		send, err := fx.schedules.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.True(t, send.Sent)
		require.NotNil(t, send.SentDate)
		require.False(t, send.SentDate.Before(start))
	}

	// A future-dated record is untouched
	send, err := fx.schedules.GetByID(context.Background(), pending)
	require.NoError(t, err)
	require.False(t, send.Sent)
	require.Nil(t, send.SentDate)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	recA := newRecipient("a@example.com")
	recB := newRecipient("b@example.com")
	fx := newDispatchFixture(t, recA, recB)
	fx.sender.failFor[recA.Email] = true

	past := time.Now().UTC().Add(-time.Hour)
	failing := fx.addSend(recA.ID, past)
	ok := fx.addSend(recB.ID, past)

	report, err := fx.svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Selected)
	require.Equal(t, 1, report.Sent)
	require.Equal(t, 1, report.Failed)

	// The failed record stays unsent so the next sweep retries it
	send, err := fx.schedules.GetByID(context.Background(), failing)
	require.NoError(t, err)
	require.False(t, send.Sent)

	send, err = fx.schedules.GetByID(context.Background(), ok)
	require.NoError(t, err)
	require.True(t, send.Sent)
}

func TestSweepMissingRecipient(t *testing.T) {
	rec := newRecipient("a@example.com")
	fx := newDispatchFixture(t, rec)

	// Recipient row vanished between scheduling and dispatch
	fx.addSend(uuid.New().String(), time.Now().UTC().Add(-time.Hour))

	report, err := fx.svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Selected)
	require.Equal(t, 1, report.Failed)
	require.Empty(t, fx.sender.deliveries())
}

func TestConcurrentSweepsRecordOneSend(t *testing.T) {
	rec := newRecipient("a@example.com")
	fx := newDispatchFixture(t, rec)
	id := fx.addSend(rec.ID, time.Now().UTC().Add(-time.Hour))

	var wg sync.WaitGroup
	reports := make([]SweepReport, 2)
	errs := make([]error, 2)
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i], errs[i] = fx.svc.Sweep(context.Background())
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Both sweeps may deliver, but exactly one records the outcome; the
	// other is skipped by the conditional mark
	require.Equal(t, 1, reports[0].Sent+reports[1].Sent)
	send, err := fx.schedules.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, send.Sent)
}

func TestSendNowRecordsSentRows(t *testing.T) {
	recA := newRecipient("a@example.com")
	recB := newRecipient("b@example.com")
	fx := newDispatchFixture(t, recA, recB)

	created, err := fx.svc.SendNow(context.Background(), fx.template.ID, []string{recA.ID, recB.ID})
	require.NoError(t, err)
	require.Equal(t, 2, created)

	// One message to all recipients, one sent row per recipient
	deliveries := fx.sender.deliveries()
	require.Len(t, deliveries, 1)
	require.ElementsMatch(t, []string{recA.Email, recB.Email}, deliveries[0].To)

	sends, err := fx.schedules.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sends, 2)
	for _, send := range sends {
		require.True(t, send.Sent)
		require.NotNil(t, send.SentDate)
	}
}

func TestSendNowFailureLeavesNoRows(t *testing.T) {
	rec := newRecipient("a@example.com")
	fx := newDispatchFixture(t, rec)
	fx.sender.failFor[rec.Email] = true

	_, err := fx.svc.SendNow(context.Background(), fx.template.ID, []string{rec.ID})
	require.ErrorIs(t, err, email.ErrDelivery)

	sends, err := fx.schedules.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, sends)
}

func TestSendNowNoRecipients(t *testing.T) {
	fx := newDispatchFixture(t)

	_, err := fx.svc.SendNow(context.Background(), fx.template.ID, []string{uuid.New().String()})
	require.ErrorIs(t, err, ErrNoRecipients)
	require.Empty(t, fx.sender.deliveries())
}

func TestScheduleCreatesPendingRows(t *testing.T) {
	recA := newRecipient("a@example.com")
	recB := newRecipient("b@example.com")
	fx := newDispatchFixture(t, recA, recB)

	at := time.Now().UTC().Add(48 * time.Hour)
	created, err := fx.svc.Schedule(context.Background(), fx.template.ID, []string{recA.ID, recB.ID}, at)
	require.NoError(t, err)
	require.Equal(t, 2, created)
	require.Empty(t, fx.sender.deliveries())

	sends, err := fx.schedules.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sends, 2)
	for _, send := range sends {
		require.False(t, send.Sent)
		require.NotNil(t, send.ScheduledDate)
		require.True(t, send.ScheduledDate.Equal(at))
	}
}

func TestCancelPendingSend(t *testing.T) {
	rec := newRecipient("a@example.com")
	fx := newDispatchFixture(t, rec)
	id := fx.addSend(rec.ID, time.Now().UTC().Add(time.Hour))

	require.NoError(t, fx.svc.Cancel(context.Background(), id))

	report, err := fx.svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Selected)

	err = fx.svc.Cancel(context.Background(), id)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
