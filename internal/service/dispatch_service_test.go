package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"presale/internal/mailer"
	"presale/internal/model"
	"presale/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueueRepo struct {
	items      []*model.EmailQueueItem
	claimErr   error
	claimedMax int
	// final status by item id: "sent" or "failed:<reason>"
	outcomes map[string]string
	// markErrs[id] mark writes error before one succeeds
	markErrs     map[string]int
	markAttempts map[string]int
}

func (f *fakeQueueRepo) mark(id string) error {
	if f.markAttempts == nil {
		f.markAttempts = map[string]int{}
	}
	f.markAttempts[id]++
	if f.markErrs[id] > 0 {
		f.markErrs[id]--
		return errors.New("write conflict")
	}
	return nil
}

func (f *fakeQueueRepo) ClaimBatch(_ context.Context, batchSize, maxAttempts int) ([]*model.EmailQueueItem, error) {
	f.claimedMax = maxAttempts
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.items) > batchSize {
		return f.items[:batchSize], nil
	}
	return f.items, nil
}

func (f *fakeQueueRepo) MarkSent(_ context.Context, id string) error {
	if err := f.mark(id); err != nil {
		return err
	}
	f.outcomes[id] = "sent"
	return nil
}

func (f *fakeQueueRepo) MarkFailed(_ context.Context, id, reason string) error {
	if err := f.mark(id); err != nil {
		return err
	}
	f.outcomes[id] = "failed:" + reason
	return nil
}

func (f *fakeQueueRepo) Enqueue(_ context.Context, item *model.EmailQueueItem) (string, error) {
	item.ID = "new-id"
	return item.ID, nil
}

func (f *fakeQueueRepo) PendingCount(context.Context) (int, error) { return 0, nil }

type fakeTemplateRepo struct {
	missing map[string]bool
}

func (f *fakeTemplateRepo) Get(_ context.Context, templateType, lang string) (*model.EmailTemplate, error) {
	if f.missing[templateType] {
		return nil, fmt.Errorf("%w: %s/%s", repository.ErrTemplateNotFound, templateType, lang)
	}
	return &model.EmailTemplate{
		TemplateType: templateType,
		Lang:         lang,
		Subject:      "Hello {{to_name}}",
		BodyText:     "Amount: {{amount}} Link: {{app_url}}",
		BodyHTML:     "<p>{{amount}}</p>",
	}, nil
}

type fakeMailer struct {
	failFor map[string]bool
	sent    []mailer.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if f.failFor[msg.To] {
		return errors.New("provider unreachable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func item(id, to string) *model.EmailQueueItem {
	return &model.EmailQueueItem{
		ID:           id,
		TemplateType: model.TemplateConfirmation,
		Lang:         "en",
		ToEmail:      to,
		ToName:       "Recipient",
		Payload:      map[string]string{"amount": "100"},
		Status:       model.StatusSending,
		Attempts:     1,
	}
}

func newService(q *fakeQueueRepo, tm *fakeTemplateRepo, m *fakeMailer) DispatchService {
	return NewDispatchService(q, tm, m, nil, DispatchConfig{
		BatchSize:   10,
		MaxAttempts: 3,
		SendTimeout: time.Second,
		From:        "noreply@presale.example.com",
		FromName:    "Presale",
		AppBaseURL:  "https://presale.example.com",
	}, zerolog.Nop())
}

// Every claimed row must end the invocation as sent or failed, never left
// in the sending state.
func TestRunOnceNeverLeavesRowsSending(t *testing.T) {
	q := &fakeQueueRepo{
		items:    []*model.EmailQueueItem{item("a", "a@x.com"), item("b", "b@x.com"), item("c", "c@x.com")},
		outcomes: map[string]string{},
	}
	m := &fakeMailer{failFor: map[string]bool{"b@x.com": true}}
	svc := newService(q, &fakeTemplateRepo{}, m)

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DispatchResult{Claimed: 3, Sent: 2, Failed: 1}, res)
	require.Len(t, q.outcomes, 3)
	for id, outcome := range q.outcomes {
		assert.True(t, outcome == "sent" || len(outcome) > len("failed:"), "row %s left as %q", id, outcome)
	}
	assert.Equal(t, "sent", q.outcomes["a"])
	assert.Contains(t, q.outcomes["b"], "failed:")
	assert.Contains(t, q.outcomes["b"], "provider unreachable")
	assert.Equal(t, "sent", q.outcomes["c"])
}

// The attempt ceiling is enforced by the claim predicate, so RunOnce must
// pass the configured maximum through to the repository.
func TestRunOncePassesAttemptCeilingToClaim(t *testing.T) {
	q := &fakeQueueRepo{outcomes: map[string]string{}}
	svc := newService(q, &fakeTemplateRepo{}, &fakeMailer{})

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, q.claimedMax)
}

func TestRunOnceMissingTemplateFailsRowOnly(t *testing.T) {
	q := &fakeQueueRepo{
		items:    []*model.EmailQueueItem{item("a", "a@x.com"), item("b", "b@x.com")},
		outcomes: map[string]string{},
	}
	q.items[0].TemplateType = "no-such-template"
	tm := &fakeTemplateRepo{missing: map[string]bool{"no-such-template": true}}
	m := &fakeMailer{}
	svc := newService(q, tm, m)

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Sent)
	assert.Contains(t, q.outcomes["a"], "template lookup")
	assert.Equal(t, "sent", q.outcomes["b"])
}

func TestRunOnceClaimFailureIsFatal(t *testing.T) {
	q := &fakeQueueRepo{claimErr: errors.New("connection refused"), outcomes: map[string]string{}}
	svc := newService(q, &fakeTemplateRepo{}, &fakeMailer{})

	_, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claiming email batch")
}

func TestRunOnceRendersPayloadAndBuiltins(t *testing.T) {
	q := &fakeQueueRepo{items: []*model.EmailQueueItem{item("a", "a@x.com")}, outcomes: map[string]string{}}
	m := &fakeMailer{}
	svc := newService(q, &fakeTemplateRepo{}, m)

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, m.sent, 1)

	assert.Equal(t, "Hello Recipient", m.sent[0].Subject)
	assert.Equal(t, "Amount: 100 Link: https://presale.example.com", m.sent[0].Text)
	assert.Equal(t, "<p>100</p>", m.sent[0].HTML)
	assert.Equal(t, "noreply@presale.example.com", m.sent[0].From)
}

// A lost status write strands the row in 'sending', where nothing reclaims
// it, so each mark write gets exactly one reattempt.
func TestRunOnceRetriesLostMarkWrite(t *testing.T) {
	q := &fakeQueueRepo{
		items:    []*model.EmailQueueItem{item("a", "a@x.com"), item("b", "b@x.com")},
		outcomes: map[string]string{},
		markErrs: map[string]int{"a": 1, "b": 1},
	}
	m := &fakeMailer{failFor: map[string]bool{"b@x.com": true}}
	svc := newService(q, &fakeTemplateRepo{}, m)
	svc.(*dispatchService).markRetryDelay = 0

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DispatchResult{Claimed: 2, Sent: 1, Failed: 1}, res)
	assert.Equal(t, "sent", q.outcomes["a"])
	assert.Contains(t, q.outcomes["b"], "failed:")
	assert.Equal(t, 2, q.markAttempts["a"])
	assert.Equal(t, 2, q.markAttempts["b"])
}

func TestRunOnceMarkRetryIsBounded(t *testing.T) {
	q := &fakeQueueRepo{
		items:    []*model.EmailQueueItem{item("a", "a@x.com")},
		outcomes: map[string]string{},
		markErrs: map[string]int{"a": 5},
	}
	svc := newService(q, &fakeTemplateRepo{}, &fakeMailer{})
	svc.(*dispatchService).markRetryDelay = 0

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, q.markAttempts["a"])
	assert.Empty(t, q.outcomes["a"])
}

func TestEnqueueForcesPendingStatus(t *testing.T) {
	q := &fakeQueueRepo{outcomes: map[string]string{}}
	svc := newService(q, &fakeTemplateRepo{}, &fakeMailer{})

	it := item("", "a@x.com")
	it.Status = model.StatusSent
	id, err := svc.Enqueue(context.Background(), it)
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	assert.Equal(t, model.StatusPending, it.Status)
}
