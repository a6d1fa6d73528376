package ingest_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gmail-agent/internal/agent"
	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/ingest"
)

type mailboxMock struct {
	GetHistoryFunc func(ctx context.Context, startHistoryID uint64, labelID string) ([]gservice.HistoryRecord, error)
	GetThreadFunc  func(ctx context.Context, threadID string) ([]gservice.EmailMessage, error)
}

func (m *mailboxMock) GetHistory(ctx context.Context, startHistoryID uint64, labelID string) ([]gservice.HistoryRecord, error) {
	return m.GetHistoryFunc(ctx, startHistoryID, labelID)
}

func (m *mailboxMock) GetThread(ctx context.Context, threadID string) ([]gservice.EmailMessage, error) {
	return m.GetThreadFunc(ctx, threadID)
}

type labelsMock struct {
	respondID string
	labeled   map[string][]string // msgID -> label names already applied
	removed   []string
}

func (m *labelsMock) LabelID(_ context.Context, name string) (string, error) {
	if name == m.RespondName() {
		return m.respondID, nil
	}
	return "id-" + name, nil
}

func (m *labelsMock) Has(_ context.Context, msgID, name string) (bool, error) {
	for _, l := range m.labeled[msgID] {
		if l == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *labelsMock) Remove(_ context.Context, msgID, name string) error {
	m.removed = append(m.removed, msgID+"/"+name)
	return nil
}

func (m *labelsMock) RespondName() string { return "Agent Respond" }
func (m *labelsMock) DoneName() string    { return "Agent Done" }
func (m *labelsMock) PendingName() string { return "Agent Pending" }

type cursorMock struct {
	id  uint64
	ok  bool
	set []uint64
}

func (m *cursorMock) Last() (uint64, bool, error) { return m.id, m.ok, nil }

func (m *cursorMock) Set(id uint64) error {
	m.set = append(m.set, id)
	return nil
}

type workflowMock struct {
	RunFunc func(ctx context.Context, in agent.Input) (*agent.State, error)
	runs    []string
}

func (m *workflowMock) Run(ctx context.Context, in agent.Input) (*agent.State, error) {
	m.runs = append(m.runs, in.MessageID)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, in)
	}
	return &agent.State{Outcome: agent.OutcomeSent}, nil
}

func simpleThread(sender string) []gservice.EmailMessage {
	return []gservice.EmailMessage{{
		MessageID: "m-1",
		ThreadID:  "t-1",
		Subject:   "Sync?",
		FromEmail: sender,
		Body:      "Can we meet tomorrow?",
	}}
}

func TestHandleNotificationFirstRunInitializesCursor(t *testing.T) {
	cursor := &cursorMock{ok: false}
	workflow := &workflowMock{}
	p := ingest.NewProcessor(&mailboxMock{}, &labelsMock{respondID: "L1"}, cursor, workflow, nil)

	summary, err := p.HandleNotification(context.Background(), ingest.Notification{HistoryID: 100})
	require.NoError(t, err)

	assert.Equal(t, ingest.StatusInitialized, summary.Status)
	assert.Equal(t, []uint64{100}, cursor.set)
	assert.Empty(t, workflow.runs)
}

func TestHandleNotificationMissingTriggerLabel(t *testing.T) {
	p := ingest.NewProcessor(&mailboxMock{}, &labelsMock{respondID: ""}, &cursorMock{ok: true, id: 50}, &workflowMock{}, nil)

	summary, err := p.HandleNotification(context.Background(), ingest.Notification{HistoryID: 100})
	require.Error(t, err)

	assert.Equal(t, ingest.StatusError, summary.Status)
}

func TestHandleNotificationHistoryErrorAdvancesCursor(t *testing.T) {
	cursor := &cursorMock{ok: true, id: 50}
	mailbox := &mailboxMock{
		GetHistoryFunc: func(_ context.Context, _ uint64, _ string) ([]gservice.HistoryRecord, error) {
			return nil, fmt.Errorf("simulated error")
		},
	}
	p := ingest.NewProcessor(mailbox, &labelsMock{respondID: "L1"}, cursor, &workflowMock{}, nil)

	summary, err := p.HandleNotification(context.Background(), ingest.Notification{HistoryID: 100})
	require.NoError(t, err, "a broken history fetch must not make Pub/Sub retry forever")

	assert.Equal(t, ingest.StatusHistoryError, summary.Status)
	assert.Equal(t, []uint64{100}, cursor.set, "cursor advances even when history fetch fails")
}

func TestHandleNotificationProcessesAndDedups(t *testing.T) {
	cursor := &cursorMock{ok: true, id: 50}
	mailbox := &mailboxMock{
		GetHistoryFunc: func(_ context.Context, startHistoryID uint64, labelID string) ([]gservice.HistoryRecord, error) {
			require.Equal(t, uint64(50), startHistoryID)
			require.Equal(t, "L1", labelID)
			return []gservice.HistoryRecord{
				{
					MessagesAdded: []*gmail.Message{
						{Id: "m-1", ThreadId: "t-1"},
						{Id: "m-1", ThreadId: "t-1"}, // duplicate in the same batch
					},
					LabelsAdded: []*gmail.HistoryLabelAdded{
						{Message: &gmail.Message{Id: "m-1", ThreadId: "t-1"}, LabelIds: []string{"L1"}},
						{Message: &gmail.Message{Id: "m-2", ThreadId: "t-2"}, LabelIds: []string{"other"}},
						{Message: &gmail.Message{Id: "m-3", ThreadId: "t-3"}, LabelIds: []string{"L1"}},
					},
				},
			}, nil
		},
		GetThreadFunc: func(_ context.Context, threadID string) ([]gservice.EmailMessage, error) {
			return simpleThread("anna@example.com"), nil
		},
	}
	workflow := &workflowMock{}
	p := ingest.NewProcessor(mailbox, &labelsMock{respondID: "L1", labeled: map[string][]string{}}, cursor, workflow, nil)

	summary, err := p.HandleNotification(context.Background(), ingest.Notification{HistoryID: 100})
	require.NoError(t, err)

	assert.Equal(t, ingest.StatusOK, summary.Status)
	assert.Equal(t, 2, summary.Processed, "m-1 once, m-3 once; m-2 lacks the trigger label")
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, []string{"m-1", "m-3"}, workflow.runs)
	assert.Equal(t, []uint64{100}, cursor.set)
}

func TestProcessMessageSkipsAlreadyHandled(t *testing.T) {
	cursor := &cursorMock{ok: true, id: 50}
	mailbox := &mailboxMock{
		GetHistoryFunc: func(_ context.Context, _ uint64, _ string) ([]gservice.HistoryRecord, error) {
			return []gservice.HistoryRecord{{
				MessagesAdded: []*gmail.Message{{Id: "m-1", ThreadId: "t-1"}},
			}}, nil
		},
		GetThreadFunc: func(_ context.Context, _ string) ([]gservice.EmailMessage, error) {
			return simpleThread("anna@example.com"), nil
		},
	}
	labels := &labelsMock{
		respondID: "L1",
		labeled:   map[string][]string{"m-1": {"Agent Done"}},
	}
	workflow := &workflowMock{}
	p := ingest.NewProcessor(mailbox, labels, cursor, workflow, nil)

	summary, err := p.HandleNotification(context.Background(), ingest.Notification{HistoryID: 100})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, workflow.runs)
}

func TestProcessMessagePrefiltersStripTriggerLabel(t *testing.T) {
	cases := []struct {
		name   string
		thread []gservice.EmailMessage
	}{
		{
			name:   "automated sender",
			thread: simpleThread("noreply@example.com"),
		},
		{
			name: "auto reply",
			thread: []gservice.EmailMessage{{
				MessageID: "m-1",
				ThreadID:  "t-1",
				Subject:   "Automatic reply: Sync?",
				FromEmail: "anna@example.com",
				Body:      "I am out of office until Monday.",
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mailbox := &mailboxMock{
				GetHistoryFunc: func(_ context.Context, _ uint64, _ string) ([]gservice.HistoryRecord, error) {
					return []gservice.HistoryRecord{{
						MessagesAdded: []*gmail.Message{{Id: "m-1", ThreadId: "t-1"}},
					}}, nil
				},
				GetThreadFunc: func(_ context.Context, _ string) ([]gservice.EmailMessage, error) {
					return tc.thread, nil
				},
			}
			labels := &labelsMock{respondID: "L1", labeled: map[string][]string{}}
			workflow := &workflowMock{}
			p := ingest.NewProcessor(mailbox, labels, &cursorMock{ok: true, id: 50}, workflow, nil)

			summary, err := p.HandleNotification(context.Background(), ingest.Notification{HistoryID: 100})
			require.NoError(t, err)

			assert.Equal(t, 1, summary.Skipped)
			assert.Empty(t, workflow.runs)
			assert.Equal(t, []string{"m-1/Agent Respond"}, labels.removed)
		})
	}
}
