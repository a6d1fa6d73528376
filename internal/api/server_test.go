package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-agent/internal/api"
	"github.com/hal9000y/gmail-agent/internal/draft"
	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/ingest"
)

type processorMock struct {
	HandleFunc func(ctx context.Context, n ingest.Notification) (ingest.Summary, error)
}

func (m *processorMock) HandleNotification(ctx context.Context, n ingest.Notification) (ingest.Summary, error) {
	return m.HandleFunc(ctx, n)
}

type drafterMock struct {
	GenerateFunc func(ctx context.Context, thread []gservice.EmailMessage, userEmail, recipientEmail, recipientName string) (draft.Result, error)
}

func (m *drafterMock) Generate(ctx context.Context, thread []gservice.EmailMessage, userEmail, recipientEmail, recipientName string) (draft.Result, error) {
	return m.GenerateFunc(ctx, thread, userEmail, recipientEmail, recipientName)
}

type watchMock struct {
	info gservice.WatchInfo
	err  error
}

func (m *watchMock) Renew(_ context.Context) (gservice.WatchInfo, error) {
	return m.info, m.err
}

type labelsMock struct {
	err error
}

func (m *labelsMock) EnsureExist(_ context.Context) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return map[string]string{"Agent Respond": "L1"}, nil
}

func (m *labelsMock) RespondName() string { return "Agent Respond" }

func newTestServer(cfg api.Config) *httptest.Server {
	srv := api.NewServer(cfg, nil)
	return httptest.NewServer(srv.Handler())
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(api.Config{Version: "1.0.0"})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	health := decodeBody[api.HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1.0.0", health.Version)
}

func TestWebhook(t *testing.T) {
	notification := base64.URLEncoding.EncodeToString([]byte(`{"emailAddress": "me@example.com", "historyId": 42}`))

	t.Run("delegates to processor", func(t *testing.T) {
		var got ingest.Notification
		ts := newTestServer(api.Config{
			Processor: &processorMock{HandleFunc: func(_ context.Context, n ingest.Notification) (ingest.Summary, error) {
				got = n
				return ingest.Summary{Status: ingest.StatusOK, Processed: 2}, nil
			}},
		})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/webhook/gmail", api.PubSubPushRequest{
			Message: api.PubSubMessage{Data: notification},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		summary := decodeBody[ingest.Summary](t, resp)
		assert.Equal(t, ingest.StatusOK, summary.Status)
		assert.Equal(t, 2, summary.Processed)
		assert.Equal(t, uint64(42), got.HistoryID)
	})

	t.Run("processing failure still acknowledges", func(t *testing.T) {
		ts := newTestServer(api.Config{
			Processor: &processorMock{HandleFunc: func(_ context.Context, _ ingest.Notification) (ingest.Summary, error) {
				return ingest.Summary{Status: ingest.StatusError}, fmt.Errorf("simulated error")
			}},
		})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/webhook/gmail", api.PubSubPushRequest{
			Message: api.PubSubMessage{Data: notification},
		})
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode, "non-2xx would make Pub/Sub redeliver")
	})

	t.Run("undecodable payload still acknowledges", func(t *testing.T) {
		ts := newTestServer(api.Config{})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/webhook/gmail", api.PubSubPushRequest{
			Message: api.PubSubMessage{Data: "@@@ not base64 @@@"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		summary := decodeBody[ingest.Summary](t, resp)
		assert.Equal(t, ingest.StatusError, summary.Status)
	})

	t.Run("missing message is a bad request", func(t *testing.T) {
		ts := newTestServer(api.Config{})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/webhook/gmail", map[string]any{"subscription": "s"})
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("verifier rejects bad token", func(t *testing.T) {
		ts := newTestServer(api.Config{
			Verifier: api.NewStaticTokenVerifier("secret"),
		})
		defer ts.Close()

		req, err := http.NewRequest(http.MethodPost, ts.URL+"/webhook/gmail", bytes.NewReader([]byte("{}")))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer wrong")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestGenerateDraft(t *testing.T) {
	t.Run("returns draft", func(t *testing.T) {
		ts := newTestServer(api.Config{
			Drafter: &drafterMock{GenerateFunc: func(_ context.Context, thread []gservice.EmailMessage, userEmail, recipientEmail, _ string) (draft.Result, error) {
				require.Len(t, thread, 1)
				assert.Equal(t, "anna@example.com", thread[0].FromEmail)
				assert.Equal(t, "me@example.com", userEmail)
				assert.Empty(t, recipientEmail, "ad-hoc drafts skip contact memory")
				return draft.Result{Text: "Tuesday works.", Tone: "casual", Confidence: 0.8}, nil
			}},
		})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/generate-draft", api.GenerateDraftRequest{
			Thread:    []api.ThreadMessage{{From: "anna@example.com", Body: "Can we meet?"}},
			UserEmail: "me@example.com",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decodeBody[api.GenerateDraftResponse](t, resp)
		assert.Equal(t, "Tuesday works.", out.Draft)
		assert.Equal(t, "casual", out.DetectedTone)
		assert.Equal(t, 0.8, out.Confidence)
	})

	t.Run("empty thread is a bad request", func(t *testing.T) {
		ts := newTestServer(api.Config{})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/generate-draft", api.GenerateDraftRequest{UserEmail: "me@example.com"})
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("generation failure", func(t *testing.T) {
		ts := newTestServer(api.Config{
			Drafter: &drafterMock{GenerateFunc: func(_ context.Context, _ []gservice.EmailMessage, _, _, _ string) (draft.Result, error) {
				return draft.Result{}, fmt.Errorf("simulated error")
			}},
		})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/generate-draft", api.GenerateDraftRequest{
			Thread:    []api.ThreadMessage{{From: "anna@example.com"}},
			UserEmail: "me@example.com",
		})
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestRenewWatch(t *testing.T) {
	expiration := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		ts := newTestServer(api.Config{
			Labels: &labelsMock{},
			Watch:  &watchMock{info: gservice.WatchInfo{HistoryID: 77, Expiration: expiration}},
		})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/renew-watch", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decodeBody[api.RenewWatchResponse](t, resp)
		assert.True(t, out.Success)
		assert.Equal(t, uint64(77), out.HistoryID)
		require.NotNil(t, out.Expiration)
		assert.Equal(t, expiration, *out.Expiration)
	})

	t.Run("renewal failure", func(t *testing.T) {
		ts := newTestServer(api.Config{
			Labels: &labelsMock{},
			Watch:  &watchMock{err: fmt.Errorf("simulated error")},
		})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/renew-watch", nil)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("label setup failure", func(t *testing.T) {
		ts := newTestServer(api.Config{
			Labels: &labelsMock{err: fmt.Errorf("simulated error")},
			Watch:  &watchMock{},
		})
		defer ts.Close()

		resp := postJSON(t, ts.URL+"/renew-watch", nil)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestWatchStatus(t *testing.T) {
	t.Run("active", func(t *testing.T) {
		expiration := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		ts := newTestServer(api.Config{
			Labels:      &labelsMock{},
			Watch:       &watchMock{info: gservice.WatchInfo{HistoryID: 77, Expiration: expiration}},
			PubSubTopic: "projects/p/topics/gmail",
		})
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/watch-status")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decodeBody[api.WatchStatusResponse](t, resp)
		assert.True(t, out.Active)
		assert.Equal(t, "Agent Respond", out.LabelName)
		assert.Equal(t, "projects/p/topics/gmail", out.PubSubTopic)
	})

	t.Run("degrades to inactive", func(t *testing.T) {
		ts := newTestServer(api.Config{
			Labels: &labelsMock{},
			Watch:  &watchMock{err: fmt.Errorf("simulated error")},
		})
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/watch-status")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decodeBody[api.WatchStatusResponse](t, resp)
		assert.False(t, out.Active)
		assert.Nil(t, out.Expiration)
	})
}
