package gservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hal9000y/gmail-agent/internal/auth"
)

// WatchInfo is the result of registering a mailbox watch.
type WatchInfo struct {
	HistoryID  uint64
	Expiration time.Time
}

// NewWatch creates the watch manager. Gmail watches push notifications
// to the given Pub/Sub topic whenever the trigger label changes, and
// expire after seven days.
func NewWatch(cfg *oauth2.Config, tok *auth.Token, labels *Labels, topic string, logger *slog.Logger) *Watch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watch{
		cfg:    cfg,
		tok:    tok,
		labels: labels,
		topic:  topic,
		logger: logger,
	}
}

// Watch manages the Gmail push-notification registration.
type Watch struct {
	cfg    *oauth2.Config
	tok    *auth.Token
	labels *Labels
	topic  string
	logger *slog.Logger
}

// Renew stops any active watch and registers a new one filtered to the
// trigger label. Call every six days; Gmail expires watches after seven.
func (w *Watch) Renew(ctx context.Context) (WatchInfo, error) {
	if w.topic == "" {
		return WatchInfo{}, fmt.Errorf("pub/sub topic not configured")
	}

	labelID, err := w.labels.LabelID(ctx, w.labels.RespondName())
	if err != nil {
		return WatchInfo{}, fmt.Errorf("LabelID failed: %w", err)
	}
	if labelID == "" {
		return WatchInfo{}, fmt.Errorf("label %q not found, run EnsureExist first", w.labels.RespondName())
	}

	if err := w.Stop(ctx); err != nil {
		return WatchInfo{}, fmt.Errorf("Stop failed: %w", err)
	}

	svc, err := w.newSvc(ctx)
	if err != nil {
		return WatchInfo{}, fmt.Errorf("newSvc failed: %w", err)
	}

	resp, err := svc.Users.Watch(gmailUserID, &gmail.WatchRequest{
		TopicName:           w.topic,
		LabelIds:            []string{labelID},
		LabelFilterBehavior: "INCLUDE",
	}).Do()
	if err != nil {
		return WatchInfo{}, fmt.Errorf("users.Watch failed: %w", err)
	}

	info := WatchInfo{
		HistoryID:  resp.HistoryId,
		Expiration: time.UnixMilli(resp.Expiration).UTC(),
	}

	w.logger.Info("gmail watch registered",
		"history_id", info.HistoryID,
		"expiration", info.Expiration)

	return info, nil
}

// Stop cancels the active watch. A 404 means no watch is registered and
// is not an error.
func (w *Watch) Stop(ctx context.Context) error {
	svc, err := w.newSvc(ctx)
	if err != nil {
		return fmt.Errorf("newSvc failed: %w", err)
	}

	if err := svc.Users.Stop(gmailUserID).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil
		}
		return fmt.Errorf("users.Stop failed: %w", err)
	}

	w.logger.Info("gmail watch stopped")
	return nil
}

func (w *Watch) newSvc(ctx context.Context) (*gmail.Service, error) {
	t, err := w.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	clt := w.cfg.Client(ctx, t)

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}
