package gservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/hal9000y/gmail-agent/internal/auth"
)

// Colors for the workflow labels so they stand out in the label list.
var labelColors = map[string]*gmail.LabelColor{
	"Agent Respond": {BackgroundColor: "#16a765", TextColor: "#ffffff"},
	"Agent Done":    {BackgroundColor: "#4986e7", TextColor: "#ffffff"},
	"Agent Pending": {BackgroundColor: "#ffad47", TextColor: "#ffffff"},
}

// NewLabels creates the label manager for the three workflow labels.
func NewLabels(cfg *oauth2.Config, tok *auth.Token, respond, done, pending string, logger *slog.Logger) *Labels {
	if logger == nil {
		logger = slog.Default()
	}
	return &Labels{
		cfg:     cfg,
		tok:     tok,
		respond: respond,
		done:    done,
		pending: pending,
		cache:   map[string]string{},
		logger:  logger,
	}
}

// Labels manages the agent workflow labels. The respond label triggers
// processing, done marks handled mail, pending marks mail waiting on the
// user. Name-to-ID lookups are cached after the first listing.
type Labels struct {
	cfg     *oauth2.Config
	tok     *auth.Token
	respond string
	done    string
	pending string

	mu     sync.Mutex
	cache  map[string]string
	logger *slog.Logger
}

// RespondName returns the configured trigger label name.
func (l *Labels) RespondName() string { return l.respond }

// DoneName returns the configured done label name.
func (l *Labels) DoneName() string { return l.done }

// PendingName returns the configured pending label name.
func (l *Labels) PendingName() string { return l.pending }

// EnsureExist creates any missing workflow labels and returns the
// name-to-ID mapping.
func (l *Labels) EnsureExist(ctx context.Context) (map[string]string, error) {
	result := map[string]string{}

	for _, name := range []string{l.respond, l.done, l.pending} {
		id, err := l.LabelID(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("LabelID failed: %w", err)
		}

		if id == "" {
			id, err = l.create(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("create failed: %w", err)
			}
			l.logger.Info("created label", "label", name, "id", id)
		}

		result[name] = id
	}

	return result, nil
}

// LabelID resolves a label name to its Gmail ID, or "" if the label
// does not exist.
func (l *Labels) LabelID(ctx context.Context, name string) (string, error) {
	l.mu.Lock()
	if id, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return id, nil
	}
	l.mu.Unlock()

	svc, err := l.newSvc(ctx)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	resp, err := svc.Users.Labels.List(gmailUserID).Do()
	if err != nil {
		return "", fmt.Errorf("labels.List failed: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, label := range resp.Labels {
		l.cache[label.Name] = label.Id
	}

	return l.cache[name], nil
}

// Add applies a label to a message. The label must already exist.
func (l *Labels) Add(ctx context.Context, msgID, name string) error {
	id, err := l.LabelID(ctx, name)
	if err != nil {
		return fmt.Errorf("LabelID failed: %w", err)
	}
	if id == "" {
		return fmt.Errorf("label %q not found", name)
	}

	return l.modify(ctx, msgID, []string{id}, nil)
}

// Remove strips a label from a message. A missing label is a no-op.
func (l *Labels) Remove(ctx context.Context, msgID, name string) error {
	id, err := l.LabelID(ctx, name)
	if err != nil {
		return fmt.Errorf("LabelID failed: %w", err)
	}
	if id == "" {
		l.logger.Warn("label not found, nothing to remove", "label", name)
		return nil
	}

	return l.modify(ctx, msgID, nil, []string{id})
}

// Has reports whether a message currently carries the named label.
func (l *Labels) Has(ctx context.Context, msgID, name string) (bool, error) {
	id, err := l.LabelID(ctx, name)
	if err != nil {
		return false, fmt.Errorf("LabelID failed: %w", err)
	}
	if id == "" {
		return false, nil
	}

	svc, err := l.newSvc(ctx)
	if err != nil {
		return false, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).Format("minimal").Do()
	if err != nil {
		return false, fmt.Errorf("messages.Get failed: %w", err)
	}

	for _, labelID := range msg.LabelIds {
		if labelID == id {
			return true, nil
		}
	}
	return false, nil
}

// TransitionToDone swaps the respond label for the done label in one
// modify call.
func (l *Labels) TransitionToDone(ctx context.Context, msgID string) error {
	return l.transition(ctx, msgID, l.done)
}

// TransitionToPending swaps the respond label for the pending label in
// one modify call.
func (l *Labels) TransitionToPending(ctx context.Context, msgID string) error {
	return l.transition(ctx, msgID, l.pending)
}

func (l *Labels) transition(ctx context.Context, msgID, target string) error {
	respondID, err := l.LabelID(ctx, l.respond)
	if err != nil {
		return fmt.Errorf("LabelID failed: %w", err)
	}
	targetID, err := l.LabelID(ctx, target)
	if err != nil {
		return fmt.Errorf("LabelID failed: %w", err)
	}
	if respondID == "" || targetID == "" {
		return fmt.Errorf("workflow labels missing, run EnsureExist first")
	}

	if err := l.modify(ctx, msgID, []string{targetID}, []string{respondID}); err != nil {
		return err
	}

	l.logger.Info("transitioned message", "message_id", msgID, "label", target)
	return nil
}

func (l *Labels) modify(ctx context.Context, msgID string, add, remove []string) error {
	svc, err := l.newSvc(ctx)
	if err != nil {
		return fmt.Errorf("newSvc failed: %w", err)
	}

	_, err = svc.Users.Messages.Modify(gmailUserID, msgID, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Do()
	if err != nil {
		return fmt.Errorf("messages.Modify failed: %w", err)
	}

	return nil
}

func (l *Labels) create(ctx context.Context, name string) (string, error) {
	svc, err := l.newSvc(ctx)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	label := &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}
	if color, ok := labelColors[name]; ok {
		label.Color = color
	}

	created, err := svc.Users.Labels.Create(gmailUserID, label).Do()
	if err != nil {
		return "", fmt.Errorf("labels.Create failed: %w", err)
	}

	l.mu.Lock()
	l.cache[name] = created.Id
	l.mu.Unlock()

	return created.Id, nil
}

func (l *Labels) newSvc(ctx context.Context) (*gmail.Service, error) {
	t, err := l.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	clt := l.cfg.Client(ctx, t)

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}
