package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ContactTTL is how long contact memory survives without activity.
// Every upsert resets the clock.
const ContactTTL = 180 * 24 * time.Hour

// MaxTopics is the rolling window of remembered topics per contact.
const MaxTopics = 10

const contactKeyPrefix = "contact/"

// ContactStyle is the learned writing style profile for one contact.
type ContactStyle struct {
	Tone               string  `json:"tone"`
	GreetingPreference string  `json:"greeting_preference"`
	FormalityScore     float64 `json:"formality_score"`
	AvgResponseLength  string  `json:"avg_response_length"`
	SampleCount        int     `json:"sample_count"`
}

// DefaultContactStyle is the profile used before any email was analyzed.
func DefaultContactStyle() ContactStyle {
	return ContactStyle{
		Tone:              "formal",
		FormalityScore:    0.5,
		AvgResponseLength: "medium",
	}
}

// ContactTopic is one remembered conversation topic.
type ContactTopic struct {
	Topic          string    `json:"topic"`
	LastMentioned  time.Time `json:"last_mentioned"`
	ContextSnippet string    `json:"context_snippet,omitempty"`
}

// ContactMemory is the full per-contact record.
type ContactMemory struct {
	Email      string         `json:"email"`
	Name       string         `json:"name,omitempty"`
	Style      ContactStyle   `json:"style"`
	Topics     []ContactTopic `json:"topics,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
	EmailCount int            `json:"email_count"`
}

// NewContacts creates the contact memory store.
func NewContacts(db *badger.DB, logger *slog.Logger) *Contacts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Contacts{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
}

// Contacts stores per-sender style profiles and conversation topics.
// Records expire via Badger TTL after six months of inactivity.
type Contacts struct {
	db     *badger.DB
	now    func() time.Time
	logger *slog.Logger
}

func contactKey(email string) []byte {
	return []byte(contactKeyPrefix + normalizeEmail(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Get fetches the memory for a contact, or nil when none is stored.
func (c *Contacts) Get(email string) (*ContactMemory, error) {
	var memory *ContactMemory

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(contactKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var m ContactMemory
			if err := json.Unmarshal(val, &m); err != nil {
				return fmt.Errorf("unmarshal contact %q: %w", email, err)
			}
			memory = &m
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("db.View failed: %w", err)
	}

	return memory, nil
}

// Upsert writes a contact record, refreshing its update time and
// expiration.
func (c *Contacts) Upsert(memory *ContactMemory) error {
	now := c.now().UTC()

	memory.Email = normalizeEmail(memory.Email)
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = now
	}
	memory.UpdatedAt = now
	memory.ExpiresAt = now.Add(ContactTTL)

	raw, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("marshal contact %q: %w", memory.Email, err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(contactKey(memory.Email), raw).WithTTL(ContactTTL)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("db.Update failed: %w", err)
	}

	c.logger.Debug("updated contact memory", "contact", memory.Email)
	return nil
}

// UpdateStyle replaces the style profile for a contact, creating the
// record when needed, and bumps the processed-email counter.
func (c *Contacts) UpdateStyle(email string, style ContactStyle) error {
	existing, err := c.Get(email)
	if err != nil {
		return fmt.Errorf("Get failed: %w", err)
	}

	if existing == nil {
		existing = &ContactMemory{Email: email}
	}
	existing.Style = style
	existing.EmailCount++

	return c.Upsert(existing)
}

// AddTopic prepends a topic to the contact's rolling topic window.
func (c *Contacts) AddTopic(email string, topic ContactTopic) error {
	existing, err := c.Get(email)
	if err != nil {
		return fmt.Errorf("Get failed: %w", err)
	}

	if existing == nil {
		existing = &ContactMemory{Email: email, Style: DefaultContactStyle()}
	}

	existing.Topics = append([]ContactTopic{topic}, existing.Topics...)
	if len(existing.Topics) > MaxTopics {
		existing.Topics = existing.Topics[:MaxTopics]
	}

	return c.Upsert(existing)
}

// UpdateName records the contact's display name. An already known name
// is never overwritten.
func (c *Contacts) UpdateName(email, name string) error {
	existing, err := c.Get(email)
	if err != nil {
		return fmt.Errorf("Get failed: %w", err)
	}

	if existing == nil {
		return c.Upsert(&ContactMemory{Email: email, Name: name, Style: DefaultContactStyle()})
	}
	if existing.Name != "" || name == "" {
		return nil
	}

	existing.Name = name
	return c.Upsert(existing)
}
