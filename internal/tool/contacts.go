package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hal9000y/gmail-agent/internal/gservice"
)

const defaultContactResults = 5

type contactSearchSvc interface {
	SearchContacts(ctx context.Context, query string, pageSize int64) ([]gservice.Contact, error)
	ListConnections(ctx context.Context) ([]gservice.Contact, error)
}

// NewContactLookup creates the contact lookup tool.
func NewContactLookup(svc contactSearchSvc, logger *slog.Logger) *ContactLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactLookup{
		svc:    svc,
		logger: logger,
	}
}

// ContactLookup resolves an email address or name to contact details
// via the People API, falling back to a connections scan when the
// search endpoint is unavailable.
type ContactLookup struct {
	svc    contactSearchSvc
	logger *slog.Logger
}

func (t *ContactLookup) Name() string { return "lookup_contact" }

func (t *ContactLookup) Description() string {
	return "Look up contact information by email or name. " +
		"Returns name, email, phone, organization, and job title. " +
		"Use this to personalize responses or find contact details."
}

func (t *ContactLookup) Parameters() []Param {
	return []Param{
		{
			Name:        "query",
			Type:        "string",
			Description: "Email address or name to search for",
			Required:    true,
		},
		{
			Name:        "max_results",
			Type:        "integer",
			Description: "Maximum number of results. Default: 5",
		},
	}
}

func (t *ContactLookup) Execute(ctx context.Context, args map[string]any) Result {
	query := strings.TrimSpace(argString(args, "query"))
	if query == "" {
		return Fail("search query cannot be empty")
	}
	maxResults := argInt(args, "max_results", defaultContactResults)

	isEmail := strings.Contains(query, "@")

	contacts, err := t.search(ctx, query, isEmail, maxResults)
	if err != nil {
		return Fail(fmt.Sprintf("People API error: %v", err))
	}

	source := ""
	if len(contacts) == 0 {
		if !isEmail {
			return Empty(fmt.Sprintf("No contacts found matching: %s", query))
		}
		// Unknown address: synthesize what we can from the local part.
		contacts = []gservice.Contact{{
			Email: query,
			Name:  nameFromEmail(query),
		}}
		source = "email_parsed"
	}

	if len(contacts) > maxResults {
		contacts = contacts[:maxResults]
	}

	metadata := map[string]any{"result_count": len(contacts)}
	if source != "" {
		metadata["source"] = source
	}

	return OK(map[string]any{
		"query":    query,
		"contacts": contactDicts(contacts),
		"summary":  contactSummary(query, contacts),
	}, metadata)
}

// search tries the search endpoint first; HTTP 400 means it is not
// available for this account and the connections list is scanned
// instead.
func (t *ContactLookup) search(ctx context.Context, query string, isEmail bool, maxResults int) ([]gservice.Contact, error) {
	pageSize := int64(maxResults)
	if isEmail {
		pageSize = 10
	}

	contacts, err := t.svc.SearchContacts(ctx, query, pageSize)
	if err == nil {
		return contacts, nil
	}
	if !errors.Is(err, gservice.ErrSearchUnavailable) {
		return nil, err
	}

	t.logger.Debug("contact search unavailable, scanning connections")

	connections, err := t.svc.ListConnections(ctx)
	if err != nil {
		t.logger.Warn("failed to list connections", "error", err)
		return nil, nil
	}

	var matched []gservice.Contact
	lower := strings.ToLower(query)
	for _, c := range connections {
		if isEmail {
			if strings.ToLower(c.Email) == lower {
				matched = append(matched, c)
			}
			continue
		}
		if strings.Contains(strings.ToLower(c.Name), lower) ||
			strings.Contains(strings.ToLower(c.GivenName), lower) ||
			strings.Contains(strings.ToLower(c.FamilyName), lower) {
			matched = append(matched, c)
			if len(matched) >= maxResults {
				break
			}
		}
	}

	return matched, nil
}

// nameFromEmail guesses a display name from an address local part:
// "john.doe" and "john_doe" become "John Doe", a plain alphabetic part
// is capitalized, anything else yields no name.
func nameFromEmail(email string) string {
	local := email
	if idx := strings.Index(email, "@"); idx >= 0 {
		local = email[:idx]
	}

	for _, sep := range []string{".", "_"} {
		if !strings.Contains(local, sep) {
			continue
		}
		parts := strings.Split(local, sep)
		for i, p := range parts {
			parts[i] = capitalize(p)
		}
		return strings.Join(parts, " ")
	}

	if isAlpha(local) {
		return capitalize(local)
	}

	return ""
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func contactDicts(contacts []gservice.Contact) []map[string]any {
	out := make([]map[string]any, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, map[string]any{
			"email":        c.Email,
			"name":         c.Name,
			"phone":        c.Phone,
			"organization": c.Organization,
			"job_title":    c.JobTitle,
			"photo_url":    c.PhotoURL,
		})
	}
	return out
}

func displayContact(c gservice.Contact) string {
	var parts []string
	if c.Name != "" {
		parts = append(parts, c.Name)
	}
	switch {
	case c.JobTitle != "" && c.Organization != "":
		parts = append(parts, fmt.Sprintf("%s at %s", c.JobTitle, c.Organization))
	case c.Organization != "":
		parts = append(parts, c.Organization)
	case c.JobTitle != "":
		parts = append(parts, c.JobTitle)
	}
	parts = append(parts, fmt.Sprintf("<%s>", c.Email))
	return strings.Join(parts, " - ")
}

func contactSummary(query string, contacts []gservice.Contact) string {
	if len(contacts) == 0 {
		return fmt.Sprintf("No contacts found matching: %s", query)
	}

	lines := []string{fmt.Sprintf("Found %d contact(s):", len(contacts))}
	for i, c := range contacts {
		if i == 5 {
			break
		}
		lines = append(lines, "  - "+displayContact(c))
	}
	if len(contacts) > 5 {
		lines = append(lines, fmt.Sprintf("  ... and %d more", len(contacts)-5))
	}

	return strings.Join(lines, "\n")
}
