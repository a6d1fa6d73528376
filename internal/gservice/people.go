package gservice

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"

	"github.com/hal9000y/gmail-agent/internal/auth"
)

const personFields = "names,emailAddresses,phoneNumbers,organizations,photos"

// ErrSearchUnavailable indicates the People search endpoint rejected
// the request; callers fall back to scanning connections.
var ErrSearchUnavailable = errors.New("contact search unavailable")

// Contact is a People API person reduced to the fields the contact
// lookup tool reports.
type Contact struct {
	Email        string
	Name         string
	GivenName    string
	FamilyName   string
	Phone        string
	Organization string
	JobTitle     string
	PhotoURL     string
	ResourceName string
}

// NewPeople creates the People API client.
func NewPeople(cfg *oauth2.Config, tok *auth.Token) *People {
	return &People{
		cfg: cfg,
		tok: tok,
	}
}

// People wraps contact search over the Google People API.
type People struct {
	cfg *oauth2.Config
	tok *auth.Token
}

// SearchContacts queries the searchContacts endpoint. An HTTP 400 comes
// back as ErrSearchUnavailable so the caller can fall back to
// ListConnections.
func (p *People) SearchContacts(ctx context.Context, query string, pageSize int64) ([]Contact, error) {
	svc, err := p.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	resp, err := svc.People.SearchContacts().
		Query(query).
		ReadMask(personFields).
		PageSize(pageSize).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 400 {
			return nil, ErrSearchUnavailable
		}
		return nil, fmt.Errorf("people.SearchContacts failed: %w", err)
	}

	var contacts []Contact
	for _, result := range resp.Results {
		if c, ok := parsePerson(result.Person); ok {
			contacts = append(contacts, c)
		}
	}

	return contacts, nil
}

// ListConnections returns the first page of the user's saved contacts.
func (p *People) ListConnections(ctx context.Context) ([]Contact, error) {
	svc, err := p.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	resp, err := svc.People.Connections.List("people/me").
		PersonFields(personFields).
		PageSize(100).
		Do()
	if err != nil {
		return nil, fmt.Errorf("people.Connections.List failed: %w", err)
	}

	var contacts []Contact
	for _, person := range resp.Connections {
		if c, ok := parsePerson(person); ok {
			contacts = append(contacts, c)
		}
	}

	return contacts, nil
}

// parsePerson keeps only persons with at least one email address.
func parsePerson(person *people.Person) (Contact, bool) {
	if person == nil || len(person.EmailAddresses) == 0 {
		return Contact{}, false
	}

	c := Contact{
		Email:        person.EmailAddresses[0].Value,
		ResourceName: person.ResourceName,
	}
	if c.Email == "" {
		return Contact{}, false
	}

	if len(person.Names) > 0 {
		c.Name = person.Names[0].DisplayName
		c.GivenName = person.Names[0].GivenName
		c.FamilyName = person.Names[0].FamilyName
	}
	if len(person.PhoneNumbers) > 0 {
		c.Phone = person.PhoneNumbers[0].Value
	}
	if len(person.Organizations) > 0 {
		c.Organization = person.Organizations[0].Name
		c.JobTitle = person.Organizations[0].Title
	}
	if len(person.Photos) > 0 {
		c.PhotoURL = person.Photos[0].Url
	}

	return c, true
}

func (p *People) newSvc(ctx context.Context) (*people.Service, error) {
	t, err := p.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	clt := p.cfg.Client(ctx, t)

	svc, err := people.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("people.NewService failed: %w", err)
	}

	return svc, nil
}
