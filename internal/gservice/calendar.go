package gservice

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hal9000y/gmail-agent/internal/auth"
)

const primaryCalendarID = "primary"

// BusyInterval is one occupied span on the primary calendar.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// NewCalendar creates the Calendar client.
func NewCalendar(cfg *oauth2.Config, tok *auth.Token) *Calendar {
	return &Calendar{
		cfg: cfg,
		tok: tok,
	}
}

// Calendar exposes the free/busy lookup backing the availability tool.
type Calendar struct {
	cfg *oauth2.Config
	tok *auth.Token
}

// FreeBusy returns the busy intervals on the primary calendar between
// start and end. Intervals with unparseable timestamps are dropped.
func (c *Calendar) FreeBusy(ctx context.Context, start, end time.Time) ([]BusyInterval, error) {
	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: primaryCalendarID}},
	}).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy.Query failed: %w", err)
	}

	cal, ok := resp.Calendars[primaryCalendarID]
	if !ok {
		return nil, nil
	}

	var busy []BusyInterval
	for _, period := range cal.Busy {
		s, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		e, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			continue
		}
		busy = append(busy, BusyInterval{Start: s, End: e})
	}

	return busy, nil
}

func (c *Calendar) newSvc(ctx context.Context) (*calendar.Service, error) {
	t, err := c.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	clt := c.cfg.Client(ctx, t)

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("calendar.NewService failed: %w", err)
	}

	return svc, nil
}
