package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hal9000y/gmail-agent/internal/gservice"
)

// Working hours free slots are constrained to.
const (
	workStartHour = 9
	workEndHour   = 18
)

const defaultMinSlotMinutes = 30

type freeBusySvc interface {
	FreeBusy(ctx context.Context, start, end time.Time) ([]gservice.BusyInterval, error)
}

// NewCalendarCheck creates the calendar availability tool. now is
// injectable so relative date parsing stays testable.
func NewCalendarCheck(svc freeBusySvc, now func() time.Time) *CalendarCheck {
	if now == nil {
		now = time.Now
	}
	return &CalendarCheck{
		svc: svc,
		now: now,
	}
}

// CalendarCheck answers "when am I free" questions by querying
// free/busy on the primary calendar and computing the gaps within
// working hours.
type CalendarCheck struct {
	svc freeBusySvc
	now func() time.Time
}

func (t *CalendarCheck) Name() string { return "calendar_check" }

func (t *CalendarCheck) Description() string {
	return "Check calendar availability for a given date range. " +
		"Returns busy and free time slots. Use this when someone asks " +
		"about meeting times or scheduling."
}

func (t *CalendarCheck) Parameters() []Param {
	return []Param{
		{
			Name:        "start_date",
			Type:        "string",
			Description: "Start date/time in ISO format or relative (e.g., 'tomorrow', 'next Monday')",
			Required:    true,
		},
		{
			Name:        "end_date",
			Type:        "string",
			Description: "End date/time in ISO format. If not provided, defaults to end of start_date day.",
		},
		{
			Name:        "min_duration_minutes",
			Type:        "integer",
			Description: "Minimum duration for free slots in minutes. Default: 30",
		},
	}
}

func (t *CalendarCheck) Execute(ctx context.Context, args map[string]any) Result {
	start, err := t.parseDate(argString(args, "start_date"))
	if err != nil {
		return Fail(fmt.Sprintf("invalid date format: %v", err))
	}

	var end time.Time
	if endArg := argString(args, "end_date"); endArg != "" {
		end, err = t.parseDate(endArg)
		if err != nil {
			return Fail(fmt.Sprintf("invalid date format: %v", err))
		}
	} else {
		end = time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, 0, start.Location())
	}

	if !start.Before(end) {
		return Fail("start date must be before end date")
	}

	minDuration := time.Duration(argInt(args, "min_duration_minutes", defaultMinSlotMinutes)) * time.Minute

	busy, err := t.svc.FreeBusy(ctx, start, end)
	if err != nil {
		return Fail(fmt.Sprintf("calendar API error: %v", err))
	}

	free := freeSlots(start, end, busy, minDuration)

	return OK(map[string]any{
		"start_date": start.Format(time.RFC3339),
		"end_date":   end.Format(time.RFC3339),
		"busy_slots": slotDicts(busy),
		"free_slots": slotDicts(free),
		"summary":    availabilitySummary(free),
	}, map[string]any{
		"slot_count": len(free),
		"busy_count": len(busy),
	})
}

var weekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006",
	"January 2, 2006",
	"January 2",
	"Jan 2, 2006",
	"Jan 2",
}

// parseDate understands relative dates ("today", "tomorrow", "next
// week"), weekday names (with "next" pushing a further week),
// morning/afternoon modifiers, and a set of absolute layouts. Bare
// dates default to 09:00.
func (t *CalendarCheck) parseDate(raw string) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	now := t.now()

	atHour := func(base time.Time, hour int) time.Time {
		return time.Date(base.Year(), base.Month(), base.Day(), hour, 0, 0, 0, base.Location())
	}

	switch s {
	case "today":
		return atHour(now, workStartHour), nil
	case "tomorrow":
		return atHour(now.AddDate(0, 0, 1), workStartHour), nil
	case "next week":
		return atHour(now.AddDate(0, 0, 7), workStartHour), nil
	}

	for i, day := range weekdayNames {
		if !strings.Contains(s, day) {
			continue
		}
		// time.Weekday counts Sunday=0, the name table counts Monday=0.
		current := (int(now.Weekday()) + 6) % 7
		ahead := i - current
		if ahead <= 0 {
			ahead += 7
		}
		if strings.Contains(s, "next") {
			ahead += 7
		}
		return atHour(now.AddDate(0, 0, ahead), workStartHour), nil
	}

	if strings.Contains(s, "afternoon") {
		base, err := t.parseDate(strings.TrimSpace(strings.ReplaceAll(s, "afternoon", "")))
		if err != nil {
			return time.Time{}, err
		}
		return atHour(base, 13), nil
	}
	if strings.Contains(s, "morning") {
		base, err := t.parseDate(strings.TrimSpace(strings.ReplaceAll(s, "morning", "")))
		if err != nil {
			return time.Time{}, err
		}
		return atHour(base, workStartHour), nil
	}

	for _, layout := range dateLayouts {
		parsed, err := time.ParseInLocation(layout, raw, now.Location())
		if err != nil {
			continue
		}
		if parsed.Year() == 0 {
			parsed = parsed.AddDate(now.Year(), 0, 0)
		}
		if !strings.Contains(layout, "15:04") && layout != time.RFC3339 {
			parsed = atHour(parsed, workStartHour)
		}
		return parsed, nil
	}

	return time.Time{}, fmt.Errorf("could not parse date: %s", raw)
}

// freeSlots returns the gaps between busy intervals, clamped to working
// hours and filtered by minimum duration.
func freeSlots(start, end time.Time, busy []gservice.BusyInterval, minDuration time.Duration) []gservice.BusyInterval {
	sorted := make([]gservice.BusyInterval, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var free []gservice.BusyInterval
	appendSlot := func(s, e time.Time) {
		slot, ok := clampToWorkHours(s, e)
		if ok && slot.End.Sub(slot.Start) >= minDuration {
			free = append(free, slot)
		}
	}

	current := start
	for _, b := range sorted {
		if current.Before(b.Start) {
			appendSlot(current, b.Start)
		}
		if b.End.After(current) {
			current = b.End
		}
	}
	if current.Before(end) {
		appendSlot(current, end)
	}

	return free
}

// clampToWorkHours constrains a span to the 09:00-18:00 window.
func clampToWorkHours(start, end time.Time) (gservice.BusyInterval, bool) {
	if start.Hour() < workStartHour {
		start = time.Date(start.Year(), start.Month(), start.Day(), workStartHour, 0, 0, 0, start.Location())
	}
	if start.Hour() >= workEndHour {
		return gservice.BusyInterval{}, false
	}

	if end.Hour() > workEndHour || (end.Hour() == workEndHour && end.Minute() > 0) {
		end = time.Date(end.Year(), end.Month(), end.Day(), workEndHour, 0, 0, 0, end.Location())
	}
	if end.Hour() < workStartHour {
		return gservice.BusyInterval{}, false
	}

	if !start.Before(end) {
		return gservice.BusyInterval{}, false
	}

	return gservice.BusyInterval{Start: start, End: end}, true
}

func slotDicts(slots []gservice.BusyInterval) []map[string]any {
	out := make([]map[string]any, 0, len(slots))
	for _, s := range slots {
		out = append(out, map[string]any{
			"start":            s.Start.Format(time.RFC3339),
			"end":              s.End.Format(time.RFC3339),
			"display":          displaySlot(s),
			"duration_minutes": int(s.End.Sub(s.Start).Minutes()),
		})
	}
	return out
}

func displaySlot(s gservice.BusyInterval) string {
	if s.Start.Year() == s.End.Year() && s.Start.YearDay() == s.End.YearDay() {
		return fmt.Sprintf("%s: %s - %s",
			s.Start.Format("Mon Jan 02"),
			s.Start.Format("03:04 PM"),
			s.End.Format("03:04 PM"))
	}
	return fmt.Sprintf("%s - %s",
		s.Start.Format("Mon Jan 02 03:04 PM"),
		s.End.Format("Mon Jan 02 03:04 PM"))
}

func availabilitySummary(free []gservice.BusyInterval) string {
	if len(free) == 0 {
		return "No available time slots found in the requested period."
	}

	lines := []string{"Available times:"}
	for i, slot := range free {
		if i == 5 {
			break
		}
		lines = append(lines, "  - "+displaySlot(slot))
	}
	if len(free) > 5 {
		lines = append(lines, fmt.Sprintf("  ... and %d more slots", len(free)-5))
	}

	return strings.Join(lines, "\n")
}
