package notify

import (
	"bytes"
	"fmt"
	"regexp"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/ppiankov/schoolmon/internal/model"
)

const (
	inviteProductID    = "-//schoolmon//School Email Monitor//EN"
	inviteUIDDomain    = "schoolmon"
	defaultEventLength = time.Hour
	defaultEventTitle  = "School Event"
)

var clockPattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// InviteBuilder turns verified events into iCalendar invites
type InviteBuilder struct {
	loc    *time.Location
	now    func() time.Time
	newUID func() string
}

// NewInviteBuilder creates a builder that reads event dates in loc
func NewInviteBuilder(loc *time.Location) *InviteBuilder {
	if loc == nil {
		loc = time.Local
	}
	return &InviteBuilder{
		loc:    loc,
		now:    time.Now,
		newUID: uuid.NewString,
	}
}

// Build creates a single-event PUBLISH calendar for ev. title is the
// display title, already carrying the subject prefix. Events without a
// usable start time are all-day; timed events without a usable end run one hour.
func (b *InviteBuilder) Build(ev model.VerifiedEvent, title string) (*ical.Calendar, error) {
	if title == "" {
		title = defaultEventTitle
	}

	day, err := time.ParseInLocation(isoDate, ev.Date(), b.loc)
	if err != nil {
		return nil, fmt.Errorf("parse event date %q: %w", ev.Date(), err)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, inviteProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, b.newUID()+"@"+inviteUIDDomain)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, b.now().UTC())

	// A start time that only looks like a clock ("25:99") is treated as absent
	if start, ok := atClock(day, ev.Time); !ok {
		ve.Props.SetDate(ical.PropDateTimeStart, day)
		ve.Props.SetDate(ical.PropDateTimeEnd, day.AddDate(0, 0, 1))
	} else {
		end, ok := atClock(day, ev.Candidate.EndTime)
		if !ok || !end.After(start) {
			end = start.Add(defaultEventLength)
		}
		ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	}

	ve.Props.SetText(ical.PropSummary, title)
	ve.Props.SetText(ical.PropDescription, inviteDescription(ev))
	ve.Props.SetText(ical.PropStatus, "CONFIRMED")

	ve.Children = append(ve.Children,
		displayAlarm("-PT1H", "Reminder: "+title),
		displayAlarm("-P1D", "Tomorrow: "+title),
	)

	cal.Children = append(cal.Children, ve)
	return cal, nil
}

// Encode builds the invite and serializes it
func (b *InviteBuilder) Encode(ev model.VerifiedEvent, title string) ([]byte, error) {
	cal, err := b.Build(ev, title)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func inviteDescription(ev model.VerifiedEvent) string {
	desc := ev.Candidate.Description
	if ev.Candidate.SourceQuote != "" {
		desc += "\nSource: \"" + ev.Candidate.SourceQuote + "\""
	}
	if ev.LowConfidence() {
		desc += "\nNote: Low confidence - verify in original email"
	}
	return desc
}

func displayAlarm(trigger, description string) *ical.Component {
	alarm := ical.NewComponent(ical.CompAlarm)

	p := ical.NewProp(ical.PropTrigger)
	p.Value = trigger
	alarm.Props.Set(p)

	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, description)
	return alarm
}

// atClock places an "H:MM" clock time on day. ok is false for anything that
// is not a valid time of day.
func atClock(day time.Time, clock string) (time.Time, bool) {
	if !clockPattern.MatchString(clock) {
		return time.Time{}, false
	}
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil || h > 23 || m > 59 {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location()), true
}
