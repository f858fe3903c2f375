package calsync

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// event is one VEVENT from an external channel feed. End is inclusive.
type event struct {
	Start   time.Time
	End     time.Time
	Summary string
}

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405Z"
)

// parseCalendar reads the VEVENT blocks out of an iCalendar stream. Channel
// managers disagree on property ordering and parameters, so parsing is by
// prefix match on unfolded lines rather than a full RFC 5545 grammar.
func parseCalendar(r io.Reader) ([]event, error) {
	var events []event
	var cur *event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		raw := strings.TrimRight(scanner.Text(), "\r")
		// Folded continuation lines start with whitespace.
		if (strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += raw[1:]
			continue
		}
		lines = append(lines, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read calendar: %w", err)
	}

	for _, line := range lines {
		switch {
		case line == "BEGIN:VEVENT":
			cur = &event{}
		case line == "END:VEVENT":
			if cur != nil && !cur.Start.IsZero() && !cur.End.IsZero() {
				events = append(events, *cur)
			}
			cur = nil
		case cur == nil:
			continue
		case strings.HasPrefix(line, "DTSTART"):
			t, _, err := parseICalDate(line)
			if err != nil {
				return nil, err
			}
			cur.Start = t
		case strings.HasPrefix(line, "DTEND"):
			t, allDay, err := parseICalDate(line)
			if err != nil {
				return nil, err
			}
			// All-day DTEND is exclusive per the format; calendars store
			// inclusive ends.
			if allDay {
				t = t.AddDate(0, 0, -1)
			}
			cur.End = t
		case strings.HasPrefix(line, "SUMMARY:"):
			cur.Summary = strings.TrimPrefix(line, "SUMMARY:")
		}
	}

	return events, nil
}

// parseICalDate handles "DTSTART:20251101T140000Z", "DTSTART;VALUE=DATE:20251101"
// and similar DTEND forms. Returns the UTC midnight of the covered day and
// whether the property was a bare date.
func parseICalDate(line string) (time.Time, bool, error) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return time.Time{}, false, fmt.Errorf("malformed calendar line: %q", line)
	}
	value := line[idx+1:]

	if t, err := time.ParseInLocation(dateLayout, value, time.UTC); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(dateTimeLayout, value); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), false, nil
	}
	return time.Time{}, false, fmt.Errorf("unsupported calendar date %q", value)
}
