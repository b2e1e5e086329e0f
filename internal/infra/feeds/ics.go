// Package feeds publishes per-property iCalendar exports. The publisher
// listens to the relayed domain events and rewrites the feed of the property
// each event names.
package feeds

import (
	"bytes"
	"strings"
	"time"

	"hostdesk/internal/app/dto"
	appcalendar "hostdesk/internal/app/handlers/calendar"
)

const (
	ContentType = "text/calendar; charset=utf-8"
	prodID      = "-//hostdesk//calendar feed//EN"
	dateLayout  = "20060102"
	stampLayout = "20060102T150405Z"
	maxLine     = 75
)

// Render writes feed as an RFC 5545 VCALENDAR. Point events become all-day
// entries; task windows keep their times in UTC.
func Render(feed *appcalendar.Feed, stamp time.Time) []byte {
	var buf bytes.Buffer
	w := lineWriter{buf: &buf}
	w.line("BEGIN:VCALENDAR")
	w.line("VERSION:2.0")
	w.line("PRODID:" + prodID)
	w.line("CALSCALE:GREGORIAN")
	w.line("METHOD:PUBLISH")
	w.line("X-WR-CALNAME:" + escape(feed.Property.Name))
	for _, evt := range feed.Events {
		w.line("BEGIN:VEVENT")
		w.line("UID:" + evt.ID + "@hostdesk")
		w.line("DTSTAMP:" + stamp.UTC().Format(stampLayout))
		if evt.AllDay {
			start := evt.Start.UTC()
			w.line("DTSTART;VALUE=DATE:" + start.Format(dateLayout))
			w.line("DTEND;VALUE=DATE:" + start.AddDate(0, 0, 1).Format(dateLayout))
		} else {
			w.line("DTSTART:" + evt.Start.UTC().Format(stampLayout))
			w.line("DTEND:" + evt.End.UTC().Format(stampLayout))
		}
		w.line("SUMMARY:" + escape(evt.Title))
		w.line("CATEGORIES:" + strings.ToUpper(evt.Type))
		if desc := describe(evt); desc != "" {
			w.line("DESCRIPTION:" + escape(desc))
		}
		w.line("TRANSP:OPAQUE")
		w.line("END:VEVENT")
	}
	w.line("END:VCALENDAR")
	return buf.Bytes()
}

func describe(evt dto.CalendarEvent) string {
	switch {
	case evt.Stay != nil:
		return "Booking " + evt.Stay.BookingID + " (" + evt.Stay.BookingStatus + ")"
	case evt.Cleaning != nil:
		return strings.TrimSpace("Cleaning " + evt.Cleaning.Status + " " + evt.Cleaning.Staff)
	case evt.Maintenance != nil:
		parts := []string{evt.Maintenance.Priority + " priority " + evt.Maintenance.Kind}
		if evt.Maintenance.Description != "" {
			parts = append(parts, evt.Maintenance.Description)
		}
		return strings.Join(parts, ": ")
	}
	return ""
}

var escaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escape(s string) string {
	return escaper.Replace(s)
}

// lineWriter terminates content lines with CRLF and folds them at 75 octets
// without splitting a UTF-8 sequence.
type lineWriter struct {
	buf *bytes.Buffer
}

func (w lineWriter) line(s string) {
	limit := maxLine
	for len(s) > limit {
		cut := limit
		for cut > 0 && !startsRune(s[cut]) {
			cut--
		}
		w.buf.WriteString(s[:cut])
		w.buf.WriteString("\r\n ")
		s = s[cut:]
		limit = maxLine - 1
	}
	w.buf.WriteString(s)
	w.buf.WriteString("\r\n")
}

func startsRune(b byte) bool {
	return b&0xC0 != 0x80
}
