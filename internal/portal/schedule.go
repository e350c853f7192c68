package portal

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kelsos/roomfinder/internal/models"
)

const (
	resultsSelector    = "table#GridResults_gv"
	roomHeaderSelector = "div.scheduler_bluewhite_rowheader_inner"
	eventSelector      = "div.scheduler_bluewhite_event.scheduler_bluewhite_event_line0"

	bookingTimePrefix = "Booking Time:"
	// The scheduler closes every room's row with a not-available block.
	rowTerminator = "(not available)"
)

var qualifierSuffixes = map[string]string{
	"(not available)":     models.QualifierNotAvailable,
	"(reserved)":          models.QualifierReserved,
	"(under maintenance)": models.QualifierMaintenance,
}

// parseSchedule reads the scheduler view of an availability search. Row
// headers list the searched buildings followed by their rooms; the event
// blocks are listed row by row in the same order.
func parseSchedule(doc *goquery.Document, buildings []string) (models.RawResult, error) {
	if doc.Find(resultsSelector).Length() == 0 {
		return nil, parseFailure("availability results missing from portal response")
	}

	var rooms []string
	doc.Find(roomHeaderSelector).Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		if name != "" && !slices.Contains(buildings, name) {
			rooms = append(rooms, name)
		}
	})

	var titles []string
	doc.Find(eventSelector).Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, strings.TrimSpace(s.AttrOr("title", "")))
	})

	rows, err := splitRows(titles)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(rooms) {
		return nil, parseFailure("found %d rooms but %d schedule rows", len(rooms), len(rows))
	}

	result := make(models.RawResult, len(rooms))
	for i, room := range rooms {
		if _, exists := result[room]; exists {
			return nil, parseFailure("room %q listed twice", room)
		}

		slots, err := parseRow(rows[i])
		if err != nil {
			return nil, parseFailure("room %q: %v", room, err)
		}
		result[room] = fillGaps(slots)
	}

	return result, nil
}

func splitRows(titles []string) ([][]string, error) {
	var rows [][]string
	var current []string
	for _, title := range titles {
		current = append(current, title)
		if strings.HasSuffix(title, rowTerminator) {
			rows = append(rows, current)
			current = nil
		}
	}
	if len(current) > 0 {
		return nil, parseFailure("schedule ends with %d unterminated blocks", len(current))
	}
	return rows, nil
}

type interval struct {
	start, end string
	slot       models.RawSlot
}

func parseRow(entries []string) ([]interval, error) {
	intervals := make([]interval, 0, len(entries))
	for _, entry := range entries {
		parsed, err := parseEntry(entry)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, parsed)
	}
	return intervals, nil
}

// parseEntry understands the two title formats of the scheduler:
// "Booking Time: 09:00-10:00\n..." for bookings and
// "(09:00-10:00) (not available)" for blocked time.
func parseEntry(entry string) (interval, error) {
	for _, line := range strings.Split(entry, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, bookingTimePrefix); ok {
			return newInterval(strings.TrimSpace(rest), "")
		}
	}

	for suffix, qualifier := range qualifierSuffixes {
		if rest, ok := strings.CutSuffix(entry, suffix); ok {
			span := strings.Trim(strings.TrimSpace(rest), "()")
			return newInterval(span, qualifier)
		}
	}

	return interval{}, fmt.Errorf("unrecognised schedule block %q", entry)
}

func newInterval(span, qualifier string) (interval, error) {
	start, end, ok := strings.Cut(span, "-")
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if !ok || !isClock(start) || !isClock(end) {
		return interval{}, fmt.Errorf("bad time range %q", span)
	}
	return interval{
		start: start,
		end:   end,
		slot: models.RawSlot{
			Time:      start + "-" + end,
			Available: false,
			Qualifier: qualifier,
		},
	}, nil
}

func isClock(value string) bool {
	_, err := time.Parse("15:04", value)
	return err == nil && len(value) == len("15:04")
}

// fillGaps orders the blocks by start time and inserts an available slot
// wherever one block ends before the next begins.
func fillGaps(intervals []interval) []models.RawSlot {
	slices.SortStableFunc(intervals, func(a, b interval) int {
		return strings.Compare(a.start, b.start)
	})

	slots := make([]models.RawSlot, 0, len(intervals)*2)
	for i, current := range intervals {
		if i > 0 {
			previousEnd := intervals[i-1].end
			if previousEnd < current.start {
				slots = append(slots, models.RawSlot{Time: previousEnd + "-" + current.start, Available: true})
			}
		}
		slots = append(slots, current.slot)
	}
	return slots
}

func parseFailure(format string, args ...any) error {
	return models.NewAdapterError(models.KindParseFailure, nil, format, args...)
}
