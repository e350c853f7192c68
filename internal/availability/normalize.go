package availability

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelsos/roomfinder/internal/models"
)

// Normalize validates what an adapter returned and turns it into a Result:
// room names must be non-empty and unique after trimming, every slot needs a
// parseable time label, and statuses come from the label table rather than
// from the adapter. Any violation is a ParseFailure; nothing is dropped.
func Normalize(raw models.RawResult, labels models.StatusLabels) (models.Result, error) {
	if raw == nil {
		return nil, parseFailure("adapter returned no result")
	}

	result := make(models.Result, len(raw))
	for name, slots := range raw {
		room := strings.TrimSpace(name)
		if room == "" {
			return nil, parseFailure("room with empty name")
		}
		if _, exists := result[room]; exists {
			return nil, parseFailure("room %q reported twice", room)
		}

		timeslots, err := normalizeSlots(room, slots, labels)
		if err != nil {
			return nil, err
		}
		result[room] = models.RoomAvailability{Room: room, Timeslots: timeslots}
	}

	return result, nil
}

type keyedSlot struct {
	start time.Time
	slot  models.Timeslot
}

func normalizeSlots(room string, slots []models.RawSlot, labels models.StatusLabels) ([]models.Timeslot, error) {
	keyed := make([]keyedSlot, 0, len(slots))
	for _, raw := range slots {
		label := strings.TrimSpace(raw.Time)
		start, err := SlotStart(label)
		if err != nil {
			return nil, parseFailure("room %q: %v", room, err)
		}

		status, err := labels.Label(raw.Available, raw.Qualifier)
		if err != nil {
			return nil, parseFailure("room %q slot %q: %v", room, label, err)
		}

		keyed = append(keyed, keyedSlot{
			start: start,
			slot:  models.Timeslot{Time: label, Available: raw.Available, Status: status},
		})
	}

	slices.SortStableFunc(keyed, func(a, b keyedSlot) int {
		return a.start.Compare(b.start)
	})

	timeslots := make([]models.Timeslot, len(keyed))
	for i, k := range keyed {
		if i > 0 && k.start.Equal(keyed[i-1].start) {
			return nil, parseFailure("room %q has two slots starting at %q", room, k.slot.Time)
		}
		timeslots[i] = k.slot
	}

	return timeslots, nil
}

// SlotStart parses the start of a slot label. Accepted forms are RFC 3339
// timestamps, "HH:MM" and "HH:MM-HH:MM" ranges. Clock-only labels are placed
// on the zero date so they order among themselves.
func SlotStart(label string) (time.Time, error) {
	if label == "" {
		return time.Time{}, fmt.Errorf("empty time label")
	}
	if t, err := time.Parse(time.RFC3339, label); err == nil {
		return t, nil
	}

	start, _, _ := strings.Cut(label, "-")
	t, err := time.Parse("15:04", strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised time label %q", label)
	}
	return t, nil
}

func parseFailure(format string, args ...any) error {
	return models.NewAdapterError(models.KindParseFailure, nil, format, args...)
}
