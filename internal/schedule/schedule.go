// Package schedule converts weekly class schedules into (location, slot)
// sets and recommends meeting spots two users can both reach: slots they
// share exactly, plus same-location same-day slots in adjacent sections.
package schedule

import (
	"errors"
	"fmt"

	"github.com/racktic/bookmarket/pkg/models"
)

var (
	// ErrNotFound is returned when either side has no stored schedule.
	ErrNotFound = errors.New("class schedule not found")
)

// dayIndex maps day labels to 1..7. The label set is fixed; anything else
// is a validation error.
var dayIndex = map[string]int{
	"星期一": 1, "星期二": 2, "星期三": 3, "星期四": 4,
	"星期五": 5, "星期六": 6, "星期日": 7,
}

// sectionIndex maps class-period labels to 1..6.
var sectionIndex = map[string]int{
	"第1节": 1, "第2节": 2, "第3节": 3,
	"第4节": 4, "第5节": 5, "第6节": 6,
}

var indexDay = [...]string{"", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六", "星期日"}

var indexSection = [...]string{"", "第1节", "第2节", "第3节", "第4节", "第5节", "第6节"}

// nearbySections lists section pairs close enough in the day to meet
// around; consecutive periods share a between-class break.
var nearbySections = [...][2]int{{1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 6}}

// Slot is one attended (location, day, section) cell.
type Slot struct {
	Location string
	Day      int
	Section  int
}

// MeetingSpot is a recommended place and human-readable time.
type MeetingSpot struct {
	Location string `json:"location"`
	Time     string `json:"time"`
}

// ValidateEntries checks that every entry uses known day and section
// labels and carries a location.
func ValidateEntries(entries []models.ClassEntry) error {
	for i, e := range entries {
		if _, ok := dayIndex[e.Day]; !ok {
			return fmt.Errorf("entry %d: unknown day label %q", i, e.Day)
		}
		if _, ok := sectionIndex[e.Section]; !ok {
			return fmt.Errorf("entry %d: unknown section label %q", i, e.Section)
		}
		if e.Location == "" {
			return fmt.Errorf("entry %d: missing location", i)
		}
	}
	return nil
}

// Convert maps schedule entries to slots.
func Convert(entries []models.ClassEntry) ([]Slot, error) {
	slots := make([]Slot, 0, len(entries))
	for i, e := range entries {
		day, ok := dayIndex[e.Day]
		if !ok {
			return nil, fmt.Errorf("entry %d: unknown day label %q", i, e.Day)
		}
		section, ok := sectionIndex[e.Section]
		if !ok {
			return nil, fmt.Errorf("entry %d: unknown section label %q", i, e.Section)
		}
		slots = append(slots, Slot{Location: e.Location, Day: day, Section: section})
	}
	return slots, nil
}

// FormatTime renders a slot time as the human label, e.g. 星期一第2节.
func FormatTime(day, section int) string {
	return indexDay[day] + indexSection[section]
}

func nearby(a, b int) bool {
	for _, pair := range nearbySections {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true
		}
	}
	return false
}

// Recommend computes meeting spots for a seller and a buyer. Exact
// (location, day, section) intersections come first, followed by
// same-location same-day pairs in nearby sections, recommended at the
// earlier section. Results are structurally deduplicated in discovery
// order. A missing or empty schedule on either side is ErrNotFound.
func Recommend(seller, buyer []models.ClassEntry) ([]MeetingSpot, error) {
	if len(seller) == 0 || len(buyer) == 0 {
		return nil, ErrNotFound
	}

	sellerSlots, err := Convert(seller)
	if err != nil {
		return nil, err
	}
	buyerSlots, err := Convert(buyer)
	if err != nil {
		return nil, err
	}

	buyerSet := make(map[Slot]struct{}, len(buyerSlots))
	for _, s := range buyerSlots {
		buyerSet[s] = struct{}{}
	}

	var spots []MeetingSpot

	// Exact matches: identical cell on both sides.
	for _, s := range sellerSlots {
		if _, ok := buyerSet[s]; ok {
			spots = append(spots, MeetingSpot{
				Location: s.Location,
				Time:     FormatTime(s.Day, s.Section),
			})
		}
	}

	// Near matches: shared location, same day, adjacent sections.
	// Recommended at the earlier of the two sections.
	for _, s := range sellerSlots {
		for _, b := range buyerSlots {
			if s.Location != b.Location || s.Day != b.Day {
				continue
			}
			if !nearby(s.Section, b.Section) {
				continue
			}
			section := s.Section
			if b.Section < section {
				section = b.Section
			}
			spots = append(spots, MeetingSpot{
				Location: s.Location,
				Time:     FormatTime(s.Day, section),
			})
		}
	}

	return dedupe(spots), nil
}

func dedupe(spots []MeetingSpot) []MeetingSpot {
	seen := make(map[MeetingSpot]struct{}, len(spots))
	out := spots[:0]
	for _, s := range spots {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
