package dedup

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// priceRegex pulls the first dollar amount out of a free-text price field.
var priceRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// Fingerprint builds the normalized duplicate-grouping key for an event:
// lower-cased trimmed title + organizer + rounded start time + price class.
// Two events with the same fingerprint are treated as the same real-world
// occurrence.
func Fingerprint(e *types.Event, rounding time.Duration) string {
	return strings.Join([]string{
		NormalizeText(e.Title),
		NormalizeText(e.Organizer),
		e.StartTime.UTC().Round(rounding).Format(time.RFC3339),
		priceClass(e.Price),
	}, "|")
}

// NormalizeText lower-cases, trims, and collapses interior whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// priceClass buckets a free-text price into a coarse class so "$10" and
// "$12 at the door" land in the same group while free and premium events
// stay apart.
func priceClass(price string) string {
	p := strings.ToLower(strings.TrimSpace(price))
	if p == "" || strings.Contains(p, "free") || p == "$0" || p == "0" {
		return "free"
	}
	m := priceRegex.FindString(p)
	if m == "" {
		return "unknown"
	}
	amount, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return "unknown"
	}
	switch {
	case amount == 0:
		return "free"
	case amount < 15:
		return "cheap"
	case amount < 50:
		return "standard"
	default:
		return "premium"
	}
}

// Group is a set of events judged to represent the same occurrence, with one
// canonical survivor and the rest marked for removal. Groups are transient:
// they exist only for the duration of one pass.
type Group struct {
	Survivor *types.Event
	Remove   []*types.Event

	// MergedDescription is the longest description available in the group,
	// to be written onto the survivor before the rest are deleted.
	MergedDescription string
}

// GroupByFingerprint partitions events into duplicate groups. Within a
// group the earliest-created record survives. The grouping is pure
// computation over the given rows and never fails.
func GroupByFingerprint(events []*types.Event, rounding time.Duration) []Group {
	byKey := make(map[string][]*types.Event)
	var keys []string
	for _, e := range events {
		key := Fingerprint(e, rounding)
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], e)
	}

	var groups []Group
	for _, key := range keys {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}

		// Earliest-created record is canonical.
		sort.Slice(members, func(i, j int) bool {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		})

		longest := members[0].Description
		for _, m := range members[1:] {
			if len(m.Description) > len(longest) {
				longest = m.Description
			}
		}

		groups = append(groups, Group{
			Survivor:          members[0],
			Remove:            members[1:],
			MergedDescription: longest,
		})
	}
	return groups
}
