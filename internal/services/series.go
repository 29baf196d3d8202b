package services

import (
	"bytes"
	"sort"
	"time"

	"github.com/dimitrije/playdate-api/internal/apperror"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
)

// Occurrence is one dated row of a series and the child that hosts it.
type Occurrence struct {
	Date        time.Time
	HostChildID uuid.UUID
}

// SeriesSplitter expands recurrence rules into dates and assigns each date
// to a host. It does no I/O.
type SeriesSplitter struct {
	MaxOccurrences int
}

func NewSeriesSplitter(maxOccurrences int) *SeriesSplitter {
	return &SeriesSplitter{MaxOccurrences: maxOccurrences}
}

// Dates returns the sorted, de-duplicated occurrence dates. Explicit dates
// are used as given; weekdays expand over [start, end].
func (s *SeriesSplitter) Dates(start, end time.Time, weekdays []time.Weekday, explicit []time.Time) ([]time.Time, error) {
	start = models.DateOnly(start)
	end = models.DateOnly(end)
	if end.Before(start) {
		return nil, apperror.Validation(apperror.CodeInvalidSchedule, "end date is before start date")
	}

	seen := make(map[time.Time]bool)
	var dates []time.Time
	add := func(d time.Time) {
		d = models.DateOnly(d)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}

	for _, d := range explicit {
		add(d)
	}

	if len(weekdays) > 0 {
		want := make(map[time.Weekday]bool, len(weekdays))
		for _, w := range weekdays {
			want[w] = true
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if want[d.Weekday()] {
				add(d)
			}
			if s.MaxOccurrences > 0 && len(dates) > s.MaxOccurrences {
				break
			}
		}
	}

	if len(dates) == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidSchedule, "recurrence produces no dates")
	}
	if s.MaxOccurrences > 0 && len(dates) > s.MaxOccurrences {
		return nil, apperror.Validation(apperror.CodeInvalidSchedule, "too many occurrences in series")
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// Hosts returns the creator plus joint hosts, de-duplicated and ordered by
// id so the result does not depend on request order.
func Hosts(creatorChildID uuid.UUID, jointHosts []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{creatorChildID: true}
	hosts := []uuid.UUID{creatorChildID}
	for _, id := range jointHosts {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		hosts = append(hosts, id)
	}
	sort.Slice(hosts, func(i, j int) bool { return bytes.Compare(hosts[i][:], hosts[j][:]) < 0 })
	return hosts
}

// Assign gives every date exactly one host. A date already stored keeps its
// stored host. Otherwise an explicit assignment wins, and the rest rotate
// through hosts by chronological index. Maps are keyed by DateLayout.
func (s *SeriesSplitter) Assign(dates []time.Time, hosts []uuid.UUID, explicit, existing map[string]uuid.UUID) ([]Occurrence, error) {
	if len(hosts) == 0 {
		return nil, apperror.Invalid("series has no host")
	}
	isHost := make(map[uuid.UUID]bool, len(hosts))
	for _, h := range hosts {
		isHost[h] = true
	}
	for _, h := range explicit {
		if !isHost[h] {
			return nil, apperror.ErrUnresolvableHostChild
		}
	}

	out := make([]Occurrence, 0, len(dates))
	for i, d := range dates {
		key := d.Format(models.DateLayout)
		host, ok := existing[key]
		if !ok {
			host, ok = explicit[key]
		}
		if !ok {
			host = hosts[i%len(hosts)]
		}
		out = append(out, Occurrence{Date: d, HostChildID: host})
	}
	return out, nil
}
