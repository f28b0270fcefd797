package core

import (
	"cmp"
	"slices"

	"github.com/straywatch/straywatch/pkg/models"
)

// Tier is a named severity bucket derived from the latest count.
type Tier string

const (
	TierSafe     Tier = "Safe"
	TierCaution  Tier = "Caution"
	TierCritical Tier = "Critical"
	TierDanger   Tier = "Danger"
)

type tierRule struct {
	match func(count int) bool
	tier  Tier
}

// tierRules is evaluated top to bottom; the first match wins.
var tierRules = []tierRule{
	{func(c int) bool { return c == 0 }, TierSafe},
	{func(c int) bool { return c == 1 }, TierCaution},
	{func(c int) bool { return c == 2 }, TierCritical},
	{func(c int) bool { return c >= 3 }, TierDanger},
}

// ClassifyTier maps a count to its status tier. Negative counts never reach
// the log; they classify as Safe.
func ClassifyTier(count int) Tier {
	for _, rule := range tierRules {
		if rule.match(count) {
			return rule.tier
		}
	}
	return TierSafe
}

// Summary holds display-ready statistics for one log snapshot.
type Summary struct {
	Latest       models.Observation `json:"latest"`
	MaxCount     int                `json:"max_count"`
	Total        int                `json:"total"`
	Observations int                `json:"observations"`
	Tier         Tier               `json:"tier"`
}

// Summarize computes latest, maximum, and total counts over a snapshot that
// need not be sorted. It returns ErrEmptyLog for an empty snapshot. The
// input is not modified and the result does not depend on input order.
func Summarize(snapshot []models.Observation) (Summary, error) {
	if len(snapshot) == 0 {
		return Summary{}, ErrEmptyLog
	}

	sorted := SortObservations(snapshot)

	s := Summary{
		Latest:       sorted[len(sorted)-1],
		MaxCount:     sorted[0].Count,
		Observations: len(sorted),
	}
	for _, obs := range sorted {
		if obs.Count > s.MaxCount {
			s.MaxCount = obs.Count
		}
		s.Total += obs.Count
	}
	s.Tier = ClassifyTier(s.Latest.Count)
	return s, nil
}

// SortObservations returns a copy of obs ordered by timestamp ascending.
// Equal timestamps are ordered by count, source, then ID so the result is
// the same for every permutation of the input.
func SortObservations(obs []models.Observation) []models.Observation {
	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b models.Observation) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Count, b.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sorted
}

// FilterMinCount returns the observations with Count >= minCount, newest first,
// capped at limit entries. A limit of zero or less means no cap.
func FilterMinCount(obs []models.Observation, minCount, limit int) []models.Observation {
	sorted := SortObservations(obs)
	var out []models.Observation
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Count < minCount {
			continue
		}
		out = append(out, sorted[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
