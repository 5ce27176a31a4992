package clinics

import (
	"sort"
	"strings"

	"github.com/wolfman30/klinikai/internal/triage"
)

type nameBonus struct {
	needles []string
	points  int
}

// Reputation bonuses, applied additively in this order.
var reputationBonuses = []nameBonus{
	{needles: []string{"national", "ijn"}, points: 50},
	{needles: []string{"prince court", "gleneagles"}, points: 40},
	{needles: []string{"sunway", "pantai"}, points: 35},
	{needles: []string{"columbia", "tropicana"}, points: 30},
	{needles: []string{"hospital"}, points: 25},
	{needles: []string{"medical centre"}, points: 20},
	{needles: []string{"klinik", "clinic"}, points: 15},
}

// ClassifyType derives the facility type from a clinic name. The first
// matching rule wins.
func ClassifyType(name string) Type {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "emergency", "24hr", "24-hour"):
		return TypeEmergency
	case containsAny(lower, "hospital", "medical centre", "medical center"):
		return TypeHospital
	case containsAny(lower, "specialist", "institute", "centre"):
		return TypeSpecialist
	default:
		return TypeClinic
	}
}

// Priority scores a clinic name for the given urgency. Higher is better.
func Priority(name string, urgency triage.Urgency) int {
	lower := strings.ToLower(name)
	score := 0
	for _, b := range reputationBonuses {
		if containsAny(lower, b.needles...) {
			score += b.points
		}
	}

	switch urgency {
	case triage.UrgencyEmergency:
		if containsAny(lower, "emergency", "24") {
			score += 100
		}
		if strings.Contains(lower, "hospital") {
			score += 50
		}
	case triage.UrgencyHigh:
		if containsAny(lower, "specialist", "hospital") {
			score += 30
		}
	}
	return score
}

// Annotate turns clinic rows into recommendations for specialty/urgency.
func Annotate(rows []Clinic, specialty string, urgency triage.Urgency) []Recommendation {
	out := make([]Recommendation, 0, len(rows))
	for _, c := range rows {
		out = append(out, Recommendation{
			ID:          c.ID,
			Name:        c.Name,
			Address:     c.Address,
			Specialties: []string{specialty},
			Type:        ClassifyType(c.Name),
			Priority:    Priority(c.Name, urgency),
		})
	}
	return out
}

// Rank sorts recommendations in place. For acute urgencies emergency
// centres come first, then hospitals, then specialists and clinics
// together; within each group, and for routine care, higher priority wins.
// Equal elements keep their query order.
func Rank(recs []Recommendation, urgency triage.Urgency) {
	sort.SliceStable(recs, func(i, j int) bool {
		return compare(recs[i], recs[j], urgency) < 0
	})
}

func compare(a, b Recommendation, urgency triage.Urgency) int {
	if urgency.Acute() {
		if d := typeRank(a.Type) - typeRank(b.Type); d != 0 {
			return d
		}
	}
	return b.Priority - a.Priority
}

// typeRank orders facility types for acute care. Specialists and plain
// clinics share a rank so priority decides between them.
func typeRank(t Type) int {
	switch t {
	case TypeEmergency:
		return 0
	case TypeHospital:
		return 1
	default:
		return 2
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
