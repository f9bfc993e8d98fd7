package patients

import (
	"strings"
	"time"
)

// Filter narrows the roster. Empty fields match everything.
type Filter struct {
	Search string
	Risk   string
}

// Row is a roster line ready for display.
type Row struct {
	Key             int    `json:"key"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	Age             *int   `json:"age,omitempty"`
	Condition       string `json:"condition,omitempty"`
	LastVisit       string `json:"lastVisitDisplay,omitempty"`
	RiskLabel       string `json:"riskLabel"`
	RiskClass       string `json:"riskClass"`
	HighRisk        bool   `json:"highRisk"`
	RecentlyUpdated bool   `json:"recentlyUpdated"`
	CSSClass        string `json:"cssClass"`
}

func NewRow(key int, p Patient, now time.Time) Row {
	label := ScoreToLabel(p.RiskScore)
	row := Row{
		Key:             key,
		ID:              p.ID,
		Name:            p.Name,
		Age:             p.Age,
		Condition:       p.Condition,
		LastVisit:       p.LastVisit,
		RiskLabel:       label,
		RiskClass:       "cc-badge " + strings.ToLower(label),
		HighRisk:        IsHighRisk(p.RiskScore),
		RecentlyUpdated: RecentlyUpdated(p.LastVisit, now),
	}

	var css []string
	if row.RecentlyUpdated {
		css = append(css, "recently-updated")
	}
	if row.HighRisk {
		css = append(css, "high-risk")
	}
	row.CSSClass = strings.Join(css, " ")
	return row
}

// Apply builds rows for every patient matching f. Search matches the name or
// id as a case-insensitive substring; risk matches the label exactly,
// ignoring case. Keys are positions in the unfiltered roster.
func Apply(patients []Patient, f Filter, now time.Time) []Row {
	key := strings.ToLower(strings.TrimSpace(f.Search))
	risk := strings.ToLower(strings.TrimSpace(f.Risk))

	rows := make([]Row, 0, len(patients))
	for idx, p := range patients {
		row := NewRow(idx, p, now)
		if key != "" &&
			!strings.Contains(strings.ToLower(row.Name), key) &&
			!strings.Contains(strings.ToLower(row.ID), key) {
			continue
		}
		if risk != "" && strings.ToLower(row.RiskLabel) != risk {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
