// Package patients serves the care team's patient roster and per-patient
// AI insights.
package patients

import (
	"strconv"
	"strings"
	"time"
)

const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"

	recentWindow = 14 * 24 * time.Hour
)

type Patient struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Age       *int    `json:"age,omitempty"`
	Condition string  `json:"condition,omitempty"`
	RiskScore float64 `json:"riskScore"`
	LastVisit string  `json:"lastVisit,omitempty"`
}

// RawPatient is one record as the remote endpoint returns it. Field names
// vary between the custom object and the REST projection.
type RawPatient struct {
	PatientID      string   `json:"patientId"`
	PatientIDLower string   `json:"patientid"`
	PatientIDSnake string   `json:"patient_id"`
	SFID           string   `json:"Id"`
	Name           string   `json:"name"`
	SFName         string   `json:"Name"`
	Age            *int     `json:"age"`
	Condition      string   `json:"condition"`
	RiskScore      *float64 `json:"riskScore"`
	LastVisitDate  string   `json:"lastVisitDate"`
	SFLastVisit    string   `json:"Last_Visit_Date__c"`
}

// Normalize resolves the first populated alias of every field. Records
// without any id get a positional one.
func Normalize(raw RawPatient, idx int) Patient {
	p := Patient{
		ID:        firstNonEmpty(raw.PatientID, raw.PatientIDLower, raw.PatientIDSnake, raw.SFID),
		Name:      firstNonEmpty(raw.Name, raw.SFName),
		Age:       raw.Age,
		Condition: raw.Condition,
		LastVisit: firstNonEmpty(raw.LastVisitDate, raw.SFLastVisit),
	}
	if p.ID == "" {
		p.ID = "row" + strconv.Itoa(idx)
	}
	if raw.RiskScore != nil {
		p.RiskScore = *raw.RiskScore
	}
	return p
}

func NormalizeAll(raws []RawPatient) []Patient {
	out := make([]Patient, len(raws))
	for i, raw := range raws {
		out[i] = Normalize(raw, i)
	}
	return out
}

// ScoreToLabel buckets a 0-10 risk score.
func ScoreToLabel(score float64) string {
	switch {
	case score >= 7:
		return RiskHigh
	case score >= 4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// IsHighRisk accepts both 0-10 and 0-100 scores.
func IsHighRisk(score float64) bool {
	return score > 80 || score >= 7
}

// RecentlyUpdated reports whether lastVisit is no more than 14 days before
// now. Dates that do not parse are never recent.
func RecentlyUpdated(lastVisit string, now time.Time) bool {
	visited, ok := parseVisit(lastVisit)
	if !ok {
		return false
	}
	return now.Sub(visited) <= recentWindow
}

var visitLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02",
}

func parseVisit(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range visitLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
