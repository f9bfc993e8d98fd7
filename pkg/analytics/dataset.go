package analytics

import (
	"encoding/json"
	"fmt"
	"math"
)

// Metrics is the four-field headline snapshot shown above the charts.
type Metrics struct {
	TotalPatients   int `json:"totalPatients"`
	ActiveCarePlans int `json:"activeCarePlans"`
	HighRiskCount   int `json:"highRiskCount"`
	EngagementRate  int `json:"engagementRate"`
}

type RiskCategory string

const (
	RiskLow    RiskCategory = "Low"
	RiskMedium RiskCategory = "Medium"
	RiskHigh   RiskCategory = "High"
)

// RiskCategories is the fixed drawing order of the risk donut.
var RiskCategories = []RiskCategory{RiskLow, RiskMedium, RiskHigh}

// RiskDistribution counts are independent of each other and of
// Metrics.TotalPatients; stale or partial data is shown as received.
type RiskDistribution struct {
	Low    int `json:"Low"`
	Medium int `json:"Medium"`
	High   int `json:"High"`
}

func (r RiskDistribution) Count(c RiskCategory) int {
	switch c {
	case RiskLow:
		return r.Low
	case RiskMedium:
		return r.Medium
	case RiskHigh:
		return r.High
	}
	return 0
}

// Values returns the counts in RiskCategories order.
func (r RiskDistribution) Values() []float64 {
	out := make([]float64, 0, len(RiskCategories))
	for _, c := range RiskCategories {
		out = append(out, float64(r.Count(c)))
	}
	return out
}

type LabelValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type DatePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Dataset is the fully defaulted record produced at the fetch boundary.
// Slices are never nil.
type Dataset struct {
	Metrics          Metrics          `json:"metrics"`
	RiskDistribution RiskDistribution `json:"riskDistribution"`
	EngagementByType []LabelValue     `json:"engagementByType"`
	WeeklyTrend      []DatePoint      `json:"weeklyTrend"`
	InsightSummary   []string         `json:"insightSummary"`
}

func EmptyDataset() Dataset {
	return Dataset{
		EngagementByType: []LabelValue{},
		WeeklyTrend:      []DatePoint{},
		InsightSummary:   []string{},
	}
}

func (d Dataset) EngagementSeries() ([]string, []float64) {
	labels := make([]string, len(d.EngagementByType))
	values := make([]float64, len(d.EngagementByType))
	for i, p := range d.EngagementByType {
		labels[i] = p.Label
		values[i] = p.Value
	}
	return labels, values
}

func (d Dataset) WeeklySeries() ([]string, []float64) {
	labels := make([]string, len(d.WeeklyTrend))
	values := make([]float64, len(d.WeeklyTrend))
	for i, p := range d.WeeklyTrend {
		labels[i] = p.Date
		values[i] = p.Value
	}
	return labels, values
}

// RawAnalytics mirrors the remote getAnalyticsData payload. Every field is
// optional; nil means absent or unusable. Normalize turns it into a Dataset.
type RawAnalytics struct {
	TotalPatients    *float64            `json:"totalPatients"`
	ActiveCarePlans  *float64            `json:"activeCarePlans"`
	HighRiskCount    *float64            `json:"highRiskCount"`
	EngagementRate   *float64            `json:"engagementRate"`
	RiskDistribution map[string]*float64 `json:"riskDistribution"`
	EngagementByType []rawLabelValue     `json:"engagementByType"`
	WeeklyTrend      []rawDatePoint      `json:"weeklyTrend"`
	InsightSummary   []*string           `json:"insightSummary"`
}

type rawLabelValue struct {
	Label *string  `json:"label"`
	Value *float64 `json:"value"`
}

type rawDatePoint struct {
	Date  *string  `json:"date"`
	Value *float64 `json:"value"`
}

// DecodeAnalytics parses a remote payload and normalizes it. Only a body that
// is not JSON at all is an error. Each field is decoded on its own, so a field
// of the wrong type is treated as missing; a null or non-object body yields an
// empty dataset.
func DecodeAnalytics(body []byte) (Dataset, error) {
	var doc json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return Dataset{}, fmt.Errorf("decoding analytics payload: %w", err)
	}
	fields, _ := decode[map[string]json.RawMessage](doc)
	return Normalize(decodeRaw(fields)), nil
}

func decodeRaw(fields map[string]json.RawMessage) RawAnalytics {
	raw := RawAnalytics{
		TotalPatients:   numberField(fields["totalPatients"]),
		ActiveCarePlans: numberField(fields["activeCarePlans"]),
		HighRiskCount:   numberField(fields["highRiskCount"]),
		EngagementRate:  numberField(fields["engagementRate"]),
	}

	if buckets, ok := decode[map[string]json.RawMessage](fields["riskDistribution"]); ok {
		raw.RiskDistribution = make(map[string]*float64, len(buckets))
		for k, v := range buckets {
			raw.RiskDistribution[k] = numberField(v)
		}
	}
	for _, item := range listField(fields["engagementByType"]) {
		raw.EngagementByType = append(raw.EngagementByType, rawLabelValue{
			Label: stringField(item["label"]),
			Value: numberField(item["value"]),
		})
	}
	for _, item := range listField(fields["weeklyTrend"]) {
		raw.WeeklyTrend = append(raw.WeeklyTrend, rawDatePoint{
			Date:  stringField(item["date"]),
			Value: numberField(item["value"]),
		})
	}
	if lines, ok := decode[[]json.RawMessage](fields["insightSummary"]); ok {
		for _, line := range lines {
			raw.InsightSummary = append(raw.InsightSummary, stringField(line))
		}
	}
	return raw
}

// decode reports false for absent, null or wrongly typed values.
func decode[T any](msg json.RawMessage) (T, bool) {
	var v T
	if len(msg) == 0 || string(msg) == "null" {
		return v, false
	}
	if err := json.Unmarshal(msg, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

func numberField(msg json.RawMessage) *float64 {
	if v, ok := decode[float64](msg); ok {
		return &v
	}
	return nil
}

func stringField(msg json.RawMessage) *string {
	if v, ok := decode[string](msg); ok {
		return &v
	}
	return nil
}

// listField keeps list entries that are objects; anything else in the list
// becomes an entry with every field missing.
func listField(msg json.RawMessage) []map[string]json.RawMessage {
	items, ok := decode[[]json.RawMessage](msg)
	if !ok {
		return nil
	}
	out := make([]map[string]json.RawMessage, len(items))
	for i, item := range items {
		out[i], _ = decode[map[string]json.RawMessage](item)
	}
	return out
}

// Normalize defaults every missing field to zero or empty. Counts are
// rounded and negative values clamp to zero; chart values are kept as sent.
func Normalize(raw RawAnalytics) Dataset {
	ds := EmptyDataset()
	ds.Metrics = Metrics{
		TotalPatients:   count(raw.TotalPatients),
		ActiveCarePlans: count(raw.ActiveCarePlans),
		HighRiskCount:   count(raw.HighRiskCount),
		EngagementRate:  count(raw.EngagementRate),
	}
	ds.RiskDistribution = RiskDistribution{
		Low:    count(raw.RiskDistribution[string(RiskLow)]),
		Medium: count(raw.RiskDistribution[string(RiskMedium)]),
		High:   count(raw.RiskDistribution[string(RiskHigh)]),
	}
	for _, p := range raw.EngagementByType {
		ds.EngagementByType = append(ds.EngagementByType, LabelValue{Label: str(p.Label), Value: num(p.Value)})
	}
	for _, p := range raw.WeeklyTrend {
		ds.WeeklyTrend = append(ds.WeeklyTrend, DatePoint{Date: str(p.Date), Value: num(p.Value)})
	}
	for _, s := range raw.InsightSummary {
		if s != nil {
			ds.InsightSummary = append(ds.InsightSummary, *s)
		}
	}
	return ds
}

func num(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

func count(v *float64) int {
	n := num(v)
	if n <= 0 {
		return 0
	}
	return int(roundHalfUp(n))
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// roundHalfUp rounds .5 toward positive infinity for both signs.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
