package patients

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func TestScoreToLabel(t *testing.T) {
	cases := map[float64]string{0: "Low", 3.9: "Low", 4: "Medium", 6.99: "Medium", 7: "High", 95: "High"}
	for score, want := range cases {
		assert.Equal(t, want, ScoreToLabel(score), "score %v", score)
	}
}

func TestIsHighRisk(t *testing.T) {
	assert.True(t, IsHighRisk(7))
	assert.True(t, IsHighRisk(81))
	assert.False(t, IsHighRisk(6.5))
	assert.False(t, IsHighRisk(0))
}

func TestRecentlyUpdated(t *testing.T) {
	assert.True(t, RecentlyUpdated("2024-06-02", now))
	assert.True(t, RecentlyUpdated("2024-06-10T08:30:00.000+0000", now))
	assert.True(t, RecentlyUpdated("2024-06-14T00:00:00Z", now))
	assert.False(t, RecentlyUpdated("2024-05-31", now))
	assert.False(t, RecentlyUpdated("", now))
	assert.False(t, RecentlyUpdated("last tuesday", now))
}

func TestNormalizeResolvesAliases(t *testing.T) {
	var raws []RawPatient
	require.NoError(t, json.Unmarshal([]byte(`[
		{"patientId":"P-1","name":"Ada","riskScore":8,"lastVisitDate":"2024-06-02"},
		{"patient_id":"P-2","Name":"Grace","Last_Visit_Date__c":"2024-01-02"},
		{"Id":"003xx","name":"Linus","age":54,"condition":"COPD"},
		{"name":"Nobody"}
	]`), &raws))

	patients := NormalizeAll(raws)
	require.Len(t, patients, 4)
	assert.Equal(t, Patient{ID: "P-1", Name: "Ada", RiskScore: 8, LastVisit: "2024-06-02"}, patients[0])
	assert.Equal(t, "P-2", patients[1].ID)
	assert.Equal(t, "Grace", patients[1].Name)
	assert.Equal(t, "2024-01-02", patients[1].LastVisit)
	assert.Zero(t, patients[1].RiskScore)
	assert.Equal(t, "003xx", patients[2].ID)
	require.NotNil(t, patients[2].Age)
	assert.Equal(t, 54, *patients[2].Age)
	assert.Equal(t, "row3", patients[3].ID)
}

func TestNewRowFlags(t *testing.T) {
	row := NewRow(0, Patient{ID: "P-1", Name: "Ada", RiskScore: 8, LastVisit: "2024-06-02"}, now)
	assert.Equal(t, "High", row.RiskLabel)
	assert.Equal(t, "cc-badge high", row.RiskClass)
	assert.Equal(t, "recently-updated high-risk", row.CSSClass)

	row = NewRow(1, Patient{ID: "P-2", RiskScore: 5}, now)
	assert.Equal(t, "cc-badge medium", row.RiskClass)
	assert.Empty(t, row.CSSClass)
}

func TestApplyFilters(t *testing.T) {
	roster := []Patient{
		{ID: "P-1", Name: "Ada Lovelace", RiskScore: 8},
		{ID: "P-2", Name: "Grace Hopper", RiskScore: 5},
		{ID: "X-9", Name: "Linus", RiskScore: 1},
	}

	assert.Len(t, Apply(roster, Filter{}, now), 3)

	rows := Apply(roster, Filter{Search: "hopper"}, now)
	require.Len(t, rows, 1)
	assert.Equal(t, "P-2", rows[0].ID)
	assert.Equal(t, 1, rows[0].Key)

	rows = Apply(roster, Filter{Search: "x-"}, now)
	require.Len(t, rows, 1)
	assert.Equal(t, "X-9", rows[0].ID)

	rows = Apply(roster, Filter{Risk: "high"}, now)
	require.Len(t, rows, 1)
	assert.Equal(t, "P-1", rows[0].ID)

	assert.Empty(t, Apply(roster, Filter{Search: "p-", Risk: "Low"}, now))
}
