package patients

import "strconv"

// Activity is one care-plan task on the patient detail view.
type Activity struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Due               string `json:"dueDate,omitempty"`
	Status            string `json:"status,omitempty"`
	RecommendedAction string `json:"recommendedAction,omitempty"`
}

type RawActivity struct {
	ID                  string `json:"id"`
	SFID                string `json:"Id"`
	Type                string `json:"activityType"`
	SFType              string `json:"Activity_Type__c"`
	DueDate             string `json:"dueDate"`
	SFDueDate           string `json:"Due_Date__c"`
	Status              string `json:"status"`
	SFStatus            string `json:"Status__c"`
	RecommendedAction   string `json:"recommendedAction"`
	SFRecommendedAction string `json:"Recommended_Action__c"`
}

func NormalizeActivities(raws []RawActivity) []Activity {
	out := make([]Activity, len(raws))
	for i, raw := range raws {
		a := Activity{
			ID:                firstNonEmpty(raw.ID, raw.SFID),
			Type:              firstNonEmpty(raw.Type, raw.SFType),
			Due:               firstNonEmpty(raw.DueDate, raw.SFDueDate),
			Status:            firstNonEmpty(raw.Status, raw.SFStatus),
			RecommendedAction: firstNonEmpty(raw.RecommendedAction, raw.SFRecommendedAction),
		}
		if a.ID == "" {
			a.ID = "act" + strconv.Itoa(i)
		}
		out[i] = a
	}
	return out
}
