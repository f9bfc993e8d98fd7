package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/careconnect-ai/insights/pkg/patients"
	"github.com/careconnect-ai/insights/pkg/remote"
	"github.com/gorilla/mux"
)

type Roster interface {
	Load(ctx context.Context) error
	Loading() bool
	Rows(f patients.Filter) []patients.Row
	Summary() patients.Summary
	Detail(ctx context.Context, patientID string) (patients.Detail, error)
	SendReminder(ctx context.Context, patientID string) ([]patients.Insight, error)
	Recommend(ctx context.Context, patientID string) (patients.Recommendation, error)
}

type rosterResponse struct {
	Rows    []patients.Row   `json:"rows"`
	Summary patients.Summary `json:"summary"`
	Loading bool             `json:"loading"`
}

type detailResponse struct {
	patients.Detail
	Error string `json:"error,omitempty"`
}

type reminderResponse struct {
	Insights []patients.Insight `json:"insights"`
	Error    string             `json:"error,omitempty"`
}

type recommendationResponse struct {
	patients.Recommendation
	Error string `json:"error,omitempty"`
}

type PatientsHandler struct {
	roster Roster
}

func RegisterPatientRoutes(router *mux.Router, roster Roster) {
	h := &PatientsHandler{roster: roster}
	router.HandleFunc("/patients", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/patients/reload", h.handleReload).Methods(http.MethodPost)
	router.HandleFunc("/patients/{id}", h.handleDetail).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id}/reminders", h.handleReminder).Methods(http.MethodPost)
	router.HandleFunc("/patients/{id}/recommendation", h.handleRecommend).Methods(http.MethodPost)
}

func (h *PatientsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := patients.Filter{Search: q.Get("search"), Risk: q.Get("risk")}
	writeJSON(w, rosterResponse{
		Rows:    h.roster.Rows(filter),
		Summary: h.roster.Summary(),
		Loading: h.roster.Loading(),
	})
}

func (h *PatientsHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.roster.Load(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, remote.Message(err))
		return
	}
	h.handleList(w, r)
}

// handleDetail answers 200 once the patient record is found, carrying any
// later activity or insight failure in the error field.
func (h *PatientsHandler) handleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.roster.Detail(r.Context(), mux.Vars(r)["id"])
	resp := detailResponse{Detail: detail}
	if err != nil {
		resp.Error = remote.Message(err)
	}
	switch {
	case errors.Is(err, patients.ErrMissingPatient):
		writeJSONStatus(w, http.StatusBadRequest, resp)
	case err != nil && !detail.Found:
		writeJSONStatus(w, http.StatusBadGateway, resp)
	default:
		writeJSON(w, resp)
	}
}

func (h *PatientsHandler) handleReminder(w http.ResponseWriter, r *http.Request) {
	insights, err := h.roster.SendReminder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeJSONStatus(w, http.StatusBadGateway, reminderResponse{
			Insights: insights,
			Error:    remote.Message(err),
		})
		return
	}
	writeJSON(w, reminderResponse{Insights: insights})
}

func (h *PatientsHandler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	rec, err := h.roster.Recommend(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeJSONStatus(w, http.StatusBadGateway, recommendationResponse{
			Recommendation: rec,
			Error:          remote.Message(err),
		})
		return
	}
	writeJSON(w, recommendationResponse{Recommendation: rec})
}
