package patients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/careconnect-ai/insights/pkg/remote"
)

var ErrMissingPatient = errors.New("patients: patient id is required")

type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

type Insight struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	Text      string `json:"text"`
}

type Detail struct {
	Patient    Patient    `json:"patient"`
	Found      bool       `json:"found"`
	Activities []Activity `json:"activities"`
	Insights   []Insight  `json:"insights"`
}

// Recommendation is a freshly generated AI suggestion together with the
// insights reloaded after it.
type Recommendation struct {
	PatientID string          `json:"patientId"`
	Result    json.RawMessage `json:"result,omitempty"`
	Insights  []Insight       `json:"insights"`
}

// Summary counts the loaded roster.
type Summary struct {
	TotalPatients int `json:"totalPatients"`
	TotalPct      int `json:"totalPct"`
	HighRisk      int `json:"highRisk"`
}

type Service struct {
	source   Source
	notifier Notifier
	now      func() time.Time

	mu       sync.RWMutex
	patients []Patient
	loaded   bool
	loading  int
}

func NewService(source Source, notifier Notifier) *Service {
	return &Service{source: source, notifier: notifier, now: time.Now}
}

// Load replaces the roster. On failure the previous roster stays and
// viewers get a "Load Failed" toast.
func (s *Service) Load(ctx context.Context) error {
	s.setLoading(1)
	defer s.setLoading(-1)

	raws, err := s.source.ListPatients(ctx)
	if err != nil {
		s.toast(ctx, "Load Failed", remote.Message(err), models.SeverityError)
		return fmt.Errorf("loading patients: %w", err)
	}

	patients := NormalizeAll(raws)
	s.mu.Lock()
	s.patients = patients
	s.loaded = true
	s.mu.Unlock()

	logger.Component("patients").WithField("count", len(patients)).Info("roster loaded")
	return nil
}

func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

func (s *Service) Rows(f Filter) []Row {
	s.mu.RLock()
	patients := s.patients
	s.mu.RUnlock()
	return Apply(patients, f, s.now())
}

func (s *Service) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{TotalPatients: len(s.patients)}
	if s.loaded {
		sum.TotalPct = 100
	}
	for _, p := range s.patients {
		if IsHighRisk(p.RiskScore) {
			sum.HighRisk++
		}
	}
	return sum
}

// Detail fetches the patient record and care-plan activities, then their
// insights. A record or activity failure is reported to viewers as "Error"
// and aborts the load. An insight failure yields no insights.
func (s *Service) Detail(ctx context.Context, patientID string) (Detail, error) {
	if patientID == "" {
		return Detail{}, ErrMissingPatient
	}

	raw, err := s.source.Patient(ctx, patientID)
	if err != nil {
		s.toast(ctx, "Error", remote.Message(err), models.SeverityError)
		return Detail{Patient: Patient{ID: patientID}}, fmt.Errorf("loading patient: %w", err)
	}
	if firstNonEmpty(raw.PatientID, raw.PatientIDLower, raw.PatientIDSnake, raw.SFID) == "" {
		raw.PatientID = patientID
	}
	d := Detail{Patient: Normalize(raw, 0), Found: true}

	activities, err := s.source.Activities(ctx, patientID)
	if err != nil {
		s.toast(ctx, "Error", remote.Message(err), models.SeverityError)
		return d, fmt.Errorf("loading activities: %w", err)
	}
	d.Activities = NormalizeActivities(activities)

	insights, err := s.insights(ctx, patientID)
	d.Insights = insights
	return d, err
}

// Recommend generates an AI recommendation for the patient and then reloads
// their insights. The reload is best effort and never reported.
func (s *Service) Recommend(ctx context.Context, patientID string) (Recommendation, error) {
	if patientID == "" {
		return Recommendation{}, ErrMissingPatient
	}

	result, err := s.source.Recommendation(ctx, patientID)
	if err != nil {
		s.toast(ctx, "AI Error", remote.Message(err), models.SeverityError)
		return Recommendation{PatientID: patientID, Insights: []Insight{}}, fmt.Errorf("generating recommendation: %w", err)
	}
	s.toast(ctx, "AI Ready", "Recommendation generated", models.SeveritySuccess)

	rec := Recommendation{PatientID: patientID, Result: result}
	rec.Insights, err = s.fetchInsights(ctx, patientID)
	if err != nil {
		logger.Component("patients").WithError(err).WithField("patient_id", patientID).
			Warn("insight refresh after recommendation failed")
	}
	return rec, nil
}

// SendReminder asks the remote to nudge the patient, then reloads their
// insights whether or not the reminder went out.
func (s *Service) SendReminder(ctx context.Context, patientID string) ([]Insight, error) {
	if patientID == "" {
		return nil, ErrMissingPatient
	}

	sendErr := s.source.SendReminder(ctx, NewReminder(patientID))
	if sendErr != nil {
		s.toast(ctx, "Send Failed", remote.Message(sendErr), models.SeverityError)
	} else {
		s.toast(ctx, "Reminder Sent", "Patient notified successfully", models.SeveritySuccess)
	}

	insights, err := s.insights(ctx, patientID)
	if sendErr != nil {
		return insights, fmt.Errorf("sending reminder: %w", sendErr)
	}
	return insights, err
}

func (s *Service) insights(ctx context.Context, patientID string) ([]Insight, error) {
	out, err := s.fetchInsights(ctx, patientID)
	if err != nil {
		s.toast(ctx, "Insights Error", remote.Message(err), models.SeverityError)
	}
	return out, err
}

func (s *Service) fetchInsights(ctx context.Context, patientID string) ([]Insight, error) {
	lines, err := s.source.Insights(ctx, patientID)
	if err != nil {
		return []Insight{}, fmt.Errorf("loading insights: %w", err)
	}
	out := make([]Insight, len(lines))
	for i, line := range lines {
		out[i] = Insight{ID: "ins" + strconv.Itoa(i), PatientID: patientID, Text: line}
	}
	return out, nil
}

func (s *Service) setLoading(delta int) {
	s.mu.Lock()
	s.loading += delta
	s.mu.Unlock()
}

func (s *Service) toast(ctx context.Context, title, message string, severity models.Severity) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, models.NewNotification(title, message, severity))
}
