package patients

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/careconnect-ai/insights/pkg/remote"
)

const (
	reminderChannel = "Email"
	reminderMessage = "Please schedule your follow-up visit."
)

// Source is the remote side of the roster.
type Source interface {
	ListPatients(ctx context.Context) ([]RawPatient, error)
	Patient(ctx context.Context, patientID string) (RawPatient, error)
	Activities(ctx context.Context, patientID string) ([]RawActivity, error)
	Insights(ctx context.Context, patientID string) ([]string, error)
	Recommendation(ctx context.Context, patientID string) (json.RawMessage, error)
	SendReminder(ctx context.Context, r Reminder) error
}

type Reminder struct {
	PatientID string `json:"patientId"`
	Channel   string `json:"channel"`
	Message   string `json:"message"`
}

// NewReminder is the follow-up nudge sent from the roster.
func NewReminder(patientID string) Reminder {
	return Reminder{PatientID: patientID, Channel: reminderChannel, Message: reminderMessage}
}

type RemoteSource struct {
	client *remote.Client
}

func NewRemoteSource(client *remote.Client) *RemoteSource {
	return &RemoteSource{client: client}
}

func (s *RemoteSource) ListPatients(ctx context.Context) ([]RawPatient, error) {
	var out []RawPatient
	if err := s.client.Get(ctx, "/patients", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RemoteSource) Patient(ctx context.Context, patientID string) (RawPatient, error) {
	var out RawPatient
	if err := s.client.Get(ctx, patientPath(patientID), &out); err != nil {
		return RawPatient{}, err
	}
	return out, nil
}

func (s *RemoteSource) Activities(ctx context.Context, patientID string) ([]RawActivity, error) {
	var out []RawActivity
	if err := s.client.Get(ctx, patientPath(patientID)+"/activities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Recommendation asks the remote to generate one. The body is passed
// through untouched.
func (s *RemoteSource) Recommendation(ctx context.Context, patientID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.client.Post(ctx, patientPath(patientID)+"/recommendation", struct{}{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RemoteSource) Insights(ctx context.Context, patientID string) ([]string, error) {
	var out []string
	if err := s.client.Get(ctx, patientPath(patientID)+"/insights", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RemoteSource) SendReminder(ctx context.Context, r Reminder) error {
	return s.client.Post(ctx, patientPath(r.PatientID)+"/reminders", r, nil)
}

func patientPath(patientID string) string {
	return "/patients/" + url.PathEscape(patientID)
}
