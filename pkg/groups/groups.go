// Package groups lists the care groups patients can be enrolled in.
package groups

import (
	"context"
	"fmt"

	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/careconnect-ai/insights/pkg/remote"
)

type Group struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
}

// RawGroup is one Group__c record as the remote returns it.
type RawGroup struct {
	ID          string `json:"Id"`
	Name        string `json:"Group_name__c"`
	Description string `json:"Description__c"`
	CreatedBy   string `json:"Created_By__c"`
}

func (r RawGroup) Group() Group {
	return Group{ID: r.ID, Name: r.Name, Description: r.Description, CreatedBy: r.CreatedBy}
}

type Source interface {
	ListGroups(ctx context.Context) ([]RawGroup, error)
}

type RemoteSource struct {
	client *remote.Client
}

func NewRemoteSource(client *remote.Client) *RemoteSource {
	return &RemoteSource{client: client}
}

func (s *RemoteSource) ListGroups(ctx context.Context) ([]RawGroup, error) {
	var out []RawGroup
	if err := s.client.Get(ctx, "/groups", &out); err != nil {
		return nil, err
	}
	return out, nil
}

type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

type Service struct {
	source   Source
	notifier Notifier
}

func NewService(source Source, notifier Notifier) *Service {
	return &Service{source: source, notifier: notifier}
}

// List fetches the groups. A failure is reported to viewers as "Error".
func (s *Service) List(ctx context.Context) ([]Group, error) {
	raws, err := s.source.ListGroups(ctx)
	if err != nil {
		if s.notifier != nil {
			s.notifier.Notify(ctx, models.NewNotification("Error", remote.Message(err), models.SeverityError))
		}
		return []Group{}, fmt.Errorf("loading groups: %w", err)
	}

	out := make([]Group, len(raws))
	for i, raw := range raws {
		out[i] = raw.Group()
	}
	logger.Component("groups").WithField("count", len(out)).Debug("groups loaded")
	return out, nil
}
