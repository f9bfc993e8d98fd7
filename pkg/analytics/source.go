package analytics

import (
	"context"
	"encoding/json"

	"github.com/careconnect-ai/insights/pkg/remote"
)

// Source fetches the current analytics aggregate.
type Source interface {
	GetAnalyticsData(ctx context.Context) (Dataset, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Dataset, error)

func (f SourceFunc) GetAnalyticsData(ctx context.Context) (Dataset, error) { return f(ctx) }

// RemoteSource reads GET /analytics from the CareConnect endpoints.
type RemoteSource struct {
	client *remote.Client
}

func NewRemoteSource(client *remote.Client) *RemoteSource {
	return &RemoteSource{client: client}
}

func (s *RemoteSource) GetAnalyticsData(ctx context.Context) (Dataset, error) {
	var raw json.RawMessage
	if err := s.client.Get(ctx, "/analytics", &raw); err != nil {
		return Dataset{}, err
	}
	if len(raw) == 0 {
		return EmptyDataset(), nil
	}
	return DecodeAnalytics(raw)
}
