package notify

import (
	"context"

	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/sirupsen/logrus"
)

// LogNotifier writes notifications to the log, for processes without viewers.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n models.Notification) {
	entry := logger.Component("notify").WithFields(logrus.Fields{
		"title":    n.Title,
		"severity": n.Severity,
	})
	switch n.Severity {
	case models.SeverityError:
		entry.Error(n.Message)
	default:
		entry.Info(n.Message)
	}
}
