package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/lifecycle"
	"github.com/fixcity/report-server/internal/models"
)

// Notifier dispatches the notification events emitted by the lifecycle
// state machine to the outside world (mail, SMS). Dispatch failures are
// logged and swallowed: a notification problem must never fail the status
// update that produced it.
type Notifier struct {
	logger *zap.SugaredLogger
}

// NewNotifier creates a new notifier
func NewNotifier(logger *zap.SugaredLogger) *Notifier {
	return &Notifier{logger: logger}
}

// Dispatch sends each event for the given report. The current transport is
// structured logging; wiring a mail or SMS provider happens here without
// touching the state machine.
func (n *Notifier) Dispatch(ctx context.Context, report *models.Report, events []lifecycle.Event) {
	for _, event := range events {
		if err := n.send(ctx, report, event); err != nil {
			n.logger.Errorw("Notification dispatch failed",
				"report_id", report.ID,
				"event", event,
				"error", err,
			)
		}
	}
}

func (n *Notifier) send(ctx context.Context, report *models.Report, event lifecycle.Event) error {
	switch event {
	case lifecycle.EventAssigned, lifecycle.EventResolved, lifecycle.EventRejected:
		n.logger.Infow("Notify citizen",
			"event", event,
			"report_id", report.ID,
			"user_id", report.UserID,
			"category", report.Category,
		)
	case lifecycle.EventTechAssigned:
		n.logger.Infow("Notify technician",
			"event", event,
			"report_id", report.ID,
			"technician_id", report.AssignedTechnicianID,
		)
	}
	return nil
}
