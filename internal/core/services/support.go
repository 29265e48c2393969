package services

import (
	"context"
	"errors"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	apperrors "coursebundler/pkg/errors"
	"coursebundler/pkg/utils"

	"go.uber.org/zap"
)

// changeNotifier publishes change events after successful writes. A failed publish
// is logged only; the periodic stats sweep catches up.
type changeNotifier struct {
	publisher  ports.ChangePublisher
	instanceID string
	logger     *zap.SugaredLogger
}

func (n changeNotifier) notify(ctx context.Context, collection domain.Collection, op domain.ChangeOp, id string) {
	if n.publisher == nil {
		return
	}
	event := domain.ChangeEvent{
		Collection: collection,
		Op:         op,
		DocumentID: id,
		InstanceID: n.instanceID,
		Timestamp:  utils.Now(),
	}
	if err := n.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		n.logger.Warnw("Failed to publish change event",
			"collection", collection,
			"op", op,
			"document_id", id,
			"error", err,
		)
	}
}

func orNopLogger(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

func orNopMetrics(m ports.MetricsRecorder) ports.MetricsRecorder {
	if m == nil {
		return NopMetrics{}
	}
	return m
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) RecordUserRegistered()                                      {}
func (NopMetrics) RecordLogin(bool)                                           {}
func (NopMetrics) RecordCourseCreated()                                       {}
func (NopMetrics) RecordLectureAdded()                                        {}
func (NopMetrics) RecordLectureDeleted()                                      {}
func (NopMetrics) RecordCourseViewed()                                        {}
func (NopMetrics) RecordSubscriptionEvent(string)                             {}
func (NopMetrics) RecordEmailSent(string, error)                              {}
func (NopMetrics) RecordStatsRecomputed(*domain.StatsSnapshot, time.Duration) {}

// translateRepoError maps repository sentinels to client-facing errors. Unknown
// errors pass through and surface as 500.
func translateRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NewNotFoundError("User not found")
	case errors.Is(err, domain.ErrCourseNotFound):
		return apperrors.NewNotFoundError("Course not found")
	case errors.Is(err, domain.ErrLectureNotFound):
		return apperrors.NewNotFoundError("Lecture not found")
	case errors.Is(err, domain.ErrEmailTaken):
		return apperrors.NewConflictError("User already exists")
	case errors.Is(err, domain.ErrVersionConflict):
		return apperrors.NewConflictError("Resource was modified concurrently, please retry")
	case errors.Is(err, domain.ErrGatewayDisabled):
		return apperrors.NewServiceUnavailableError("Payment gateway is not configured")
	}
	return err
}
