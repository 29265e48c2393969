package services

import (
	"context"
	"fmt"
	"strings"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	apperrors "coursebundler/pkg/errors"
	"coursebundler/pkg/utils"
	"coursebundler/pkg/validation"

	"go.uber.org/zap"
)

const (
	contactSubject       = "Contact from CourseBundler"
	courseRequestSubject = "Requesting for a course on CourseBundler"
)

type contactService struct {
	mailer       ports.Mailer
	adminAddress string
	metrics      ports.MetricsRecorder
	logger       *zap.SugaredLogger
}

func NewContactService(mailer ports.Mailer, adminAddress string, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) ports.ContactService {
	return &contactService{
		mailer:       mailer,
		adminAddress: adminAddress,
		metrics:      orNopMetrics(metrics),
		logger:       orNopLogger(logger),
	}
}

func (s *contactService) Contact(ctx context.Context, in ports.ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = utils.SanitizeString(in.Message)
	if err := validation.Struct(in); err != nil {
		return apperrors.NewInvalidInputError("All fields are mandatory")
	}

	body := fmt.Sprintf("I am %s and my Email is %s. \n%s", in.Name, in.Email, in.Message)
	return s.relay(ctx, "contact", in.Email, contactSubject, body)
}

func (s *contactService) RequestCourse(ctx context.Context, in ports.CourseRequestInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Course = utils.SanitizeString(in.Course)
	if err := validation.Struct(in); err != nil {
		return apperrors.NewInvalidInputError("All fields are mandatory")
	}

	body := fmt.Sprintf("I am %s and my Email is %s. \n%s", in.Name, in.Email, in.Course)
	return s.relay(ctx, "course_request", in.Email, courseRequestSubject, body)
}

func (s *contactService) relay(ctx context.Context, kind, replyTo, subject, body string) error {
	err := s.mailer.Send(ctx, domain.Mail{
		To:      []string{s.adminAddress},
		ReplyTo: replyTo,
		Subject: subject,
		Body:    body,
	})
	s.metrics.RecordEmailSent(kind, err)
	if err != nil {
		return fmt.Errorf("failed to send %s mail: %w", kind, err)
	}
	s.logger.Infow("Mail relayed", "kind", kind, "from", utils.MaskEmail(replyTo))
	return nil
}
