package services

import (
	"context"
	"fmt"
	"strings"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	apperrors "coursebundler/pkg/errors"
	"coursebundler/pkg/tracing"
	"coursebundler/pkg/utils"
	"coursebundler/pkg/validation"

	"go.uber.org/zap"
)

type courseService struct {
	courses  ports.CourseRepository
	media    ports.MediaStore
	metrics  ports.MetricsRecorder
	notifier changeNotifier
	logger   *zap.SugaredLogger
}

func NewCourseService(
	courses ports.CourseRepository,
	media ports.MediaStore,
	publisher ports.ChangePublisher,
	metrics ports.MetricsRecorder,
	instanceID string,
	logger *zap.SugaredLogger,
) ports.CourseService {
	logger = orNopLogger(logger)
	return &courseService{
		courses:  courses,
		media:    media,
		metrics:  orNopMetrics(metrics),
		notifier: changeNotifier{publisher: publisher, instanceID: instanceID, logger: logger},
		logger:   logger,
	}
}

func (s *courseService) Search(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	filter.Keyword = strings.TrimSpace(filter.Keyword)
	filter.Category = strings.TrimSpace(filter.Category)
	return s.courses.Search(ctx, filter)
}

func (s *courseService) Create(ctx context.Context, in ports.CreateCourseInput) (*domain.Course, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.CreatedBy = strings.TrimSpace(in.CreatedBy)
	if err := validation.Struct(in); err != nil {
		return nil, apperrors.NewInvalidInputError("Please add all fields")
	}

	poster, err := s.media.Upload(ctx, domain.MediaImage, in.Poster)
	if err != nil {
		return nil, fmt.Errorf("failed to upload poster: %w", err)
	}

	course := &domain.Course{
		ID:          domain.CourseID(utils.NewID()),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		CreatedBy:   in.CreatedBy,
		Poster:      poster,
		Lectures:    []domain.Lecture{},
		CreatedAt:   utils.Now(),
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, translateRepoError(err)
	}

	s.metrics.RecordCourseCreated()
	s.notifier.notify(ctx, domain.CollectionCourses, domain.OpInsert, string(course.ID))
	s.logger.Infow("Course created", "course_id", course.ID, "title", course.Title)
	return course, nil
}

// GetLectures counts as one view of the course.
func (s *courseService) GetLectures(ctx context.Context, id domain.CourseID) ([]domain.Lecture, error) {
	tracing.AddSpanAttributes(ctx, tracing.CourseIDKey.String(string(id)))

	course, err := s.courses.Update(ctx, id, func(c *domain.Course) error {
		c.Views++
		return nil
	})
	if err != nil {
		return nil, translateRepoError(err)
	}

	s.metrics.RecordCourseViewed()
	s.notifier.notify(ctx, domain.CollectionCourses, domain.OpUpdate, string(id))

	if course.Lectures == nil {
		return []domain.Lecture{}, nil
	}
	return course.Lectures, nil
}

func (s *courseService) AddLecture(ctx context.Context, id domain.CourseID, in ports.AddLectureInput) (*domain.Course, error) {
	if _, err := s.courses.GetByID(ctx, id); err != nil {
		return nil, translateRepoError(err)
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, apperrors.NewInvalidInputError("Please add all fields")
	}

	video, err := s.media.Upload(ctx, domain.MediaVideo, in.Video)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	lecture := domain.Lecture{
		ID:          domain.LectureID(utils.NewID()),
		Title:       in.Title,
		Description: in.Description,
		Video:       video,
	}
	course, err := s.courses.Update(ctx, id, func(c *domain.Course) error {
		c.AppendLecture(lecture)
		return nil
	})
	if err != nil {
		return nil, translateRepoError(err)
	}

	s.metrics.RecordLectureAdded()
	s.notifier.notify(ctx, domain.CollectionCourses, domain.OpUpdate, string(id))
	return course, nil
}

func (s *courseService) DeleteLecture(ctx context.Context, courseID domain.CourseID, lectureID domain.LectureID) error {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return translateRepoError(err)
	}

	lecture := course.FindLecture(lectureID)
	if lecture == nil {
		return translateRepoError(domain.ErrLectureNotFound)
	}

	if err := s.media.Destroy(ctx, domain.MediaVideo, lecture.Video); err != nil {
		return fmt.Errorf("failed to delete lecture video: %w", err)
	}

	_, err = s.courses.Update(ctx, courseID, func(c *domain.Course) error {
		if c.FindLecture(lectureID) == nil {
			return domain.ErrLectureNotFound
		}
		c.RemoveLecture(lectureID)
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}

	s.metrics.RecordLectureDeleted()
	s.notifier.notify(ctx, domain.CollectionCourses, domain.OpUpdate, string(courseID))
	return nil
}

// Delete removes the poster and every lecture video before the record itself.
func (s *courseService) Delete(ctx context.Context, id domain.CourseID) error {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return translateRepoError(err)
	}

	if !course.Poster.IsZero() {
		if err := s.media.Destroy(ctx, domain.MediaImage, course.Poster); err != nil {
			return fmt.Errorf("failed to delete poster: %w", err)
		}
	}
	for _, lecture := range course.Lectures {
		if err := s.media.Destroy(ctx, domain.MediaVideo, lecture.Video); err != nil {
			return fmt.Errorf("failed to delete lecture video %s: %w", lecture.ID, err)
		}
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		return translateRepoError(err)
	}

	s.notifier.notify(ctx, domain.CollectionCourses, domain.OpDelete, string(id))
	s.logger.Infow("Course deleted", "course_id", id, "lectures", len(course.Lectures))
	return nil
}
