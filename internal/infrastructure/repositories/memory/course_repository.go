package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
)

type MemoryCourseRepository struct {
	courses map[domain.CourseID]*domain.Course
	mu      sync.RWMutex
}

func NewMemoryCourseRepository() ports.CourseRepository {
	return &MemoryCourseRepository{
		courses: make(map[domain.CourseID]*domain.Course),
	}
}

func (r *MemoryCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.courses[course.ID]; exists {
		return fmt.Errorf("course already exists: %s", course.ID)
	}

	stored := course.Clone()
	stored.Version = 1
	r.courses[course.ID] = stored
	course.Version = stored.Version
	return nil
}

func (r *MemoryCourseRepository) GetByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	course, exists := r.courses[id]
	if !exists {
		return nil, domain.ErrCourseNotFound
	}
	return course.Clone(), nil
}

func (r *MemoryCourseRepository) Update(ctx context.Context, id domain.CourseID, fn ports.CourseMutation) (*domain.Course, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}

		r.mu.Lock()
		stored, exists := r.courses[id]
		switch {
		case !exists:
			r.mu.Unlock()
			return nil, domain.ErrCourseNotFound
		case stored.Version == current.Version:
			next.Version = current.Version + 1
			r.courses[id] = next.Clone()
			r.mu.Unlock()
			return next, nil
		}
		r.mu.Unlock()
	}
	return nil, domain.ErrVersionConflict
}

func (r *MemoryCourseRepository) Delete(ctx context.Context, id domain.CourseID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.courses[id]; !exists {
		return domain.ErrCourseNotFound
	}
	delete(r.courses, id)
	return nil
}

// Search returns matches ordered by creation time, lectures stripped.
func (r *MemoryCourseRepository) Search(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	courses := make([]*domain.Course, 0)
	for _, c := range r.courses {
		if filter.Matches(c) {
			courses = append(courses, c.Summary())
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		return courses[i].CreatedAt.Before(courses[j].CreatedAt)
	})
	return courses, nil
}

func (r *MemoryCourseRepository) TotalViews(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, c := range r.courses {
		total += c.Views
	}
	return total, nil
}
