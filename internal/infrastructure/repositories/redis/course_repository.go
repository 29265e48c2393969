package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

const courseIDsKey = keyPrefix + "course:ids"

func courseKey(id domain.CourseID) string { return keyPrefix + "course:" + string(id) }

// courseRecord carries the version that the API view hides.
type courseRecord struct {
	domain.Course
	Version int64 `json:"version"`
}

func (rec courseRecord) toCourse() *domain.Course {
	c := rec.Course
	c.Version = rec.Version
	return &c
}

type RedisCourseRepository struct {
	client *redis.Client
}

func NewRedisCourseRepository(client *redis.Client) ports.CourseRepository {
	return &RedisCourseRepository{client: client}
}

func (r *RedisCourseRepository) load(ctx context.Context, g getter, id domain.CourseID) (*domain.Course, error) {
	var rec courseRecord
	if err := getJSON(ctx, g, courseKey(id), &rec, domain.ErrCourseNotFound); err != nil {
		return nil, err
	}
	return rec.toCourse(), nil
}

func (r *RedisCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "create", "courses")
	defer span.End()

	course.Version = 1
	data, err := json.Marshal(courseRecord{Course: *course, Version: course.Version})
	if err != nil {
		return fmt.Errorf("failed to marshal course: %w", err)
	}

	created, err := r.client.SetNX(ctx, courseKey(course.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store course: %w", err)
	}
	if !created {
		return fmt.Errorf("course already exists: %s", course.ID)
	}
	if err := r.client.SAdd(ctx, courseIDsKey, string(course.ID)).Err(); err != nil {
		return fmt.Errorf("failed to index course: %w", err)
	}
	return nil
}

func (r *RedisCourseRepository) GetByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "get", "courses")
	defer span.End()
	return r.load(ctx, r.client, id)
}

func (r *RedisCourseRepository) Update(ctx context.Context, id domain.CourseID, fn ports.CourseMutation) (*domain.Course, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "update", "courses")
	defer span.End()

	key := courseKey(id)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var updated *domain.Course
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := r.load(ctx, tx, id)
			if err != nil {
				return err
			}
			next := current.Clone()
			if err := fn(next); err != nil {
				return err
			}
			next.Version = current.Version + 1

			data, err := json.Marshal(courseRecord{Course: *next, Version: next.Version})
			if err != nil {
				return fmt.Errorf("failed to marshal course: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			if err == nil {
				updated = next
			}
			return err
		}, key)

		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return nil, err
		}
	}
	return nil, domain.ErrVersionConflict
}

func (r *RedisCourseRepository) Delete(ctx context.Context, id domain.CourseID) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "delete", "courses")
	defer span.End()

	n, err := r.client.Del(ctx, courseKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if n == 0 {
		return domain.ErrCourseNotFound
	}
	if err := r.client.SRem(ctx, courseIDsKey, string(id)).Err(); err != nil {
		return fmt.Errorf("failed to unindex course: %w", err)
	}
	return nil
}

func (r *RedisCourseRepository) all(ctx context.Context) ([]*domain.Course, error) {
	ids, err := r.client.SMembers(ctx, courseIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list course ids: %w", err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = courseKey(domain.CourseID(id))
	}

	courses := make([]*domain.Course, 0, len(ids))
	err = mgetJSON(ctx, r.client, keys, func(data []byte) error {
		var rec courseRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal course: %w", err)
		}
		courses = append(courses, rec.toCourse())
		return nil
	})
	return courses, err
}

func (r *RedisCourseRepository) Search(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "redis", "search", "courses")
	defer span.End()

	courses, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.Course, 0, len(courses))
	for _, c := range courses {
		if filter.Matches(c) {
			matched = append(matched, c.Summary())
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (r *RedisCourseRepository) TotalViews(ctx context.Context) (int64, error) {
	courses, err := r.all(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, c := range courses {
		total += c.Views
	}
	return total, nil
}
