package mongo

import (
	"context"
	"fmt"
	"regexp"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCourseRepository struct {
	coll *mongo.Collection
}

func NewMongoCourseRepository(db *mongo.Database) ports.CourseRepository {
	return &MongoCourseRepository{coll: db.Collection(coursesCollection)}
}

func (r *MongoCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "insert", coursesCollection)
	defer span.End()

	course.Version = 1
	if _, err := r.coll.InsertOne(ctx, course); err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	return nil
}

func (r *MongoCourseRepository) get(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	var course domain.Course
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&course); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	return &course, nil
}

func (r *MongoCourseRepository) GetByID(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "find", coursesCollection)
	defer span.End()
	return r.get(ctx, id)
}

func (r *MongoCourseRepository) Update(ctx context.Context, id domain.CourseID, fn ports.CourseMutation) (*domain.Course, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "replace", coursesCollection)
	defer span.End()

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.get(ctx, id)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1

		res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": id, "version": current.Version}, next)
		if err != nil {
			return nil, fmt.Errorf("failed to replace course: %w", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return nil, domain.ErrVersionConflict
}

func (r *MongoCourseRepository) Delete(ctx context.Context, id domain.CourseID) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "delete", coursesCollection)
	defer span.End()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

// containsInsensitive matches value as a literal, case-insensitive substring.
func containsInsensitive(value string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(value), "$options": "i"}
}

func (r *MongoCourseRepository) Search(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "search", coursesCollection)
	defer span.End()

	query := bson.M{}
	if filter.Keyword != "" {
		query["title"] = containsInsensitive(filter.Keyword)
	}
	if filter.Category != "" {
		query["category"] = containsInsensitive(filter.Category)
	}

	opts := options.Find().
		SetProjection(bson.M{"lectures": 0}).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}
	courses := make([]*domain.Course, 0)
	if err := cur.All(ctx, &courses); err != nil {
		return nil, fmt.Errorf("failed to decode courses: %w", err)
	}
	return courses, nil
}

func (r *MongoCourseRepository) TotalViews(ctx context.Context) (int64, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "mongodb", "aggregate", coursesCollection)
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$views"}}},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum views: %w", err)
	}
	defer cur.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&result); err != nil {
			return 0, fmt.Errorf("failed to decode view total: %w", err)
		}
	}
	return result.Total, cur.Err()
}
