package ports

import (
	"context"

	"coursebundler/internal/core/domain"
)

type RegisterInput struct {
	Name     string         `validate:"required"`
	Email    string         `validate:"required"`
	Password string         `validate:"required"`
	Avatar   *domain.Upload `validate:"required"`
}

type CreateCourseInput struct {
	Title       string         `validate:"required"`
	Description string         `validate:"required"`
	Category    string         `validate:"required"`
	CreatedBy   string         `validate:"required"`
	Poster      *domain.Upload `validate:"required"`
}

type AddLectureInput struct {
	Title       string         `validate:"required"`
	Description string         `validate:"required"`
	Video       *domain.Upload `validate:"required"`
}

type ContactInput struct {
	Name    string `validate:"required"`
	Email   string `validate:"required"`
	Message string `validate:"required"`
}

type CourseRequestInput struct {
	Name   string `validate:"required"`
	Email  string `validate:"required"`
	Course string `validate:"required"`
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	GetProfile(ctx context.Context, id domain.UserID) (*domain.User, error)
	ChangePassword(ctx context.Context, id domain.UserID, oldPassword, newPassword string) error
	UpdateProfile(ctx context.Context, id domain.UserID, name, email string) error
	UpdateProfilePicture(ctx context.Context, id domain.UserID, avatar *domain.Upload) error
	DeleteProfile(ctx context.Context, id domain.UserID) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	AddToPlaylist(ctx context.Context, id domain.UserID, courseID domain.CourseID) error
	RemoveFromPlaylist(ctx context.Context, id domain.UserID, courseID domain.CourseID) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
	ToggleRole(ctx context.Context, id domain.UserID) error
	DeleteUser(ctx context.Context, id domain.UserID) error
}

type CourseService interface {
	Search(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error)
	Create(ctx context.Context, in CreateCourseInput) (*domain.Course, error)
	GetLectures(ctx context.Context, id domain.CourseID) ([]domain.Lecture, error)
	AddLecture(ctx context.Context, id domain.CourseID, in AddLectureInput) (*domain.Course, error)
	DeleteLecture(ctx context.Context, courseID domain.CourseID, lectureID domain.LectureID) error
	Delete(ctx context.Context, id domain.CourseID) error
}

type PaymentService interface {
	PublicKey() string
	BeginSubscription(ctx context.Context, userID domain.UserID) (*domain.GatewaySubscription, error)
	VerifyAndRecord(ctx context.Context, userID domain.UserID, subscriptionID string) (*domain.Payment, error)
	// CancelSubscription reports whether the last payment was refunded.
	CancelSubscription(ctx context.Context, userID domain.UserID) (bool, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type StatsService interface {
	Recompute(ctx context.Context) (*domain.StatsSnapshot, error)
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
}

type ContactService interface {
	Contact(ctx context.Context, in ContactInput) error
	RequestCourse(ctx context.Context, in CourseRequestInput) error
}
