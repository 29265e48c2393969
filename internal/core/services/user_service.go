package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	apperrors "coursebundler/pkg/errors"
	"coursebundler/pkg/utils"
	"coursebundler/pkg/validation"

	"go.uber.org/zap"
)

const (
	resetTokenBytes      = 20
	resetPasswordSubject = "Course Bundler Reset Password"
)

type UserServiceConfig struct {
	FrontendURL   string
	ResetTokenTTL time.Duration
	InstanceID    string
}

type userService struct {
	users    ports.UserRepository
	courses  ports.CourseRepository
	media    ports.MediaStore
	mailer   ports.Mailer
	hasher   ports.PasswordHasher
	gateway  ports.PaymentGateway // nil when payments are disabled
	metrics  ports.MetricsRecorder
	notifier changeNotifier
	cfg      UserServiceConfig
	logger   *zap.SugaredLogger
}

func NewUserService(
	users ports.UserRepository,
	courses ports.CourseRepository,
	media ports.MediaStore,
	mailer ports.Mailer,
	hasher ports.PasswordHasher,
	gateway ports.PaymentGateway,
	publisher ports.ChangePublisher,
	metrics ports.MetricsRecorder,
	cfg UserServiceConfig,
	logger *zap.SugaredLogger,
) ports.UserService {
	logger = orNopLogger(logger)
	return &userService{
		users:    users,
		courses:  courses,
		media:    media,
		mailer:   mailer,
		hasher:   hasher,
		gateway:  gateway,
		metrics:  orNopMetrics(metrics),
		notifier: changeNotifier{publisher: publisher, instanceID: cfg.InstanceID, logger: logger},
		cfg:      cfg,
		logger:   logger,
	}
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *userService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = utils.NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, apperrors.NewInvalidInputError("Please enter all fields")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewConflictError("User already exists")
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	avatar, err := s.media.Upload(ctx, domain.MediaImage, in.Avatar)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           domain.UserID(utils.NewID()),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Avatar:       avatar,
		Playlist:     []domain.PlaylistItem{},
		CreatedAt:    utils.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translateRepoError(err)
	}

	s.metrics.RecordUserRegistered()
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpInsert, string(user.ID))
	s.logger.Infow("User registered", "user_id", user.ID, "email", utils.MaskEmail(user.Email))
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewInvalidInputError("Please enter all fields")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if user == nil || !s.hasher.Compare(user.PasswordHash, password) {
		s.metrics.RecordLogin(false)
		return nil, apperrors.NewUnauthorizedError("Incorrect email or password")
	}

	s.metrics.RecordLogin(true)
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, id domain.UserID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, id domain.UserID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.NewInvalidInputError("Please enter all fields")
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.users.Update(ctx, id, func(u *domain.User) error {
		if !s.hasher.Compare(u.PasswordHash, oldPassword) {
			return apperrors.NewUnauthorizedError("Incorrect Old password")
		}
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(id))
	return nil
}

// UpdateProfile changes only the fields that are supplied.
func (s *userService) UpdateProfile(ctx context.Context, id domain.UserID, name, email string) error {
	name = strings.TrimSpace(name)
	email = utils.NormalizeEmail(email)
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return apperrors.NewInvalidInputError(err.Error())
		}
	}

	_, err := s.users.Update(ctx, id, func(u *domain.User) error {
		if name != "" {
			u.Name = name
		}
		if email != "" {
			u.Email = email
		}
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(id))
	return nil
}

func (s *userService) UpdateProfilePicture(ctx context.Context, id domain.UserID, avatar *domain.Upload) error {
	if avatar == nil {
		return apperrors.NewInvalidInputError("Please upload a file")
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return translateRepoError(err)
	}

	ref, err := s.media.Upload(ctx, domain.MediaImage, avatar)
	if err != nil {
		return fmt.Errorf("failed to upload avatar: %w", err)
	}

	var previous domain.MediaRef
	_, err = s.users.Update(ctx, id, func(u *domain.User) error {
		previous = u.Avatar
		u.Avatar = ref
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}

	if !previous.IsZero() {
		if err := s.media.Destroy(ctx, domain.MediaImage, previous); err != nil {
			return fmt.Errorf("failed to delete previous avatar: %w", err)
		}
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(id))
	return nil
}

func (s *userService) DeleteProfile(ctx context.Context, id domain.UserID) error {
	return s.removeUser(ctx, id)
}

func (s *userService) DeleteUser(ctx context.Context, id domain.UserID) error {
	return s.removeUser(ctx, id)
}

// removeUser destroys the avatar, cancels a live subscription and deletes the record.
// The steps are not atomic: a failure part-way leaves whatever already happened.
func (s *userService) removeUser(ctx context.Context, id domain.UserID) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return translateRepoError(err)
	}

	if !user.Avatar.IsZero() {
		if err := s.media.Destroy(ctx, domain.MediaImage, user.Avatar); err != nil {
			return fmt.Errorf("failed to delete avatar: %w", err)
		}
	}

	if s.gateway != nil && user.Subscription.ID != "" && user.Subscription.IsActive() {
		if err := s.gateway.CancelSubscription(ctx, user.Subscription.ID); err != nil {
			s.logger.Warnw("Failed to cancel subscription of deleted user",
				"user_id", id,
				"subscription_id", user.Subscription.ID,
				"error", err,
			)
		} else {
			s.metrics.RecordSubscriptionEvent("cancelled")
		}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return translateRepoError(err)
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpDelete, string(id))
	return nil
}

func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return apperrors.NewInvalidInputError("Please enter all fields")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperrors.NewInvalidInputError("No user with this email")
	}
	if err != nil {
		return err
	}

	token, err := utils.RandomHex(resetTokenBytes)
	if err != nil {
		return err
	}
	expire := utils.Now().Add(s.cfg.ResetTokenTTL)

	_, err = s.users.Update(ctx, user.ID, func(u *domain.User) error {
		u.ResetPasswordToken = hashResetToken(token)
		u.ResetPasswordExpire = &expire
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}

	url := fmt.Sprintf("%s/resetpassword/%s", strings.TrimRight(s.cfg.FrontendURL, "/"), token)
	err = s.mailer.Send(ctx, domain.Mail{
		To:      []string{user.Email},
		Subject: resetPasswordSubject,
		Body:    fmt.Sprintf("Click on the link to reset your password. %s. If you have not requested then please ignore", url),
	})
	s.metrics.RecordEmailSent("reset_password", err)
	if err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return apperrors.NewInvalidInputError("Please enter all fields")
	}

	invalid := apperrors.NewInvalidInputError("Token is invalid/expired")
	if token == "" {
		return invalid
	}

	tokenHash := hashResetToken(token)
	user, err := s.users.GetByResetToken(ctx, tokenHash, utils.Now())
	if errors.Is(err, domain.ErrUserNotFound) {
		return invalid
	}
	if err != nil {
		return err
	}

	if err := validation.ValidatePassword(password); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.users.Update(ctx, user.ID, func(u *domain.User) error {
		// Another reset may have consumed the token since the lookup.
		if u.ResetPasswordToken != tokenHash || utils.IsExpired(u.ResetPasswordExpire, utils.Now()) {
			return invalid
		}
		u.PasswordHash = hash
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = nil
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(user.ID))
	return nil
}

func (s *userService) playlistCourse(ctx context.Context, courseID domain.CourseID) (*domain.Course, error) {
	if courseID == "" {
		return nil, apperrors.NewNotFoundError("Invalid Course ID")
	}
	course, err := s.courses.GetByID(ctx, courseID)
	if errors.Is(err, domain.ErrCourseNotFound) {
		return nil, apperrors.NewNotFoundError("Invalid Course ID")
	}
	return course, err
}

func (s *userService) AddToPlaylist(ctx context.Context, id domain.UserID, courseID domain.CourseID) error {
	course, err := s.playlistCourse(ctx, courseID)
	if err != nil {
		return err
	}

	_, err = s.users.Update(ctx, id, func(u *domain.User) error {
		if u.HasPlaylistCourse(course.ID) {
			return apperrors.NewConflictError("Item Already Exists")
		}
		u.Playlist = append(u.Playlist, domain.PlaylistItem{
			Course: course.ID,
			Poster: course.Poster.URL,
		})
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(id))
	return nil
}

func (s *userService) RemoveFromPlaylist(ctx context.Context, id domain.UserID, courseID domain.CourseID) error {
	course, err := s.playlistCourse(ctx, courseID)
	if err != nil {
		return err
	}

	_, err = s.users.Update(ctx, id, func(u *domain.User) error {
		u.Playlist = u.WithoutPlaylistCourse(course.ID)
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(id))
	return nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

func (s *userService) ToggleRole(ctx context.Context, id domain.UserID) error {
	_, err := s.users.Update(ctx, id, func(u *domain.User) error {
		u.Role = u.Role.Toggle()
		return nil
	})
	if err != nil {
		return translateRepoError(err)
	}
	s.notifier.notify(ctx, domain.CollectionUsers, domain.OpUpdate, string(id))
	return nil
}
