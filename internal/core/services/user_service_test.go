package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	apperrors "coursebundler/pkg/errors"
	"coursebundler/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func assertAppError(t *testing.T, err error, code apperrors.ErrorCode, message string) {
	t.Helper()
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := env.register(t, "Ann", "Ann@Example.com")
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.False(t, u.Avatar.IsZero())
	assert.Equal(t, 1, env.publisher.count())

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := env.userSvc.Register(ctx, ports.RegisterInput{
			Name: "Other", Email: "ann@example.com", Password: "secret123", Avatar: upload("a.png"),
		})
		assertAppError(t, err, apperrors.ErrCodeConflict, "User already exists")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := env.userSvc.Register(ctx, ports.RegisterInput{Name: "B", Email: "b@example.com", Password: "secret123"})
		assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Please enter all fields")
	})

	t.Run("short password", func(t *testing.T) {
		_, err := env.userSvc.Register(ctx, ports.RegisterInput{
			Name: "B", Email: "b@example.com", Password: "123", Avatar: upload("a.png"),
		})
		assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Password must be at least 6 characters")
	})
}

func TestLogin_DoesNotRevealWhichPartFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Ann", "ann@example.com")

	u, err := env.userSvc.Login(ctx, "ANN@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)

	_, errWrongPw := env.userSvc.Login(ctx, "ann@example.com", "nope-nope")
	_, errUnknown := env.userSvc.Login(ctx, "ghost@example.com", "secret123")
	assertAppError(t, errWrongPw, apperrors.ErrCodeUnauthorized, "Incorrect email or password")
	assertAppError(t, errUnknown, apperrors.ErrCodeUnauthorized, "Incorrect email or password")

	_, err = env.userSvc.Login(ctx, "", "")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Please enter all fields")
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Ann", "ann@example.com")

	err := env.userSvc.ChangePassword(ctx, u.ID, "wrong-old", "newsecret")
	assertAppError(t, err, apperrors.ErrCodeUnauthorized, "Incorrect Old password")

	require.NoError(t, env.userSvc.ChangePassword(ctx, u.ID, "secret123", "newsecret"))
	_, err = env.userSvc.Login(ctx, "ann@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "ann@example.com")
	env.register(t, "Bob", "bob@example.com")

	require.NoError(t, env.userSvc.UpdateProfile(ctx, ann.ID, "Annie", ""))
	got, _ := env.userSvc.GetProfile(ctx, ann.ID)
	assert.Equal(t, "Annie", got.Name)
	assert.Equal(t, "ann@example.com", got.Email)

	err := env.userSvc.UpdateProfile(ctx, ann.ID, "", "bob@example.com")
	assertAppError(t, err, apperrors.ErrCodeConflict, "User already exists")
}

func TestUpdateProfilePicture_ReplacesMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Ann", "ann@example.com")

	err := env.userSvc.UpdateProfilePicture(ctx, u.ID, nil)
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Please upload a file")

	require.NoError(t, env.userSvc.UpdateProfilePicture(ctx, u.ID, upload("new.png")))
	got, _ := env.userSvc.GetProfile(ctx, u.ID)
	assert.NotEqual(t, u.Avatar.PublicID, got.Avatar.PublicID)
	assert.Contains(t, env.media.destroyed, u.Avatar.PublicID)
	assert.Equal(t, 1, env.media.liveCount())
}

func TestDeleteProfile_CascadesAvatarAndSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Ann", "ann@example.com")
	_, err := env.users.Update(ctx, u.ID, func(u *domain.User) error {
		u.Subscription = domain.Subscription{ID: "sub_1", Status: domain.SubscriptionStatusActive}
		return nil
	})
	require.NoError(t, err)
	env.gateway.On("CancelSubscription", mock.Anything, "sub_1").Return(nil)

	require.NoError(t, env.userSvc.DeleteProfile(ctx, u.ID))

	assert.Equal(t, 0, env.media.liveCount())
	env.gateway.AssertExpectations(t)
	_, err = env.userSvc.GetProfile(ctx, u.ID)
	assertAppError(t, err, apperrors.ErrCodeNotFound, "User not found")
}

func resetTokenFromMail(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "/resetpassword/")
	require.GreaterOrEqual(t, idx, 0)
	rest := body[idx+len("/resetpassword/"):]
	end := strings.Index(rest, ".")
	require.Greater(t, end, 0)
	return rest[:end]
}

func TestResetPasswordFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Ann", "ann@example.com")

	err := env.userSvc.ForgotPassword(ctx, "ghost@example.com")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "No user with this email")

	require.NoError(t, env.userSvc.ForgotPassword(ctx, "ann@example.com"))
	mail := env.mailer.last()
	assert.Equal(t, []string{"ann@example.com"}, mail.To)
	assert.Equal(t, "Course Bundler Reset Password", mail.Subject)
	assert.Contains(t, mail.Body, "http://front.test/resetpassword/")

	token := resetTokenFromMail(t, mail.Body)
	stored, _ := env.users.GetByID(ctx, u.ID)
	assert.NotEqual(t, token, stored.ResetPasswordToken, "only the hash is stored")
	assert.Equal(t, hashResetToken(token), stored.ResetPasswordToken)

	err = env.userSvc.ResetPassword(ctx, "not-the-token", "brandnew")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Token is invalid/expired")
	err = env.userSvc.ResetPassword(ctx, "not-the-token", "abc")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Token is invalid/expired")

	err = env.userSvc.ResetPassword(ctx, token, "abc")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Password must be at least 6 characters")

	require.NoError(t, env.userSvc.ResetPassword(ctx, token, "brandnew"))
	_, err = env.userSvc.Login(ctx, "ann@example.com", "brandnew")
	assert.NoError(t, err)

	err = env.userSvc.ResetPassword(ctx, token, "again123")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Token is invalid/expired")
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Ann", "ann@example.com")
	require.NoError(t, env.userSvc.ForgotPassword(ctx, "ann@example.com"))
	token := resetTokenFromMail(t, env.mailer.last().Body)

	later := time.Now().Add(16 * time.Minute)
	utils.Now = func() time.Time { return later }
	t.Cleanup(func() { utils.Now = time.Now })

	err := env.userSvc.ResetPassword(ctx, token, "brandnew")
	assertAppError(t, err, apperrors.ErrCodeInvalidInput, "Token is invalid/expired")
}

func TestForgotPassword_MailFailureIsInternal(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@example.com")
	env.mailer.err = errors.New("smtp down")

	err := env.userSvc.ForgotPassword(context.Background(), "ann@example.com")
	require.Error(t, err)
	assert.False(t, apperrors.IsAppError(err))
}

func TestPlaylist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Ann", "ann@example.com")
	c := env.createCourse(t, "Go", "Programming")

	require.NoError(t, env.userSvc.AddToPlaylist(ctx, u.ID, c.ID))
	err := env.userSvc.AddToPlaylist(ctx, u.ID, c.ID)
	assertAppError(t, err, apperrors.ErrCodeConflict, "Item Already Exists")

	got, _ := env.userSvc.GetProfile(ctx, u.ID)
	require.Len(t, got.Playlist, 1)
	assert.Equal(t, c.Poster.URL, got.Playlist[0].Poster)

	err = env.userSvc.AddToPlaylist(ctx, u.ID, "missing")
	assertAppError(t, err, apperrors.ErrCodeNotFound, "Invalid Course ID")

	for i := 0; i < 2; i++ {
		require.NoError(t, env.userSvc.RemoveFromPlaylist(ctx, u.ID, c.ID))
		got, _ = env.userSvc.GetProfile(ctx, u.ID)
		assert.False(t, got.HasPlaylistCourse(c.ID))
	}
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "Ann", "ann@example.com")

	require.NoError(t, env.userSvc.ToggleRole(ctx, u.ID))
	got, _ := env.userSvc.GetProfile(ctx, u.ID)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	require.NoError(t, env.userSvc.ToggleRole(ctx, u.ID))
	got, _ = env.userSvc.GetProfile(ctx, u.ID)
	assert.Equal(t, domain.RoleUser, got.Role)

	err := env.userSvc.ToggleRole(ctx, "missing")
	assertAppError(t, err, apperrors.ErrCodeNotFound, "User not found")

	users, err := env.userSvc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, env.userSvc.DeleteUser(ctx, u.ID))
	err = env.userSvc.DeleteUser(ctx, u.ID)
	assertAppError(t, err, apperrors.ErrCodeNotFound, "User not found")
}
