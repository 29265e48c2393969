package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type fakeMedia struct {
	mu        sync.Mutex
	seq       int
	live      map[string]domain.MediaKind
	destroyed []string
	uploadErr error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{live: make(map[string]domain.MediaKind)}
}

func (m *fakeMedia) Upload(ctx context.Context, kind domain.MediaKind, file *domain.Upload) (domain.MediaRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return domain.MediaRef{}, m.uploadErr
	}
	m.seq++
	id := fmt.Sprintf("%s/%d_%s", kind, m.seq, file.Filename)
	m.live[id] = kind
	return domain.MediaRef{PublicID: id, URL: "https://media.test/" + id}, nil
}

func (m *fakeMedia) Destroy(ctx context.Context, kind domain.MediaKind, ref domain.MediaRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, ref.PublicID)
	m.destroyed = append(m.destroyed, ref.PublicID)
	return nil
}

func (m *fakeMedia) liveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []domain.Mail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, mail domain.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *fakeMailer) last() domain.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) PublicKey() string {
	return m.Called().String(0)
}

func (m *MockPaymentGateway) CreateSubscription(ctx context.Context, user *domain.User) (*domain.GatewaySubscription, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewaySubscription), args.Error(1)
}

func (m *MockPaymentGateway) GetSubscription(ctx context.Context, id string) (*domain.GatewaySubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewaySubscription), args.Error(1)
}

func (m *MockPaymentGateway) CancelSubscription(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPaymentGateway) Refund(ctx context.Context, paymentRef string) error {
	return m.Called(ctx, paymentRef).Error(0)
}

func (m *MockPaymentGateway) ParseWebhook(payload []byte, signature string) (*domain.GatewayEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewayEvent), args.Error(1)
}

func upload(name string) *domain.Upload {
	return &domain.Upload{Filename: name, ContentType: "image/png", Size: 4, Body: strings.NewReader("data")}
}

type testEnv struct {
	users     ports.UserRepository
	courses   ports.CourseRepository
	stats     ports.StatsRepository
	payments  ports.PaymentRepository
	media     *fakeMedia
	mailer    *fakeMailer
	publisher *recordingPublisher
	gateway   *MockPaymentGateway

	userSvc    ports.UserService
	courseSvc  ports.CourseService
	paymentSvc ports.PaymentService
	statsSvc   ports.StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:     memory.NewMemoryUserRepository(),
		courses:   memory.NewMemoryCourseRepository(),
		stats:     memory.NewMemoryStatsRepository(),
		payments:  memory.NewMemoryPaymentRepository(),
		media:     newFakeMedia(),
		mailer:    &fakeMailer{},
		publisher: &recordingPublisher{},
		gateway:   &MockPaymentGateway{},
	}
	hasher := NewBcryptHasher(bcrypt.MinCost)
	env.userSvc = NewUserService(env.users, env.courses, env.media, env.mailer, hasher, env.gateway, env.publisher, nil,
		UserServiceConfig{FrontendURL: "http://front.test", ResetTokenTTL: 15 * time.Minute}, nil)
	env.courseSvc = NewCourseService(env.courses, env.media, env.publisher, nil, "test", nil)
	env.paymentSvc = NewPaymentService(env.users, env.payments, env.gateway, env.publisher, nil, 7, "test", nil)
	env.statsSvc = NewStatsService(env.users, env.courses, env.stats, nil, 12, nil)
	return env
}

func (env *testEnv) register(t *testing.T, name, email string) *domain.User {
	t.Helper()
	u, err := env.userSvc.Register(context.Background(), ports.RegisterInput{
		Name: name, Email: email, Password: "secret123", Avatar: upload("avatar.png"),
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func (env *testEnv) createCourse(t *testing.T, title, category string) *domain.Course {
	t.Helper()
	c, err := env.courseSvc.Create(context.Background(), ports.CreateCourseInput{
		Title: title, Description: "desc", Category: category, CreatedBy: "Admin", Poster: upload("poster.png"),
	})
	if err != nil {
		t.Fatalf("create course %s: %v", title, err)
	}
	return c
}
