package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mythmanga/internal/cache"
	"mythmanga/internal/gateway"
	"mythmanga/internal/models"
	"mythmanga/internal/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, category string) ([]models.Product, error) {
	args := m.Called(category)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Upsert(ctx context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

// MockCouponRepository is a mock implementation of repositories.CouponRepository
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *MockCouponRepository) Upsert(ctx context.Context, coupon *models.Coupon) error {
	args := m.Called(coupon)
	return args.Error(0)
}

// MockGateway is a mock implementation of services.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CheckOrderConfig() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest, idempotencyKey string) (*models.GatewayOrder, error) {
	args := m.Called(req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GatewayOrder), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, req gateway.VerifyRequest) (*gateway.VerifyResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.VerifyResponse), args.Error(1)
}

// MockNotifier is a mock implementation of services.OrderNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderReceived(ctx context.Context, order models.Order) {
	m.Called(order)
}

// failingOrderRepository rejects every insert.
type failingOrderRepository struct {
	repositories.OrderRepository
}

func (failingOrderRepository) Create(context.Context, *models.Order) error {
	return errors.New("insert failed: relation \"orders\" does not exist")
}

func (failingOrderRepository) GetByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	return nil, repositories.ErrOrderNotFound
}

// brokenOrderRepository fails every read and insert.
type brokenOrderRepository struct {
	failingOrderRepository
}

func (brokenOrderRepository) ListByOwner(context.Context, repositories.OwnerColumn, string) ([]models.Order, error) {
	return nil, errors.New("connection refused")
}

func (brokenOrderRepository) GetByID(context.Context, string) (*models.Order, error) {
	return nil, errors.New("connection refused")
}

func (brokenOrderRepository) GetByPaymentID(context.Context, string) (*models.Order, error) {
	return nil, errors.New("connection refused")
}

func newTestCache(t *testing.T) (cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter, mr
}

func fixedClock() func() time.Time {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var tick time.Duration
	return func() time.Time {
		tick += time.Second
		return base.Add(tick)
	}
}
