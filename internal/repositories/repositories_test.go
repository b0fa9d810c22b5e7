package repositories

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mythmanga/internal/cache"
	"mythmanga/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{},
		&models.Product{},
		&models.User{},
		&models.Coupon{},
		&models.SiteSettings{},
	))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestCache(t *testing.T) (*cache.RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter, mr
}

func strPtr(s string) *string { return &s }

func sampleOrder(id string, createdAt time.Time) *models.Order {
	return &models.Order{
		ID: id,
		Items: []models.OrderItem{
			{ProductID: "p1", Name: "Gojo Figure", Price: decimal.RequireFromString("1299.50"), Quantity: 1},
		},
		TotalAmount:   decimal.RequireFromString("1299.50"),
		Status:        models.OrderStatusProcessing,
		PaymentStatus: models.PaymentStatusPaid,
		PaymentMethod: string(models.PaymentMethodHostedGateway),
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		ShippingCity:  "Pune",
		CreatedAt:     createdAt,
	}
}

func TestOrderRepositories_ListByOwner(t *testing.T) {
	owner := uuid.NewString()
	repos := map[string]func(t *testing.T) OrderRepository{
		"Mock": func(*testing.T) OrderRepository { return NewMockOrderRepository() },
		"GORM": func(t *testing.T) OrderRepository { return NewGORMOrderRepository(newTestDB(t)) },
	}

	for name, build := range repos {
		t.Run(name, func(t *testing.T) {
			repo := build(t)
			ctx := context.Background()
			base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

			older := sampleOrder("ORD-1", base)
			older.UserID = strPtr(owner)
			older.UserIdentifier = strPtr(owner)
			newer := sampleOrder("ORD-2", base.Add(time.Hour))
			newer.UserID = strPtr(owner)
			newer.UserIdentifier = strPtr(owner)
			other := sampleOrder("ORD-3", base)
			other.UserIdentifier = strPtr("guest@example.com")

			for _, o := range []*models.Order{older, newer, other} {
				require.NoError(t, repo.Create(ctx, o))
			}

			orders, err := repo.ListByOwner(ctx, OwnerColumnUserID, owner)
			require.NoError(t, err)
			require.Len(t, orders, 2)
			assert.Equal(t, "ORD-2", orders[0].ID)
			assert.Equal(t, "ORD-1", orders[1].ID)

			orders, err = repo.ListByOwner(ctx, OwnerColumnUserIdentifier, "guest@example.com")
			require.NoError(t, err)
			require.Len(t, orders, 1)
			assert.Equal(t, "ORD-3", orders[0].ID)
			assert.Nil(t, orders[0].UserID)

			_, err = repo.ListByOwner(ctx, OwnerColumnUserID, "guest@example.com")
			assert.ErrorIs(t, err, ErrIdentityMismatch)

			_, err = repo.ListByOwner(ctx, OwnerColumn("email"), "x")
			assert.ErrorIs(t, err, ErrUnknownOwnerColumn)
		})
	}
}

func TestGORMOrderRepository_CreateAndGet(t *testing.T) {
	repo := NewGORMOrderRepository(newTestDB(t))
	ctx := context.Background()

	order := sampleOrder("ORD-01HX", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.GetByID(ctx, "ORD-01HX")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.CustomerName)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Gojo Figure", got.Items[0].Name)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("1299.5")))

	assert.Error(t, repo.Create(ctx, sampleOrder("ORD-01HX", time.Now())), "duplicate IDs are rejected")

	_, err = repo.GetByID(ctx, "ORD-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepositories_PaymentIDIsUnique(t *testing.T) {
	repos := map[string]func(t *testing.T) OrderRepository{
		"Mock": func(*testing.T) OrderRepository { return NewMockOrderRepository() },
		"GORM": func(t *testing.T) OrderRepository { return NewGORMOrderRepository(newTestDB(t)) },
	}

	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()

			first := sampleOrder("ORD-A", time.Now().UTC())
			first.PaymentID = "pay_shared"
			require.NoError(t, repo.Create(ctx, first))

			got, err := repo.GetByPaymentID(ctx, "pay_shared")
			require.NoError(t, err)
			assert.Equal(t, "ORD-A", got.ID)

			second := sampleOrder("ORD-B", time.Now().UTC())
			second.PaymentID = "pay_shared"
			assert.Error(t, repo.Create(ctx, second), "one payment settles one order")

			// COD orders carry no payment id and never collide.
			require.NoError(t, repo.Create(ctx, sampleOrder("ORD-C", time.Now().UTC())))
			require.NoError(t, repo.Create(ctx, sampleOrder("ORD-D", time.Now().UTC())))

			_, err = repo.GetByPaymentID(ctx, "pay_unknown")
			assert.ErrorIs(t, err, ErrOrderNotFound)
		})
	}
}

func TestMockOrderRepository_Create(t *testing.T) {
	repo := NewMockOrderRepository()
	ctx := context.Background()

	assert.Error(t, repo.Create(ctx, &models.Order{}))
	require.NoError(t, repo.Create(ctx, sampleOrder("ORD-1", time.Time{})))
	assert.Error(t, repo.Create(ctx, sampleOrder("ORD-1", time.Time{})))
	assert.Equal(t, 1, repo.Len())

	got, err := repo.GetByID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestProductRepositories(t *testing.T) {
	repos := map[string]func(t *testing.T) ProductRepository{
		"Mock": func(*testing.T) ProductRepository { return NewMockProductRepository() },
		"GORM": func(t *testing.T) ProductRepository { return NewGORMProductRepository(newTestDB(t)) },
	}

	for name, build := range repos {
		t.Run(name, func(t *testing.T) {
			repo := build(t)
			ctx := context.Background()

			require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "p1", Name: "Naruto Hoodie", Category: "apparel", Price: decimal.NewFromInt(1499), Stock: 5}))
			require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "p2", Name: "Akatsuki Ring", Category: "accessories", Price: decimal.NewFromInt(299), Stock: 10}))
			require.NoError(t, repo.Upsert(ctx, &models.Product{ID: "p1", Name: "Naruto Hoodie", Category: "apparel", Price: decimal.NewFromInt(1299), Stock: 4}))

			all, err := repo.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "Akatsuki Ring", all[0].Name)

			apparel, err := repo.List(ctx, "apparel")
			require.NoError(t, err)
			require.Len(t, apparel, 1)

			p, err := repo.GetByID(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, 4, p.Stock)
			assert.True(t, p.Price.Equal(decimal.NewFromInt(1299)))

			_, err = repo.GetByID(ctx, "nope")
			assert.ErrorIs(t, err, ErrProductNotFound)
		})
	}
}

func TestGORMUserRepository(t *testing.T) {
	repo := NewGORMUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &models.User{Username: "otaku", Email: "otaku@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	_, err := uuid.Parse(user.ID)
	assert.NoError(t, err)

	byName, err := repo.GetByUsername(ctx, "otaku")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.GetByEmail(ctx, "otaku@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGORMCouponRepository(t *testing.T) {
	repo := NewGORMCouponRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Coupon{Code: "anime10", Kind: models.CouponKindPercent, Value: decimal.NewFromInt(10), Active: true}))

	coupon, err := repo.GetByCode(ctx, " Anime10 ")
	require.NoError(t, err)
	assert.Equal(t, "ANIME10", coupon.Code)
	assert.True(t, coupon.Active)

	_, err = repo.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestGORMSettingsRepository(t *testing.T) {
	repo := NewGORMSettingsRepository(newTestDB(t))
	ctx := context.Background()

	settings, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, settings.CODEnabled)
	assert.True(t, settings.FreeShippingThreshold.Equal(decimal.NewFromInt(999)))

	settings.CODEnabled = false
	settings.ShippingCharge = decimal.NewFromInt(79)
	require.NoError(t, repo.Save(ctx, settings))

	settings, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, settings.CODEnabled)
	assert.True(t, settings.HostedGatewayEnabled)
	assert.True(t, settings.ShippingCharge.Equal(decimal.NewFromInt(79)))
}

func TestRedisCartStore(t *testing.T) {
	c, _ := newTestCache(t)
	store := NewRedisCartStore(c)
	ctx := context.Background()

	cart, err := store.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "client-1", cart.ClientID)

	cart.Items = append(cart.Items, models.CartItem{ProductID: "p1", Name: "Poster", Price: decimal.NewFromInt(199), Quantity: 2})
	require.NoError(t, store.Save(ctx, cart))

	cart, err = store.Get(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Subtotal().Equal(decimal.NewFromInt(398)))

	require.NoError(t, store.Clear(ctx, "client-1"))
	cart, err = store.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestRedisAttemptStore(t *testing.T) {
	c, mr := newTestCache(t)
	store := NewRedisAttemptStore(c)
	ctx := context.Background()

	attempt := &models.CheckoutAttempt{ID: "att-1", OrderID: "ORD-1", State: models.StateAwaitingGatewayCallback}
	require.NoError(t, store.Save(ctx, attempt, time.Minute))

	got, err := store.Get(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingGatewayCallback, got.State)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "att-1")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestRedisAttemptStore_SaveIf(t *testing.T) {
	c, _ := newTestCache(t)
	store := NewRedisAttemptStore(c)
	ctx := context.Background()

	missing := &models.CheckoutAttempt{ID: "att-missing", State: models.StateVerifying}
	assert.ErrorIs(t, store.SaveIf(ctx, missing, models.StateAwaitingGatewayCallback, time.Minute), ErrAttemptNotFound)

	attempt := &models.CheckoutAttempt{ID: "att-1", OrderID: "ORD-1", State: models.StateAwaitingGatewayCallback}
	require.NoError(t, store.Save(ctx, attempt, time.Minute))

	const callbacks = 8
	var (
		wg      sync.WaitGroup
		won     atomic.Int32
		changed atomic.Int32
	)
	for i := 0; i < callbacks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claim := *attempt
			claim.State = models.StateVerifying
			err := store.SaveIf(ctx, &claim, models.StateAwaitingGatewayCallback, time.Minute)
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, ErrAttemptStateChanged):
				changed.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, won.Load(), "exactly one callback moves the attempt on")
	assert.EqualValues(t, callbacks-1, changed.Load())

	got, err := store.Get(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateVerifying, got.State)
}

func TestRedisLocalOrderStore(t *testing.T) {
	c, mr := newTestCache(t)
	store := NewRedisLocalOrderStore(c, 0)
	ctx := context.Background()

	first := models.NewLocalOrder(*sampleOrder("ORD-1", time.Now().UTC()))
	second := models.NewLocalOrder(*sampleOrder("ORD-2", time.Now().UTC()))
	require.NoError(t, store.Append(ctx, "client-1", first))
	require.NoError(t, store.Append(ctx, "client-1", second))
	_, err := mr.Lpush(localOrdersKeyPrefix+"client-1", "{not json")
	require.NoError(t, err)

	orders, err := store.List(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-1", orders[0].ID)
	assert.Equal(t, "ORD-2", orders[1].ID)
	assert.Equal(t, "Pune", orders[0].ShippingAddress.City)

	empty, err := store.List(ctx, "client-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
