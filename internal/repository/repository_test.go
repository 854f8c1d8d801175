package repository_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/repository"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func begin(t *testing.T, db *memory.Database) *repository.UnitOfWork {
	t.Helper()

	uow, err := repository.NewFactory(db).Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = uow.Close() })
	return uow
}

func seedOrders(t *testing.T, db *memory.Database, buyer string, dates ...time.Time) []*domain.Order {
	t.Helper()

	uow := begin(t, db)
	dm := &domain.DeliveryMethod{ShortName: "UPS1", Price: decimal.NewFromInt(5)}
	require.NoError(t, uow.DeliveryMethods().Add(dm))
	_, err := uow.Complete(context.Background())
	require.NoError(t, err)

	orders := make([]*domain.Order, 0, len(dates))
	for i, at := range dates {
		order := domain.NewOrder(
			[]domain.OrderItem{{ItemOrdered: domain.ProductItemOrdered{ProductItemID: 1}, Price: decimal.NewFromInt(3), Quantity: 1}},
			buyer,
			domain.Address{},
			dm,
			decimal.NewFromInt(3),
			buyer+"-pi-"+string(rune('a'+i)),
			at,
		)
		require.NoError(t, uow.Orders().Add(order))
		orders = append(orders, order)
	}
	_, err = uow.Complete(context.Background())
	require.NoError(t, err)
	return orders
}

func TestRepository_GetByIDAbsentReturnsNil(t *testing.T) {
	uow := begin(t, memory.NewDatabase())

	product, err := uow.Products().GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestRepository_AddGetByIDListAll(t *testing.T) {
	db := memory.NewDatabase()
	uow := begin(t, db)
	ctx := context.Background()

	boots := &domain.Product{Name: "Boots", Price: decimal.RequireFromString("49.90")}
	hat := &domain.Product{Name: "Hat", Price: decimal.RequireFromString("15")}
	require.NoError(t, uow.Products().Add(boots))
	require.NoError(t, uow.Products().Add(hat))

	rows, err := uow.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	got, err := uow.Products().GetByID(ctx, boots.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Boots", got.Name)

	all, err := uow.Products().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepository_ListOrderedAndPaged(t *testing.T) {
	db := memory.NewDatabase()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	seeded := seedOrders(t, db, "a@x.com", base, base.Add(48*time.Hour), base.Add(24*time.Hour))
	seedOrders(t, db, "other@x.com", base.Add(72*time.Hour))

	uow := begin(t, db)
	s := domain.OrdersWithItemsForBuyer("a@x.com").Page(1, 1)

	page, err := uow.Orders().List(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, seeded[2].ID, page[0].ID, "second most recent order")
	assert.Len(t, page[0].Items, 1)
	require.NotNil(t, page[0].DeliveryMethod)

	count, err := uow.Orders().Count(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "count ignores paging")
}

func TestRepository_ListUnboundedTake(t *testing.T) {
	db := memory.NewDatabase()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	seedOrders(t, db, "a@x.com", base, base.Add(24*time.Hour), base.Add(48*time.Hour))

	uow := begin(t, db)
	page, err := uow.Orders().List(context.Background(), domain.OrdersWithItemsForBuyer("a@x.com").Page(1, math.MaxInt))
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestRepository_EmptySpecReturnsAll(t *testing.T) {
	db := memory.NewDatabase()
	base := time.Now()
	seedOrders(t, db, "a@x.com", base, base)

	uow := begin(t, db)
	orders, err := uow.Orders().List(context.Background(), spec.New[*domain.Order]())
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Nil(t, orders[0].Items, "items are not loaded without include")
}

func TestRepository_GetBySpecFirstMatch(t *testing.T) {
	db := memory.NewDatabase()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	seeded := seedOrders(t, db, "a@x.com", base, base.Add(time.Hour))

	uow := begin(t, db)
	latest, err := uow.Orders().GetBySpec(context.Background(), domain.OrdersWithItemsForBuyer("a@x.com"))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, seeded[1].ID, latest.ID)

	none, err := uow.Orders().GetBySpec(context.Background(), domain.OrderByPaymentIntent("missing"))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRepository_UpdateWithoutIdentityFailsFast(t *testing.T) {
	uow := begin(t, memory.NewDatabase())

	err := uow.Products().Update(&domain.Product{Name: "ghost"})
	assert.True(t, errors.Is(err, storage.ErrNoIdentity))

	err = uow.Products().Delete(&domain.Product{Name: "ghost"})
	assert.True(t, errors.Is(err, storage.ErrNoIdentity))

	rows, err := uow.Complete(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rows, "nothing must be staged")
}

func TestRepository_UnknownFieldSurfacesAsError(t *testing.T) {
	uow := begin(t, memory.NewDatabase())
	require.NoError(t, uow.Products().Add(&domain.Product{Name: "Boots"}))
	_, err := uow.Complete(context.Background())
	require.NoError(t, err)

	_, err = uow.Products().List(context.Background(), spec.New[*domain.Product]().Where("colour", "red"))
	assert.True(t, errors.Is(err, storage.ErrUnknownField))
}
