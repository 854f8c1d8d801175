package repository_test

import (
	"context"
	"errors"
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

func TestUnitOfWork_RepositoryCachedPerKind(t *testing.T) {
	uow := begin(t, memory.NewDatabase())

	first := uow.Orders()
	second := repository.For(uow, repository.Orders)

	assert.Same(t, first, second)
	assert.NotSame(t, any(uow.Products()), any(uow.Orders()))
}

func TestUnitOfWork_KindsSharingTable(t *testing.T) {
	uow := begin(t, memory.NewDatabase())

	sameType := repository.NewKind[*domain.Order](storage.TableOrders)
	assert.Same(t, uow.Orders(), repository.For(uow, sameType))

	otherType := repository.NewKind[*domain.Product](storage.TableOrders)
	require.NotPanics(t, func() {
		assert.NotNil(t, repository.For(uow, otherType))
	})
	assert.Same(t, uow.Orders(), repository.For(uow, repository.Orders))
}

func TestUnitOfWork_CompleteCommitsAllRepositories(t *testing.T) {
	db := memory.NewDatabase()
	uow := begin(t, db)
	ctx := context.Background()

	require.NoError(t, uow.Products().Add(&domain.Product{Name: "Boots"}))
	require.NoError(t, uow.DeliveryMethods().Add(&domain.DeliveryMethod{ShortName: "UPS1"}))
	require.NoError(t, uow.OutboxMessages().Add(&domain.OutboxMessage{EventID: "e1", Status: domain.OutboxStatusPending, CreatedAt: time.Now()}))

	rows, err := uow.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	reader := begin(t, db)
	products, err := reader.Products().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	pending, err := reader.OutboxMessages().Count(ctx, domain.AllPendingOutboxMessages())
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestUnitOfWork_CloseDiscardsUncommittedChanges(t *testing.T) {
	db := memory.NewDatabase()
	ctx := context.Background()

	uow, err := repository.NewFactory(db).Begin(ctx)
	require.NoError(t, err)
	repo := uow.Products()
	require.NoError(t, repo.Add(&domain.Product{Name: "Boots"}))
	require.NoError(t, uow.Close())
	require.NoError(t, uow.Close())

	_, err = repo.ListAll(ctx)
	assert.True(t, errors.Is(err, storage.ErrSessionClosed))
	_, err = uow.Complete(ctx)
	assert.True(t, errors.Is(err, storage.ErrSessionClosed))

	reader := begin(t, db)
	products, err := reader.Products().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestUnitOfWork_ConcurrentCreatesForSameIntent(t *testing.T) {
	db := memory.NewDatabase()
	ctx := context.Background()

	setup := begin(t, db)
	dm := &domain.DeliveryMethod{ShortName: "UPS1"}
	require.NoError(t, setup.DeliveryMethods().Add(dm))
	_, err := setup.Complete(ctx)
	require.NoError(t, err)

	newOrder := func() *domain.Order {
		return domain.NewOrder(
			[]domain.OrderItem{{Price: decimal.NewFromInt(1), Quantity: 1}},
			"a@x.com", domain.Address{}, dm, decimal.NewFromInt(1), "pi_race", time.Now(),
		)
	}

	a := begin(t, db)
	b := begin(t, db)
	for _, uow := range []*repository.UnitOfWork{a, b} {
		existing, err := uow.Orders().GetBySpec(ctx, domain.OrderByPaymentIntent("pi_race"))
		require.NoError(t, err)
		require.Nil(t, existing)
		require.NoError(t, uow.Orders().Add(newOrder()))
	}

	_, err = a.Complete(ctx)
	require.NoError(t, err)
	_, err = b.Complete(ctx)
	assert.True(t, errors.Is(err, domain.ErrPaymentIntentConflict))

	reader := begin(t, db)
	count, err := reader.Orders().Count(ctx, spec.New[*domain.Order]().Where(domain.OrderFieldPaymentIntentID, "pi_race"))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type countingSession struct {
	storage.Session
	saves int
}

func (s *countingSession) SaveChanges(ctx context.Context) (int, error) {
	s.saves++
	return s.Session.SaveChanges(ctx)
}

func TestFactoryFunc(t *testing.T) {
	db := memory.NewDatabase()
	var session *countingSession

	factory := repository.FactoryFunc(func(ctx context.Context) (*repository.UnitOfWork, error) {
		inner, err := db.NewSession(ctx)
		if err != nil {
			return nil, err
		}
		session = &countingSession{Session: inner}
		return repository.New(session), nil
	})

	uow, err := factory.Begin(context.Background())
	require.NoError(t, err)
	defer uow.Close()

	_, err = uow.Complete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, session.saves)
}
