package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func openSession(t *testing.T, db *memory.Database) storage.Session {
	t.Helper()

	session, err := db.NewSession(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func seedDeliveryMethod(t *testing.T, db *memory.Database) *domain.DeliveryMethod {
	t.Helper()

	dm := &domain.DeliveryMethod{ShortName: "UPS1", DeliveryTime: "1-2 days", Price: decimal.RequireFromString("10")}
	session := openSession(t, db)
	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableDeliveryMethods, Entity: dm}))
	_, err := session.SaveChanges(context.Background())
	require.NoError(t, err)
	return dm
}

func newOrder(dm *domain.DeliveryMethod, paymentIntentID string, at time.Time) *domain.Order {
	return domain.NewOrder(
		[]domain.OrderItem{
			{ItemOrdered: domain.ProductItemOrdered{ProductItemID: 1, ProductName: "Boots"}, Price: decimal.NewFromInt(10), Quantity: 2},
			{ItemOrdered: domain.ProductItemOrdered{ProductItemID: 2, ProductName: "Hat"}, Price: decimal.NewFromInt(5), Quantity: 1},
		},
		"buyer@example.com",
		domain.Address{FirstName: "Bob", LastName: "Smith", Street: "1 Main", City: "Town", Country: "US", ZipCode: "1"},
		dm,
		decimal.NewFromInt(25),
		paymentIntentID,
		at,
	)
}

func TestSession_InsertAssignsIdentityAfterCommit(t *testing.T) {
	db := memory.NewDatabase()
	dm := seedDeliveryMethod(t, db)
	session := openSession(t, db)

	order := newOrder(dm, "pi_1", time.Now())
	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: order}))
	assert.Zero(t, order.ID, "identity must not be assigned before commit")

	rows, err := session.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rows, "order row plus two item rows")
	assert.NotZero(t, order.ID)
	assert.NotZero(t, order.Items[0].ID)
	assert.NotEqual(t, order.Items[0].ID, order.Items[1].ID)
}

func TestSession_ReadsSeeOnlyCommittedState(t *testing.T) {
	db := memory.NewDatabase()
	session := openSession(t, db)

	require.NoError(t, session.Stage(storage.Change{
		Kind:   storage.ChangeInsert,
		Table:  storage.TableProducts,
		Entity: &domain.Product{Name: "Boots", Price: decimal.NewFromInt(10)},
	}))

	rows, err := session.Find(context.Background(), storage.Query{Table: storage.TableProducts})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = session.SaveChanges(context.Background())
	require.NoError(t, err)

	rows, err = session.Find(context.Background(), storage.Query{Table: storage.TableProducts})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSession_IncludesControlRelations(t *testing.T) {
	db := memory.NewDatabase()
	dm := seedDeliveryMethod(t, db)
	session := openSession(t, db)

	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: newOrder(dm, "pi_1", time.Now())}))
	_, err := session.SaveChanges(context.Background())
	require.NoError(t, err)

	plain, err := session.Find(context.Background(), storage.Query{Table: storage.TableOrders})
	require.NoError(t, err)
	require.Len(t, plain, 1)
	assert.Nil(t, plain[0].(*domain.Order).Items)
	assert.Nil(t, plain[0].(*domain.Order).DeliveryMethod)

	full, err := session.Find(context.Background(), storage.Query{
		Table:   storage.TableOrders,
		Include: []string{domain.OrderIncludeItems, domain.OrderIncludeDeliveryMethod},
	})
	require.NoError(t, err)
	order := full[0].(*domain.Order)
	assert.Len(t, order.Items, 2)
	require.NotNil(t, order.DeliveryMethod)
	assert.Equal(t, "UPS1", order.DeliveryMethod.ShortName)

	_, err = session.Find(context.Background(), storage.Query{Table: storage.TableProducts, Include: []string{"items"}})
	assert.True(t, errors.Is(err, storage.ErrUnknownInclude))
}

func TestSession_FindReturnsIndependentCopies(t *testing.T) {
	db := memory.NewDatabase()
	session := openSession(t, db)

	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableProducts, Entity: &domain.Product{Name: "Boots"}}))
	_, err := session.SaveChanges(context.Background())
	require.NoError(t, err)

	rows, err := session.Find(context.Background(), storage.Query{Table: storage.TableProducts})
	require.NoError(t, err)
	rows[0].(*domain.Product).Name = "mutated"

	rows, err = session.Find(context.Background(), storage.Query{Table: storage.TableProducts})
	require.NoError(t, err)
	assert.Equal(t, "Boots", rows[0].(*domain.Product).Name)
}

func TestSession_FlushIsAllOrNothing(t *testing.T) {
	db := memory.NewDatabase()
	dm := seedDeliveryMethod(t, db)
	session := openSession(t, db)

	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: newOrder(dm, "pi_1", time.Now())}))
	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: newOrder(dm, "pi_1", time.Now())}))

	_, err := session.SaveChanges(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPaymentIntentConflict))

	count, err := session.Count(context.Background(), storage.TableOrders, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSession_DeleteThenInsertSamePaymentIntent(t *testing.T) {
	db := memory.NewDatabase()
	dm := seedDeliveryMethod(t, db)

	first := openSession(t, db)
	old := newOrder(dm, "pi_1", time.Now())
	require.NoError(t, first.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: old}))
	_, err := first.SaveChanges(context.Background())
	require.NoError(t, err)

	second := openSession(t, db)
	found, err := second.Find(context.Background(), storage.Query{
		Table:   storage.TableOrders,
		Where:   []spec.Condition{{Field: domain.OrderFieldPaymentIntentID, Value: "pi_1"}},
		Include: []string{domain.OrderIncludeItems},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, second.Stage(storage.Change{Kind: storage.ChangeDelete, Table: storage.TableOrders, Entity: found[0]}))
	require.NoError(t, second.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: newOrder(dm, "pi_1", time.Now())}))
	rows, err := second.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, rows)

	count, err := second.Count(context.Background(), storage.TableOrders, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSession_StaleDeleteIsConflict(t *testing.T) {
	db := memory.NewDatabase()
	dm := seedDeliveryMethod(t, db)

	setup := openSession(t, db)
	order := newOrder(dm, "pi_1", time.Now())
	require.NoError(t, setup.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: order}))
	_, err := setup.SaveChanges(context.Background())
	require.NoError(t, err)

	a := openSession(t, db)
	b := openSession(t, db)
	require.NoError(t, a.Stage(storage.Change{Kind: storage.ChangeDelete, Table: storage.TableOrders, Entity: order}))
	require.NoError(t, b.Stage(storage.Change{Kind: storage.ChangeDelete, Table: storage.TableOrders, Entity: order}))

	_, err = a.SaveChanges(context.Background())
	require.NoError(t, err)
	_, err = b.SaveChanges(context.Background())
	assert.True(t, errors.Is(err, storage.ErrConcurrencyConflict))
}

func TestSession_UpdateKeepsItems(t *testing.T) {
	db := memory.NewDatabase()
	dm := seedDeliveryMethod(t, db)
	session := openSession(t, db)

	order := newOrder(dm, "pi_1", time.Now())
	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: order}))
	_, err := session.SaveChanges(context.Background())
	require.NoError(t, err)

	loaded, err := session.Find(context.Background(), storage.Query{Table: storage.TableOrders})
	require.NoError(t, err)
	root := loaded[0].(*domain.Order)
	root.Status = domain.OrderStatusPaymentReceived

	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeUpdate, Table: storage.TableOrders, Entity: root}))
	rows, err := session.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	reloaded, err := session.Find(context.Background(), storage.Query{Table: storage.TableOrders, Include: []string{domain.OrderIncludeItems}})
	require.NoError(t, err)
	got := reloaded[0].(*domain.Order)
	assert.Equal(t, domain.OrderStatusPaymentReceived, got.Status)
	assert.Len(t, got.Items, 2)
}

func TestSession_ForeignKeyOnDeliveryMethod(t *testing.T) {
	db := memory.NewDatabase()
	session := openSession(t, db)

	order := newOrder(&domain.DeliveryMethod{ID: 99}, "pi_1", time.Now())
	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableOrders, Entity: order}))
	_, err := session.SaveChanges(context.Background())
	assert.True(t, errors.Is(err, storage.ErrForeignKey))
	assert.Zero(t, order.ID)
}

func TestSession_ClosedSessionRejectsCalls(t *testing.T) {
	db := memory.NewDatabase()
	session, err := db.NewSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	_, err = session.Find(context.Background(), storage.Query{Table: storage.TableProducts})
	assert.True(t, errors.Is(err, storage.ErrSessionClosed))
	assert.True(t, errors.Is(session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableProducts, Entity: &domain.Product{}}), storage.ErrSessionClosed))
	_, err = session.SaveChanges(context.Background())
	assert.True(t, errors.Is(err, storage.ErrSessionClosed))
}

func TestSession_EmptySaveChanges(t *testing.T) {
	session := openSession(t, memory.NewDatabase())

	rows, err := session.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestSession_PresetIdentity(t *testing.T) {
	db := memory.NewDatabase()
	session := openSession(t, db)

	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableProducts, Entity: &domain.Product{ID: 7, Name: "Boots"}}))
	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableProducts, Entity: &domain.Product{Name: "Hat"}}))
	_, err := session.SaveChanges(context.Background())
	require.NoError(t, err)

	rows, err := session.Find(context.Background(), storage.Query{Table: storage.TableProducts})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(7), rows[0].GetID())
	assert.Equal(t, int64(8), rows[1].GetID())

	require.NoError(t, session.Stage(storage.Change{Kind: storage.ChangeInsert, Table: storage.TableProducts, Entity: &domain.Product{ID: 7}}))
	_, err = session.SaveChanges(context.Background())
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}
