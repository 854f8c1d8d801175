package repository

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

// Kind — статический токен типа сущности: связывает T с таблицей
// и служит ключом кэша репозиториев. Токены с разными T не совпадают,
// даже если указывают на одну таблицу.
type Kind[T domain.Entity] struct {
	table storage.Table
}

// NewKind объявляет токен.
func NewKind[T domain.Entity](table storage.Table) Kind[T] {
	return Kind[T]{table: table}
}

// Table возвращает таблицу токена.
func (k Kind[T]) Table() storage.Table {
	return k.table
}

var (
	Products        = NewKind[*domain.Product](storage.TableProducts)
	DeliveryMethods = NewKind[*domain.DeliveryMethod](storage.TableDeliveryMethods)
	Orders          = NewKind[*domain.Order](storage.TableOrders)
	OutboxMessages  = NewKind[*domain.OutboxMessage](storage.TableOutboxMessages)
)

// UnitOfWork владеет одной сессией хранения. Все репозитории, полученные
// из неё, пишут в эту сессию, а Complete фиксирует их изменения вместе.
// Экземпляр обслуживает один запрос и не потокобезопасен.
type UnitOfWork struct {
	session storage.Session
	repos   map[any]any
	closed  bool
}

// New оборачивает сессию в единицу работы.
func New(session storage.Session) *UnitOfWork {
	return &UnitOfWork{
		session: session,
		repos:   make(map[any]any),
	}
}

// For возвращает репозиторий для токена. Повторный вызов с тем же токеном
// возвращает тот же экземпляр.
func For[T domain.Entity](u *UnitOfWork, kind Kind[T]) Repository[T] {
	if cached, ok := u.repos[kind].(Repository[T]); ok {
		return cached
	}
	repo := newGenericRepository[T](u.session, kind.table)
	u.repos[kind] = repo
	return repo
}

func (u *UnitOfWork) Products() Repository[*domain.Product] {
	return For(u, Products)
}

func (u *UnitOfWork) DeliveryMethods() Repository[*domain.DeliveryMethod] {
	return For(u, DeliveryMethods)
}

func (u *UnitOfWork) Orders() Repository[*domain.Order] {
	return For(u, Orders)
}

func (u *UnitOfWork) OutboxMessages() Repository[*domain.OutboxMessage] {
	return For(u, OutboxMessages)
}

// Complete атомарно фиксирует все отложенные изменения и возвращает
// число затронутых строк.
func (u *UnitOfWork) Complete(ctx context.Context) (int, error) {
	if u.closed {
		return 0, storage.ErrSessionClosed
	}
	rows, err := u.session.SaveChanges(ctx)
	if err != nil {
		return 0, fmt.Errorf("complete unit of work: %w", err)
	}
	return rows, nil
}

// Close освобождает сессию. После закрытия репозитории этой единицы
// работы непригодны. Повторный вызов безопасен.
func (u *UnitOfWork) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.repos = make(map[any]any)
	return u.session.Close()
}

// Factory открывает новую единицу работы на каждый запрос.
type Factory interface {
	Begin(ctx context.Context) (*UnitOfWork, error)
}

// FactoryFunc позволяет использовать функцию как Factory.
type FactoryFunc func(ctx context.Context) (*UnitOfWork, error)

func (f FactoryFunc) Begin(ctx context.Context) (*UnitOfWork, error) {
	return f(ctx)
}

type sessionFactory struct {
	sessions storage.SessionFactory
}

// NewFactory строит Factory поверх фабрики сессий хранилища.
func NewFactory(sessions storage.SessionFactory) Factory {
	return &sessionFactory{sessions: sessions}
}

func (f *sessionFactory) Begin(ctx context.Context) (*UnitOfWork, error) {
	session, err := f.sessions.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open storage session: %w", err)
	}
	return New(session), nil
}
