package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// basketStoreInMemory — хранилище корзин для локального запуска и тестов.
type basketStoreInMemory struct {
	mu      sync.RWMutex
	baskets map[string]domain.CustomerBasket
}

var _ domain.BasketStore = (*basketStoreInMemory)(nil)

// NewBasketStore возвращает in-memory хранилище корзин.
func NewBasketStore() domain.BasketStore {
	return &basketStoreInMemory{baskets: make(map[string]domain.CustomerBasket)}
}

// GetBasket возвращает копию корзины или nil, если её нет.
func (s *basketStoreInMemory) GetBasket(_ context.Context, id string) (*domain.CustomerBasket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	basket, ok := s.baskets[id]
	if !ok {
		return nil, nil
	}
	return copyBasket(basket), nil
}

// UpdateBasket сохраняет корзину целиком.
func (s *basketStoreInMemory) UpdateBasket(_ context.Context, basket *domain.CustomerBasket) (*domain.CustomerBasket, error) {
	if basket == nil || basket.ID == "" {
		return nil, errors.New("basket id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.baskets[basket.ID] = *copyBasket(*basket)
	return copyBasket(*basket), nil
}

func (s *basketStoreInMemory) DeleteBasket(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.baskets, id)
	return nil
}

func copyBasket(b domain.CustomerBasket) *domain.CustomerBasket {
	b.Items = append([]domain.BasketItem(nil), b.Items...)
	return &b
}
