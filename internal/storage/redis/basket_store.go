// Package redis хранит корзины покупателей в Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultBasketTTL — срок жизни корзины без обращений.
const DefaultBasketTTL = 30 * 24 * time.Hour

// BasketStore хранит корзину JSON-документом под ключом basket:<id>.
type BasketStore struct {
	client *goredis.Client
	ttl    time.Duration
}

var _ domain.BasketStore = (*BasketStore)(nil)

// NewBasketStore создаёт хранилище корзин. ttl <= 0 заменяется на DefaultBasketTTL.
func NewBasketStore(client *goredis.Client, ttl time.Duration) *BasketStore {
	if ttl <= 0 {
		ttl = DefaultBasketTTL
	}
	return &BasketStore{client: client, ttl: ttl}
}

// GetBasket возвращает корзину или nil, если ключа нет.
func (s *BasketStore) GetBasket(ctx context.Context, id string) (*domain.CustomerBasket, error) {
	data, err := s.client.Get(ctx, basketKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get basket %s: %w", id, err)
	}

	var basket domain.CustomerBasket
	if err := json.Unmarshal(data, &basket); err != nil {
		return nil, fmt.Errorf("unmarshal basket %s: %w", id, err)
	}
	return &basket, nil
}

// UpdateBasket перезаписывает корзину и продлевает её TTL.
func (s *BasketStore) UpdateBasket(ctx context.Context, basket *domain.CustomerBasket) (*domain.CustomerBasket, error) {
	if basket == nil || basket.ID == "" {
		return nil, errors.New("basket id is required")
	}

	data, err := json.Marshal(basket)
	if err != nil {
		return nil, fmt.Errorf("marshal basket %s: %w", basket.ID, err)
	}
	if err := s.client.Set(ctx, basketKey(basket.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis set basket %s: %w", basket.ID, err)
	}
	return s.GetBasket(ctx, basket.ID)
}

// DeleteBasket удаляет корзину. Отсутствие ключа ошибкой не считается.
func (s *BasketStore) DeleteBasket(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, basketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete basket %s: %w", id, err)
	}
	return nil
}

// Ping проверяет доступность Redis для readiness.
func (s *BasketStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func basketKey(id string) string {
	return "basket:" + id
}
