package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockService — конфигурируемая заглушка PaymentService для тестов и локального запуска.
type MockService struct {
	mu sync.Mutex

	ReconcileErr error
	// ReconcileCalls хранит платёжные намерения в порядке вызовов.
	ReconcileCalls []string
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{}
}

// ReconcilePaymentIntent запоминает вызов и возвращает настроенную ошибку.
func (m *MockService) ReconcilePaymentIntent(_ context.Context, paymentIntentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReconcileCalls = append(m.ReconcileCalls, paymentIntentID)
	return m.ReconcileErr
}

// Calls возвращает копию списка вызовов.
func (m *MockService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.ReconcileCalls...)
}

var _ domain.PaymentService = (*MockService)(nil)
