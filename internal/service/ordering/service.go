// Package ordering превращает корзину покупателя в сохранённый заказ
// и обслуживает чтение заказов.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/repository"
)

// Service — сервис оформления и чтения заказов.
// Каждый вызов работает в своей единице работы.
type Service struct {
	uows     repository.Factory
	baskets  domain.BasketStore
	payments domain.PaymentService
	validate *validator.Validate
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics включает метрики оформления.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис заказов.
func NewService(uows repository.Factory, baskets domain.BasketStore, payments domain.PaymentService, opts ...Option) *Service {
	s := &Service{
		uows:     uows,
		baskets:  baskets,
		payments: payments,
		validate: newValidator(),
		logger:   log.WithField("component", "ordering"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder оформляет заказ из корзины. Если для платёжного намерения
// корзины уже есть заказ, он заменяется новым в той же фиксации.
// При фиксации без затронутых строк возвращается nil и ErrOrderNotPersisted.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCheckoutDuration(s.now().Sub(start))
		}
	}()

	in = in.normalize()
	logger := s.logger.WithFields(log.Fields{
		"basket_id":          in.BasketID,
		"buyer_email":        in.BuyerEmail,
		"delivery_method_id": in.DeliveryMethodID,
	})

	order, err := s.createOrder(ctx, in, logger)
	if err != nil {
		s.recordFailure(err)
		logger.WithError(err).Warn("checkout failed")
		return nil, err
	}
	return order, nil
}

func (s *Service) createOrder(ctx context.Context, in CreateOrderInput, logger *log.Entry) (*domain.Order, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}

	basket, err := s.baskets.GetBasket(ctx, in.BasketID)
	if err != nil {
		return nil, fmt.Errorf("get basket %s: %w", in.BasketID, err)
	}
	if basket == nil {
		return nil, fmt.Errorf("basket %s: %w", in.BasketID, domain.ErrBasketNotFound)
	}
	if len(basket.Items) == 0 {
		return nil, fmt.Errorf("basket %s: %w", in.BasketID, domain.ErrBasketEmpty)
	}
	if basket.PaymentIntentID == "" {
		return nil, fmt.Errorf("basket %s: %w", in.BasketID, domain.ErrPaymentIntentRequired)
	}
	logger = logger.WithField("payment_intent_id", basket.PaymentIntentID)

	uow, err := s.uows.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		if cerr := uow.Close(); cerr != nil {
			logger.WithError(cerr).Warn("close unit of work failed")
		}
	}()

	items, err := s.snapshotItems(ctx, uow, basket)
	if err != nil {
		return nil, err
	}

	deliveryMethod, err := uow.DeliveryMethods().GetByID(ctx, in.DeliveryMethodID)
	if err != nil {
		return nil, fmt.Errorf("get delivery method %d: %w", in.DeliveryMethodID, err)
	}
	if deliveryMethod == nil {
		return nil, fmt.Errorf("delivery method %d: %w", in.DeliveryMethodID, domain.ErrDeliveryMethodNotFound)
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	now := s.now()
	superseded, err := s.supersedeExisting(ctx, uow, basket.PaymentIntentID, now)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(items, in.BuyerEmail, in.ShipTo, deliveryMethod, subtotal, basket.PaymentIntentID, now)
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCheckout, errors.Join(errs...))
	}
	if err := uow.Orders().Add(order); err != nil {
		return nil, err
	}
	if err := s.stageEvent(uow, domain.EventTypeOrderCreated, order, now); err != nil {
		return nil, err
	}

	rows, err := uow.Complete(ctx)
	if err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	if rows <= 0 {
		return nil, domain.ErrOrderNotPersisted
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated(rows)
		if superseded != nil {
			s.metrics.RecordOrderSuperseded()
		}
	}
	entry := logger.WithFields(log.Fields{
		"order_id": order.ID,
		"subtotal": order.Subtotal.String(),
		"items":    len(order.Items),
		"rows":     rows,
	})
	if superseded != nil {
		entry = entry.WithField("superseded_order_id", superseded.ID)
	}
	entry.Info("order created")

	return order, nil
}

// snapshotItems фиксирует в позициях заказа текущие данные каталога.
// Цена берётся из каталога, количество из корзины.
func (s *Service) snapshotItems(ctx context.Context, uow *repository.UnitOfWork, basket *domain.CustomerBasket) ([]domain.OrderItem, error) {
	products := uow.Products()
	items := make([]domain.OrderItem, 0, len(basket.Items))
	for _, line := range basket.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", domain.ErrInvalidCheckout, line.ProductID, line.Quantity)
		}

		product, err := products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product %d: %w", line.ProductID, err)
		}
		if product == nil {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, domain.ErrStaleBasketReference)
		}

		items = append(items, domain.OrderItem{
			ItemOrdered: domain.ProductItemOrdered{
				ProductItemID: product.ID,
				ProductName:   product.Name,
				PictureURL:    product.PictureURL,
			},
			Price:    product.Price,
			Quantity: line.Quantity,
		})
	}
	return items, nil
}

// supersedeExisting удаляет заказ, ранее оформленный на то же платёжное
// намерение, и просит провайдера сверить намерение. Возвращает удалённый заказ или nil.
func (s *Service) supersedeExisting(ctx context.Context, uow *repository.UnitOfWork, paymentIntentID string, now time.Time) (*domain.Order, error) {
	existing, err := uow.Orders().GetBySpec(ctx, domain.OrderByPaymentIntent(paymentIntentID))
	if err != nil {
		return nil, fmt.Errorf("find order by payment intent: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	if err := uow.Orders().Delete(existing); err != nil {
		return nil, err
	}
	if err := s.stageEvent(uow, domain.EventTypeOrderSuperseded, existing, now); err != nil {
		return nil, err
	}
	if err := s.payments.ReconcilePaymentIntent(ctx, paymentIntentID); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPaymentReconcile, err)
	}

	s.logger.WithFields(log.Fields{
		"order_id":          existing.ID,
		"payment_intent_id": paymentIntentID,
	}).Info("existing order superseded")
	return existing, nil
}

func (s *Service) stageEvent(uow *repository.UnitOfWork, eventType string, order *domain.Order, now time.Time) error {
	msg, err := newOrderEvent(eventType, order, now)
	if err != nil {
		return err
	}
	return uow.OutboxMessages().Add(msg)
}

// GetOrderByID возвращает заказ с позициями и способом доставки.
// Заказ другого покупателя не возвращается: результат nil без ошибки.
func (s *Service) GetOrderByID(ctx context.Context, id int64, buyerEmail string) (*domain.Order, error) {
	uow, err := s.uows.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Close()

	order, err := uow.Orders().GetBySpec(ctx, domain.OrderWithItemsForBuyer(id, normalizeEmail(buyerEmail)))
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return order, nil
}

// GetOrdersForBuyer возвращает заказы покупателя, новые первыми.
func (s *Service) GetOrdersForBuyer(ctx context.Context, buyerEmail string) ([]*domain.Order, error) {
	uow, err := s.uows.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Close()

	orders, err := uow.Orders().List(ctx, domain.OrdersWithItemsForBuyer(normalizeEmail(buyerEmail)))
	if err != nil {
		return nil, fmt.Errorf("list orders for buyer: %w", err)
	}
	return orders, nil
}

// ListDeliveryMethods возвращает все способы доставки.
func (s *Service) ListDeliveryMethods(ctx context.Context) ([]*domain.DeliveryMethod, error) {
	uow, err := s.uows.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Close()

	methods, err := uow.DeliveryMethods().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list delivery methods: %w", err)
	}
	return methods, nil
}

// UpdatePaymentStatus применяет результат оплаты к заказу платёжного намерения.
// Если заказа нет, возвращается nil без ошибки. Повтор того же статуса ничего не меняет.
func (s *Service) UpdatePaymentStatus(ctx context.Context, paymentIntentID string, status domain.OrderStatus) (*domain.Order, error) {
	var eventType string
	switch status {
	case domain.OrderStatusPaymentReceived:
		eventType = domain.EventTypeOrderPaymentReceived
	case domain.OrderStatusPaymentFailed:
		eventType = domain.EventTypeOrderPaymentFailed
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOrderStatus, status)
	}
	if paymentIntentID == "" {
		return nil, domain.ErrPaymentIntentRequired
	}

	logger := s.logger.WithFields(log.Fields{
		"payment_intent_id": paymentIntentID,
		"status":            status,
	})

	uow, err := s.uows.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Close()

	order, err := uow.Orders().GetBySpec(ctx, domain.OrderByPaymentIntent(paymentIntentID))
	if err != nil {
		return nil, fmt.Errorf("find order by payment intent: %w", err)
	}
	if order == nil {
		logger.Warn("payment update for unknown order ignored")
		return nil, nil
	}
	if order.Status == status {
		logger.WithField("order_id", order.ID).Debug("payment status already applied")
		return order, nil
	}

	order.Status = status
	if err := uow.Orders().Update(order); err != nil {
		return nil, err
	}
	if err := s.stageEvent(uow, eventType, order, s.now()); err != nil {
		return nil, err
	}

	rows, err := uow.Complete(ctx)
	if err != nil {
		return nil, fmt.Errorf("commit payment status: %w", err)
	}
	if rows <= 0 {
		return nil, domain.ErrOrderNotPersisted
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentUpdate(string(status))
	}
	logger.WithField("order_id", order.ID).Info("order payment status updated")
	return order, nil
}

func (s *Service) recordFailure(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCheckoutFailure(failureReason(err))
}

// failureReason сопоставляет ошибку оформления с меткой метрики.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCheckout):
		return metrics.ReasonInvalidInput
	case errors.Is(err, domain.ErrBasketNotFound):
		return metrics.ReasonBasketNotFound
	case errors.Is(err, domain.ErrBasketEmpty):
		return metrics.ReasonBasketEmpty
	case errors.Is(err, domain.ErrPaymentIntentRequired):
		return metrics.ReasonIntentMissing
	case errors.Is(err, domain.ErrStaleBasketReference):
		return metrics.ReasonStaleReference
	case errors.Is(err, domain.ErrDeliveryMethodNotFound):
		return metrics.ReasonDeliveryMethod
	case errors.Is(err, domain.ErrPaymentReconcile):
		return metrics.ReasonPaymentError
	case errors.Is(err, domain.ErrPaymentIntentConflict):
		return metrics.ReasonIntentConflict
	case errors.Is(err, domain.ErrOrderNotPersisted):
		return metrics.ReasonNotPersisted
	default:
		return metrics.ReasonStorageError
	}
}
