package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Причины неудачного оформления для метки reason.
const (
	ReasonInvalidInput   = "invalid_input"
	ReasonBasketNotFound = "basket_not_found"
	ReasonStaleReference = "stale_reference"
	ReasonDeliveryMethod = "delivery_method_not_found"
	ReasonPaymentError   = "payment_reconcile"
	ReasonIntentConflict = "payment_intent_conflict"
	ReasonNotPersisted   = "not_persisted"
	ReasonStorageError   = "storage"
	ReasonBasketEmpty    = "basket_empty"
	ReasonIntentMissing  = "payment_intent_missing"
)

// OrderMetrics содержит метрики оформления и оплаты заказов.
type OrderMetrics struct {
	ordersCreated    prometheus.Counter
	ordersSuperseded prometheus.Counter
	checkoutFailures *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	committedRows    prometheus.Histogram
	paymentUpdates   *prometheus.CounterVec
}

// NewOrderMetrics регистрирует метрики в DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders persisted from baskets",
		}),
		ordersSuperseded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_superseded_total",
			Help: "Total number of orders replaced by a repeated checkout for the same payment intent",
		}),
		checkoutFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_failures_total",
			Help: "Total number of failed checkouts by reason",
		}, []string{"reason"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of order creation in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		committedRows: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_committed_rows",
			Help:    "Rows affected by a checkout commit",
			Buckets: prometheus.LinearBuckets(1, 5, 10),
		}),
		paymentUpdates: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_payment_updates_total",
			Help: "Total number of order payment status updates by resulting status",
		}, []string{"status"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated учитывает сохранённый заказ и число строк фиксации.
func (m *OrderMetrics) RecordOrderCreated(rows int) {
	m.ordersCreated.Inc()
	m.committedRows.Observe(float64(rows))
}

// RecordOrderSuperseded учитывает заказ, удалённый при повторном оформлении.
func (m *OrderMetrics) RecordOrderSuperseded() {
	m.ordersSuperseded.Inc()
}

// RecordCheckoutFailure увеличивает счётчик неудач по причине.
func (m *OrderMetrics) RecordCheckoutFailure(reason string) {
	m.checkoutFailures.WithLabelValues(reason).Inc()
}

// RecordCheckoutDuration записывает время оформления.
func (m *OrderMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordPaymentUpdate учитывает смену статуса оплаты.
func (m *OrderMetrics) RecordPaymentUpdate(status string) {
	m.paymentUpdates.WithLabelValues(status).Inc()
}
