package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name      string
		query     storage.Query
		wantSQL   string
		wantArgs  []any
		wantError error
	}{
		{
			name:    "no criteria selects everything ordered by id",
			query:   storage.Query{Table: storage.TableProducts},
			wantSQL: "SELECT id, name, description, price, picture_url FROM products ORDER BY id ASC",
		},
		{
			name: "filter order and page",
			query: storage.Query{
				Table:   storage.TableOrders,
				Where:   []spec.Condition{{Field: domain.OrderFieldBuyerEmail, Value: "a@x"}, {Field: domain.FieldID, Value: 5}},
				OrderBy: &spec.Ordering{Field: domain.OrderFieldOrderDate, Direction: spec.Descending},
				Page:    &spec.Paging{Skip: 1, Take: 1},
			},
			wantSQL: "SELECT " + orderMapper.selectList() +
				" FROM orders WHERE buyer_email = $1 AND id = $2 ORDER BY order_date DESC, id ASC LIMIT $3 OFFSET $4",
			wantArgs: []any{"a@x", int64(5), 1, 1},
		},
		{
			name: "status values are sent as text",
			query: storage.Query{
				Table: storage.TableOutboxMessages,
				Where: []spec.Condition{{Field: domain.OutboxFieldStatus, Value: domain.OutboxStatusPending}},
			},
			wantSQL:  "SELECT " + outboxMapper.selectList() + " FROM outbox_messages WHERE status = $1 ORDER BY id ASC",
			wantArgs: []any{"pending"},
		},
		{
			name:      "unknown filter field",
			query:     storage.Query{Table: storage.TableProducts, Where: []spec.Condition{{Field: "colour", Value: "red"}}},
			wantError: storage.ErrUnknownField,
		},
		{
			name:      "unknown ordering field",
			query:     storage.Query{Table: storage.TableProducts, OrderBy: &spec.Ordering{Field: "colour"}},
			wantError: storage.ErrUnknownField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := mapperFor(tt.query.Table)
			require.NoError(t, err)

			sql, args, err := buildSelect(m, tt.query)
			if tt.wantError != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestIncludeLoaders(t *testing.T) {
	loaders, err := includeLoaders(orderMapper, []string{domain.OrderIncludeItems, domain.OrderIncludeDeliveryMethod})
	require.NoError(t, err)
	assert.Len(t, loaders, 2)

	_, err = includeLoaders(productMapper, []string{"items"})
	assert.True(t, errors.Is(err, storage.ErrUnknownInclude))
}

func TestMapperFor_UnknownTable(t *testing.T) {
	_, err := mapperFor(storage.Table("baskets"))
	assert.True(t, errors.Is(err, storage.ErrUnknownTable))
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "payment intent unique index",
			err:  fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "23505", ConstraintName: paymentIntentIndex}),
			want: domain.ErrPaymentIntentConflict,
		},
		{
			name: "other unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "products_pkey"},
			want: storage.ErrDuplicateKey,
		},
		{
			name: "foreign key",
			err:  &pgconn.PgError{Code: "23503"},
			want: storage.ErrForeignKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	plain := errors.New("boom")
	if translateError(plain) != plain {
		t.Fatal("non-postgres errors must pass through unchanged")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for code 22001")
	}
}
