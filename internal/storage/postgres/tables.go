package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

type scanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// includeLoader догружает связь для уже выбранных строк.
type includeLoader func(ctx context.Context, q queryer, rows []domain.Entity) error

// tableMapper описывает отображение сущности на таблицу PostgreSQL.
type tableMapper struct {
	name    string
	columns []string
	// fields — допустимые в фильтрах и сортировке поля и их колонки.
	fields   map[string]string
	includes map[string]includeLoader
	scan     func(row scanner) (domain.Entity, error)
	insert   func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, func(), error)
	update   func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error)
	remove   func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error)
}

func (m *tableMapper) selectList() string {
	return strings.Join(m.columns, ", ")
}

var mappers = map[storage.Table]*tableMapper{
	storage.TableProducts:        productMapper,
	storage.TableDeliveryMethods: deliveryMethodMapper,
	storage.TableOrders:          orderMapper,
	storage.TableOutboxMessages:  outboxMapper,
}

func mapperFor(table storage.Table) (*tableMapper, error) {
	m, ok := mappers[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownTable, table)
	}
	return m, nil
}

// insertRow вставляет строку и возвращает ID. Явно заданный ID сохраняется,
// а последовательность подтягивается, чтобы следующие вставки не конфликтовали.
func insertRow(ctx context.Context, tx *sql.Tx, table string, presetID int64, columns []string, values []any) (int64, error) {
	if presetID != 0 {
		columns = append([]string{"id"}, columns...)
		values = append([]any{presetID}, values...)
	}

	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	var id int64
	if err := tx.QueryRowContext(ctx, query, values...).Scan(&id); err != nil {
		return 0, err
	}

	if presetID != 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST((SELECT MAX(id) FROM %s), 1))",
			table, table,
		)); err != nil {
			return 0, fmt.Errorf("sync %s id sequence: %w", table, err)
		}
	}
	return id, nil
}

// execAffected выполняет запрос и требует хотя бы одну затронутую строку.
func execAffected(ctx context.Context, tx *sql.Tx, query string, args ...any) (int, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, storage.ErrConcurrencyConflict
	}
	return int(affected), nil
}

func entityIDs(rows []domain.Entity) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.GetID())
	}
	return ids
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
