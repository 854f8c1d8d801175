package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/spec"
	"github.com/vladislavdragonenkov/storefront/internal/storage"
)

const (
	opTimeout = 5 * time.Second

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	paymentIntentIndex    = "orders_payment_intent_id_key"
)

// Session — сессия поверх PostgreSQL. Чтения идут в зафиксированное
// состояние, изменения копятся и применяются одной транзакцией.
type Session struct {
	db      *sql.DB
	pending []storage.Change
	closed  bool
}

var _ storage.Session = (*Session)(nil)

func (s *Session) Find(ctx context.Context, q storage.Query) ([]domain.Entity, error) {
	if s.closed {
		return nil, storage.ErrSessionClosed
	}
	m, err := mapperFor(q.Table)
	if err != nil {
		return nil, err
	}
	loaders, err := includeLoaders(m, q.Include)
	if err != nil {
		return nil, err
	}
	query, args, err := buildSelect(m, q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", m.name, err)
	}
	defer rows.Close()

	result := make([]domain.Entity, 0)
	for rows.Next() {
		e, err := m.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", m.name, err)
	}

	// Подгрузка не меняет количество строк, поэтому связи грузятся
	// уже для отсортированного и обрезанного окна.
	if len(result) > 0 {
		for _, load := range loaders {
			if err := load(ctx, s.db, result); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func (s *Session) Count(ctx context.Context, table storage.Table, where []spec.Condition) (int, error) {
	if s.closed {
		return 0, storage.ErrSessionClosed
	}
	m, err := mapperFor(table)
	if err != nil {
		return 0, err
	}
	clause, args, err := buildWhere(m, where)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+m.name+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", m.name, err)
	}
	return count, nil
}

func (s *Session) Stage(change storage.Change) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if _, err := mapperFor(change.Table); err != nil {
		return err
	}
	s.pending = append(s.pending, change)
	return nil
}

// SaveChanges применяет изменения по порядку в одной транзакции.
// Идентификаторы присваиваются сущностям только после COMMIT.
func (s *Session) SaveChanges(ctx context.Context) (rows int, err error) {
	if s.closed {
		return 0, storage.ErrSessionClosed
	}
	if len(s.pending) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	total := 0
	assigns := make([]func(), 0, len(s.pending))
	for _, change := range s.pending {
		affected, assign, applyErr := applyChange(ctx, tx, change)
		if applyErr != nil {
			err = translateError(fmt.Errorf("%s %s: %w", change.Kind, change.Table, applyErr))
			return 0, err
		}
		total += affected
		if assign != nil {
			assigns = append(assigns, assign)
		}
	}

	if err = tx.Commit(); err != nil {
		err = translateError(fmt.Errorf("commit: %w", err))
		return 0, err
	}

	for _, assign := range assigns {
		assign()
	}
	s.pending = nil
	return total, nil
}

// Close закрывает сессию, пул соединений принадлежит Store.
func (s *Session) Close() error {
	s.closed = true
	s.pending = nil
	return nil
}

func applyChange(ctx context.Context, tx *sql.Tx, change storage.Change) (int, func(), error) {
	if change.Entity == nil {
		return 0, nil, errors.New("nil entity")
	}
	m, err := mapperFor(change.Table)
	if err != nil {
		return 0, nil, err
	}

	switch change.Kind {
	case storage.ChangeInsert:
		return m.insert(ctx, tx, change.Entity)
	case storage.ChangeUpdate, storage.ChangeDelete:
		if change.Entity.GetID() == 0 {
			return 0, nil, storage.ErrNoIdentity
		}
		if change.Kind == storage.ChangeUpdate {
			n, err := m.update(ctx, tx, change.Entity)
			return n, nil, err
		}
		n, err := m.remove(ctx, tx, change.Entity)
		return n, nil, err
	default:
		return 0, nil, fmt.Errorf("unsupported change kind %d", change.Kind)
	}
}

func includeLoaders(m *tableMapper, include []string) ([]includeLoader, error) {
	loaders := make([]includeLoader, 0, len(include))
	for _, path := range include {
		load, ok := m.includes[path]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", storage.ErrUnknownInclude, m.name, path)
		}
		loaders = append(loaders, load)
	}
	return loaders, nil
}

// buildSelect собирает SELECT: WHERE, затем ORDER BY, затем LIMIT/OFFSET.
// Равные ключи сортировки упорядочиваются по id.
func buildSelect(m *tableMapper, q storage.Query) (string, []any, error) {
	where, args, err := buildWhere(m, q.Where)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(m.selectList())
	sb.WriteString(" FROM ")
	sb.WriteString(m.name)
	sb.WriteString(where)

	if q.OrderBy != nil {
		column, ok := m.fields[q.OrderBy.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", storage.ErrUnknownField, q.OrderBy.Field)
		}
		dir := "ASC"
		if q.OrderBy.Direction == spec.Descending {
			dir = "DESC"
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(column)
		sb.WriteString(" ")
		sb.WriteString(dir)
		if column != "id" {
			sb.WriteString(", id ASC")
		}
	} else {
		sb.WriteString(" ORDER BY id ASC")
	}

	if q.Page != nil {
		args = append(args, q.Page.Take, q.Page.Skip)
		fmt.Fprintf(&sb, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	return sb.String(), args, nil
}

func buildWhere(m *tableMapper, where []spec.Condition) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(where))
	args := make([]any, 0, len(where))
	for _, cond := range where {
		column, ok := m.fields[cond.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", storage.ErrUnknownField, cond.Field)
		}
		args = append(args, queryValue(cond.Value))
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func queryValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case domain.OrderStatus:
		return string(x)
	case domain.OutboxStatus:
		return string(x)
	default:
		return v
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// translateError переводит ошибки ограничений в ошибки хранилища и домена.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == paymentIntentIndex:
		return fmt.Errorf("%w: %w", domain.ErrPaymentIntentConflict, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	case pgErr.Code == pgForeignKeyViolation:
		return fmt.Errorf("%w: %w", storage.ErrForeignKey, err)
	default:
		return err
	}
}
