package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var orderMapper = &tableMapper{
	name: "orders",
	columns: []string{
		"id", "buyer_email", "order_date",
		"ship_first_name", "ship_last_name", "ship_street", "ship_city", "ship_state", "ship_country", "ship_zip_code",
		"delivery_method_id", "subtotal", "status", "payment_intent_id",
	},
	fields: map[string]string{
		domain.FieldID:                   "id",
		domain.OrderFieldBuyerEmail:      "buyer_email",
		domain.OrderFieldOrderDate:       "order_date",
		domain.OrderFieldStatus:          "status",
		domain.OrderFieldPaymentIntentID: "payment_intent_id",
	},
	includes: map[string]includeLoader{
		domain.OrderIncludeItems:          loadOrderItems,
		domain.OrderIncludeDeliveryMethod: loadOrderDeliveryMethods,
	},
	scan:   scanOrder,
	insert: insertOrder,
	update: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error) {
		o := e.(*domain.Order)
		a := o.ShipToAddress
		// Позиции неизменяемы, обновляется только корневая строка.
		return execAffected(ctx, tx, `
			UPDATE orders SET
				buyer_email = $2, order_date = $3,
				ship_first_name = $4, ship_last_name = $5, ship_street = $6, ship_city = $7,
				ship_state = $8, ship_country = $9, ship_zip_code = $10,
				delivery_method_id = $11, subtotal = $12, status = $13, payment_intent_id = $14
			WHERE id = $1
		`,
			o.ID, o.BuyerEmail, o.OrderDate,
			a.FirstName, a.LastName, a.Street, a.City, a.State, a.Country, a.ZipCode,
			nullableID(deliveryMethodID(o)), o.Subtotal, string(o.Status), o.PaymentIntentID,
		)
	},
	remove: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error) {
		res, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, e.GetID())
		if err != nil {
			return 0, fmt.Errorf("delete order items: %w", err)
		}
		items, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		root, err := execAffected(ctx, tx, `DELETE FROM orders WHERE id = $1`, e.GetID())
		if err != nil {
			return 0, err
		}
		return root + int(items), nil
	},
}

func deliveryMethodID(o *domain.Order) int64 {
	if o.DeliveryMethodID == 0 && o.DeliveryMethod != nil {
		return o.DeliveryMethod.ID
	}
	return o.DeliveryMethodID
}

func scanOrder(row scanner) (domain.Entity, error) {
	var (
		o      domain.Order
		dmID   sql.NullInt64
		status string
	)
	a := &o.ShipToAddress
	if err := row.Scan(
		&o.ID, &o.BuyerEmail, &o.OrderDate,
		&a.FirstName, &a.LastName, &a.Street, &a.City, &a.State, &a.Country, &a.ZipCode,
		&dmID, &o.Subtotal, &status, &o.PaymentIntentID,
	); err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.DeliveryMethodID = dmID.Int64
	o.Status = domain.OrderStatus(status)
	o.OrderDate = o.OrderDate.UTC()
	return &o, nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, func(), error) {
	o := e.(*domain.Order)
	a := o.ShipToAddress

	orderID, err := insertRow(ctx, tx, "orders", o.ID,
		[]string{
			"buyer_email", "order_date",
			"ship_first_name", "ship_last_name", "ship_street", "ship_city", "ship_state", "ship_country", "ship_zip_code",
			"delivery_method_id", "subtotal", "status", "payment_intent_id",
		},
		[]any{
			o.BuyerEmail, o.OrderDate,
			a.FirstName, a.LastName, a.Street, a.City, a.State, a.Country, a.ZipCode,
			nullableID(deliveryMethodID(o)), o.Subtotal, string(o.Status), o.PaymentIntentID,
		},
	)
	if err != nil {
		return 0, nil, fmt.Errorf("insert order: %w", err)
	}

	itemIDs := make([]int64, len(o.Items))
	for i, item := range o.Items {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_item_id, product_name, picture_url, price, quantity
			) VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`,
			orderID, item.ItemOrdered.ProductItemID, item.ItemOrdered.ProductName,
			item.ItemOrdered.PictureURL, item.Price, item.Quantity,
		).Scan(&itemIDs[i]); err != nil {
			return 0, nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	assign := func() {
		o.ID = orderID
		for i := range o.Items {
			o.Items[i].ID = itemIDs[i]
		}
		if o.DeliveryMethodID == 0 && o.DeliveryMethod != nil {
			o.DeliveryMethodID = o.DeliveryMethod.ID
		}
	}
	return 1 + len(o.Items), assign, nil
}

func loadOrderItems(ctx context.Context, q queryer, rows []domain.Entity) error {
	byID := make(map[int64]*domain.Order, len(rows))
	for _, row := range rows {
		order := row.(*domain.Order)
		order.Items = []domain.OrderItem{}
		byID[order.ID] = order
	}

	result, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_item_id, product_name, picture_url, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, entityIDs(rows))
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer result.Close()

	for result.Next() {
		var (
			item    domain.OrderItem
			orderID int64
		)
		if err := result.Scan(
			&item.ID, &orderID, &item.ItemOrdered.ProductItemID, &item.ItemOrdered.ProductName,
			&item.ItemOrdered.PictureURL, &item.Price, &item.Quantity,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}
	return nil
}

func loadOrderDeliveryMethods(ctx context.Context, q queryer, rows []domain.Entity) error {
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if id := row.(*domain.Order).DeliveryMethodID; id != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	result, err := q.QueryContext(ctx,
		"SELECT "+deliveryMethodMapper.selectList()+" FROM delivery_methods WHERE id = ANY($1)", ids)
	if err != nil {
		return fmt.Errorf("load delivery methods: %w", err)
	}
	defer result.Close()

	methods := make(map[int64]*domain.DeliveryMethod)
	for result.Next() {
		e, err := scanDeliveryMethod(result)
		if err != nil {
			return err
		}
		dm := e.(*domain.DeliveryMethod)
		methods[dm.ID] = dm
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("iterate delivery methods: %w", err)
	}

	for _, row := range rows {
		order := row.(*domain.Order)
		if dm, ok := methods[order.DeliveryMethodID]; ok {
			c := *dm
			order.DeliveryMethod = &c
		}
	}
	return nil
}
