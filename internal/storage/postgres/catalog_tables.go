package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var productMapper = &tableMapper{
	name:    "products",
	columns: []string{"id", "name", "description", "price", "picture_url"},
	fields: map[string]string{
		domain.FieldID:           "id",
		domain.ProductFieldName:  "name",
		domain.ProductFieldPrice: "price",
	},
	scan: func(row scanner) (domain.Entity, error) {
		var p domain.Product
		if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.PictureURL); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		return &p, nil
	},
	insert: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, func(), error) {
		p := e.(*domain.Product)
		id, err := insertRow(ctx, tx, "products", p.ID,
			[]string{"name", "description", "price", "picture_url"},
			[]any{p.Name, p.Description, p.Price, p.PictureURL},
		)
		if err != nil {
			return 0, nil, fmt.Errorf("insert product: %w", err)
		}
		return 1, func() { p.ID = id }, nil
	},
	update: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error) {
		p := e.(*domain.Product)
		return execAffected(ctx, tx, `
			UPDATE products SET name = $2, description = $3, price = $4, picture_url = $5
			WHERE id = $1
		`, p.ID, p.Name, p.Description, p.Price, p.PictureURL)
	},
	remove: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error) {
		return execAffected(ctx, tx, `DELETE FROM products WHERE id = $1`, e.GetID())
	},
}

var deliveryMethodMapper = &tableMapper{
	name:    "delivery_methods",
	columns: []string{"id", "short_name", "delivery_time", "description", "price"},
	fields: map[string]string{
		domain.FieldID:                      "id",
		domain.DeliveryMethodFieldShortName: "short_name",
		domain.DeliveryMethodFieldPrice:     "price",
	},
	scan: scanDeliveryMethod,
	insert: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, func(), error) {
		dm := e.(*domain.DeliveryMethod)
		id, err := insertRow(ctx, tx, "delivery_methods", dm.ID,
			[]string{"short_name", "delivery_time", "description", "price"},
			[]any{dm.ShortName, dm.DeliveryTime, dm.Description, dm.Price},
		)
		if err != nil {
			return 0, nil, fmt.Errorf("insert delivery method: %w", err)
		}
		return 1, func() { dm.ID = id }, nil
	},
	update: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error) {
		dm := e.(*domain.DeliveryMethod)
		return execAffected(ctx, tx, `
			UPDATE delivery_methods SET short_name = $2, delivery_time = $3, description = $4, price = $5
			WHERE id = $1
		`, dm.ID, dm.ShortName, dm.DeliveryTime, dm.Description, dm.Price)
	},
	remove: func(ctx context.Context, tx *sql.Tx, e domain.Entity) (int, error) {
		return execAffected(ctx, tx, `DELETE FROM delivery_methods WHERE id = $1`, e.GetID())
	},
}

func scanDeliveryMethod(row scanner) (domain.Entity, error) {
	var dm domain.DeliveryMethod
	if err := row.Scan(&dm.ID, &dm.ShortName, &dm.DeliveryTime, &dm.Description, &dm.Price); err != nil {
		return nil, fmt.Errorf("scan delivery method: %w", err)
	}
	return &dm, nil
}
