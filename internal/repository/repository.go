package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"storefront-service/internal/entity"
)

// mysqlDuplicateEntry is the server error number for a unique-key
// violation.
const mysqlDuplicateEntry = 1062

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT id, title, enabled, sold_count FROM products WHERE id = ?`

	p := &entity.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Enabled, &p.SoldCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *OrderRepository) GetVariant(ctx context.Context, id string) (*entity.Variant, error) {
	query := `SELECT id, product_id, title, price, enabled, external_product_id, external_variant_id, image_url
		FROM variants WHERE id = ?`

	v := &entity.Variant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.ProductID, &v.Title, &v.Price, &v.Enabled,
		&v.ExternalProductID, &v.ExternalVariantID, &v.ImageURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *OrderRepository) GetPromoCode(ctx context.Context, code string) (*entity.PromoCode, error) {
	query := `SELECT code, percent_off, amount_off, enabled FROM promo_codes WHERE code = ?`

	p := &entity.PromoCode{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&p.Code, &p.PercentOff, &p.AmountOff, &p.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *OrderRepository) IncrementSoldCount(ctx context.Context, productID string, delta int) error {
	query := `UPDATE products SET sold_count = sold_count + ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, delta, productID)
	return err
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	orderQuery := `INSERT INTO orders (
			id, order_number, order_seq,
			subtotal, discount, tax, shipping, total,
			customer_name, customer_email, customer_phone,
			address1, address2, city, region, country, zip,
			payment_intent_id, payment_status,
			fulfillment_id, fulfillment_status,
			tracking_carrier, tracking_number, tracking_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, orderQuery,
		order.ID, order.OrderNumber, order.OrderSeq,
		order.Subtotal, order.Discount, order.Tax, order.Shipping, order.Total,
		order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.ShippingAddr.Address1, order.ShippingAddr.Address2, order.ShippingAddr.City,
		order.ShippingAddr.Region, order.ShippingAddr.Country, order.ShippingAddr.Zip,
		order.PaymentIntentID, order.PaymentStatus,
		order.FulfillmentID, order.FulfillmentStatus,
		order.TrackingCarrier, order.TrackingNumber, order.TrackingURL,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		tx.Rollback()
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrDuplicateOrderNumber
		}
		return err
	}

	// Insert line items with batch
	itemQuery := `INSERT INTO line_items (order_id, product_id, variant_id, title, variant_title, unit_price, quantity, image_url, options, external_product_id, external_variant_id) VALUES `

	var values []interface{}
	for _, item := range order.LineItems {
		itemQuery += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?),"
		values = append(values, order.ID, item.ProductID, item.VariantID, item.Title,
			item.VariantTitle, item.UnitPrice, item.Quantity, item.ImageURL, item.Options,
			item.ExternalProductID, item.ExternalVariantID)
	}
	itemQuery = itemQuery[:len(itemQuery)-1]

	_, err = tx.ExecContext(ctx, itemQuery, values...)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

const orderColumns = `id, order_number, order_seq,
		subtotal, discount, tax, shipping, total,
		customer_name, customer_email, customer_phone,
		address1, address2, city, region, country, zip,
		payment_intent_id, payment_status,
		fulfillment_id, fulfillment_status,
		tracking_carrier, tracking_number, tracking_url,
		created_at, updated_at`

func (r *OrderRepository) scanOrder(row *sql.Row) (*entity.Order, error) {
	o := &entity.Order{}
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.OrderSeq,
		&o.Subtotal, &o.Discount, &o.Tax, &o.Shipping, &o.Total,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddr.Address1, &o.ShippingAddr.Address2, &o.ShippingAddr.City,
		&o.ShippingAddr.Region, &o.ShippingAddr.Country, &o.ShippingAddr.Zip,
		&o.PaymentIntentID, &o.PaymentStatus,
		&o.FulfillmentID, &o.FulfillmentStatus,
		&o.TrackingCarrier, &o.TrackingNumber, &o.TrackingURL,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) loadLineItems(ctx context.Context, order *entity.Order) error {
	query := `SELECT product_id, variant_id, title, variant_title, unit_price, quantity, image_url, options, external_product_id, external_variant_id
		FROM line_items WHERE order_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item := entity.LineItem{}
		err := rows.Scan(&item.ProductID, &item.VariantID, &item.Title, &item.VariantTitle,
			&item.UnitPrice, &item.Quantity, &item.ImageURL, &item.Options,
			&item.ExternalProductID, &item.ExternalVariantID)
		if err != nil {
			return err
		}
		order.LineItems = append(order.LineItems, item)
	}
	return rows.Err()
}

func (r *OrderRepository) getOrderWhere(ctx context.Context, where string, arg interface{}) (*entity.Order, error) {
	order, err := r.scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadLineItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOrderWhere(ctx, `id = ?`, id)
}

func (r *OrderRepository) GetOrderByPaymentIntent(ctx context.Context, intentID string) (*entity.Order, error) {
	return r.getOrderWhere(ctx, `payment_intent_id = ?`, intentID)
}

func (r *OrderRepository) GetOrderByFulfillmentID(ctx context.Context, fulfillmentID string) (*entity.Order, error) {
	return r.getOrderWhere(ctx, `fulfillment_id = ?`, fulfillmentID)
}

func (r *OrderRepository) MaxOrderSeq(ctx context.Context) (int, error) {
	query := `SELECT COALESCE(MAX(order_seq), 0) FROM orders`

	var max int
	if err := r.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// UpdateOrder persists the mutable lifecycle fields of an order. Line
// items are immutable once created and are never touched here.
func (r *OrderRepository) UpdateOrder(ctx context.Context, order *entity.Order) error {
	order.UpdatedAt = time.Now().UTC()

	query := `UPDATE orders SET
			payment_intent_id = ?, payment_status = ?,
			fulfillment_id = ?, fulfillment_status = ?,
			tracking_carrier = ?, tracking_number = ?, tracking_url = ?,
			updated_at = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		order.PaymentIntentID, order.PaymentStatus,
		order.FulfillmentID, order.FulfillmentStatus,
		order.TrackingCarrier, order.TrackingNumber, order.TrackingURL,
		order.UpdatedAt, order.ID,
	)
	return err
}

func (r *OrderRepository) DeleteOrder(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE order_id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) ListOrders(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY order_seq DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		o := &entity.Order{}
		err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.OrderSeq,
			&o.Subtotal, &o.Discount, &o.Tax, &o.Shipping, &o.Total,
			&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.ShippingAddr.Address1, &o.ShippingAddr.Address2, &o.ShippingAddr.City,
			&o.ShippingAddr.Region, &o.ShippingAddr.Country, &o.ShippingAddr.Zip,
			&o.PaymentIntentID, &o.PaymentStatus,
			&o.FulfillmentID, &o.FulfillmentStatus,
			&o.TrackingCarrier, &o.TrackingNumber, &o.TrackingURL,
			&o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if err := r.loadLineItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) InsertWebhookEvent(ctx context.Context, event *entity.WebhookEvent) error {
	query := `INSERT INTO webhook_events (source, event_type, payload, received_at) VALUES (?, ?, ?, ?)`
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, event.Source, event.EventType, event.Payload, event.ReceivedAt)
	return err
}
