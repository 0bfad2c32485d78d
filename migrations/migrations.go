package migrations

import (
	"database/sql"
	"time"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		sold_count INT NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS variants (
		id VARCHAR(64) PRIMARY KEY,
		product_id VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		price BIGINT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		external_product_id VARCHAR(64) NOT NULL DEFAULT '',
		external_variant_id INT NOT NULL DEFAULT 0,
		image_url VARCHAR(512) NOT NULL DEFAULT '',
		FOREIGN KEY (product_id) REFERENCES products(id)
	);`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		code VARCHAR(64) PRIMARY KEY,
		percent_off INT NOT NULL DEFAULT 0,
		amount_off BIGINT NOT NULL DEFAULT 0,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	);`,
	`CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(64) PRIMARY KEY,
		order_number VARCHAR(20) NOT NULL UNIQUE,
		order_seq INT NOT NULL,
		subtotal BIGINT NOT NULL,
		discount BIGINT NOT NULL,
		tax BIGINT NOT NULL,
		shipping BIGINT NOT NULL,
		total BIGINT NOT NULL,
		customer_name VARCHAR(255) NOT NULL,
		customer_email VARCHAR(255) NOT NULL,
		customer_phone VARCHAR(64) NOT NULL DEFAULT '',
		address1 VARCHAR(255) NOT NULL,
		address2 VARCHAR(255) NOT NULL DEFAULT '',
		city VARCHAR(128) NOT NULL,
		region VARCHAR(128) NOT NULL DEFAULT '',
		country VARCHAR(64) NOT NULL,
		zip VARCHAR(32) NOT NULL,
		payment_intent_id VARCHAR(128) NOT NULL DEFAULT '',
		payment_status VARCHAR(20) NOT NULL,
		fulfillment_id VARCHAR(128) NOT NULL DEFAULT '',
		fulfillment_status VARCHAR(20) NOT NULL,
		tracking_carrier VARCHAR(64) NOT NULL DEFAULT '',
		tracking_number VARCHAR(128) NOT NULL DEFAULT '',
		tracking_url VARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_orders_payment_intent (payment_intent_id),
		INDEX idx_orders_fulfillment (fulfillment_id),
		INDEX idx_orders_seq (order_seq)
	);`,
	`CREATE TABLE IF NOT EXISTS line_items (
		id INT AUTO_INCREMENT PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		product_id VARCHAR(64) NOT NULL,
		variant_id VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		variant_title VARCHAR(255) NOT NULL,
		unit_price BIGINT NOT NULL,
		quantity INT NOT NULL,
		image_url VARCHAR(512) NOT NULL DEFAULT '',
		options TEXT,
		external_product_id VARCHAR(64) NOT NULL DEFAULT '',
		external_variant_id INT NOT NULL DEFAULT 0,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
		id INT AUTO_INCREMENT PRIMARY KEY,
		source VARCHAR(32) NOT NULL,
		event_type VARCHAR(128) NOT NULL,
		payload MEDIUMTEXT NOT NULL,
		received_at DATETIME NOT NULL,
		INDEX idx_webhook_events_received (received_at)
	);`,
}

// AutoMigrate creates the storefront tables if they do not exist.
func AutoMigrate(retries int, db *sql.DB) error {
	for _, query := range tables {
		_, err := db.Exec(query)
		if err != nil {
			// Retry creating the table
			for i := 0; i < retries; i++ {
				time.Sleep(1 * time.Second)
				_, err = db.Exec(query)
				if err == nil {
					break
				}
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
