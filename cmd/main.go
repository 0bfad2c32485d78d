package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"storefront-service/internal/api"
	"storefront-service/internal/config"
	"storefront-service/internal/fulfillment"
	"storefront-service/internal/payment"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"
	"storefront-service/migrations"
)

func connectDBEnv(host, port, user, pass, dbname string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("Connected to DB %s", dbname)
				return db, nil
			}
		}
		log.Printf("Retry %d: Failed to connect to DB %s (%s:%s): %v", i+1, dbname, host, port, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %v", dbname, host, port, err)
}

func main() {
	cfg := config.Load()

	db, err := connectDBEnv(os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_USER"), os.Getenv("DB_PASS"), os.Getenv("DB_NAME"))
	if err != nil {
		panic(err)
	}

	if err := migrations.AutoMigrate(3, db); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: os.Getenv("REDIS_ADDR"),
	})

	kafkaWriter := config.NewKafkaWriter("order-topic")

	store := repository.NewOrderRepository(db)
	gateway := payment.NewClient(cfg.StripeSecretKey)
	provider := fulfillment.NewClient(cfg.PrintifyAPIKey, cfg.PrintifyShopID)

	submitter := service.NewFulfillmentService(store, provider)
	checkoutService := service.NewCheckoutService(store, gateway, kafkaWriter, rdb, cfg.Currency, cfg.ShippingFlat, service.FlatTax(cfg.TaxPercent))
	webhookService := service.NewWebhookService(store, submitter, kafkaWriter, rdb)
	adminService := service.NewAdminService(store, provider, submitter, kafkaWriter)

	handler := api.NewOrderHandler(checkoutService, webhookService, adminService, cfg)

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(10),
				Burst:     30,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.Request().RemoteAddr, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	e.POST("/checkout/create", handler.CreateCheckout)
	e.POST("/webhooks/payment", handler.PaymentWebhook)
	e.POST("/webhooks/fulfillment", handler.FulfillmentWebhook)

	admin := e.Group("/admin", api.AdminAuth(cfg.AdminJWTSecret))
	admin.GET("/orders", handler.ListOrders)
	admin.GET("/orders/:id", handler.GetOrder)
	admin.POST("/orders/:id/submit-to-fulfillment", handler.SubmitToFulfillment)
	admin.POST("/orders/:id/cancel", handler.CancelOrder)
	admin.POST("/orders/:id/cancel-at-provider", handler.CancelAtProvider)
	admin.DELETE("/orders/:id", handler.DeleteOrder)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "storefront-service",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.Logger.Fatal(e.Start(":8080"))
}
