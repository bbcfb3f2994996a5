package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/extremewear/checkout-api/internal/storage/postgres"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	WeightKg decimal.Decimal `json:"weight_kg"`
	Variants []variantJSON   `json:"variants"`
}

type variantJSON struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or CHECKOUT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CHECKOUT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CHECKOUT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CHECKOUT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CHECKOUT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedUsers(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed users")
	}

	return nil
}

const (
	upsertProductSQL = `INSERT INTO products (id, name, price, category, weight_kg)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price,
			category = EXCLUDED.category, weight_kg = EXCLUDED.weight_kg`

	upsertVariantSQL = `INSERT INTO variants (id, product_id, color, size, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			color = EXCLUDED.color, size = EXCLUDED.size, stock = EXCLUDED.stock`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_type, value, minimum_order_amount,
			new_user_only, valid_from, valid_to, usage_limit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			minimum_order_amount = EXCLUDED.minimum_order_amount,
			new_user_only = EXCLUDED.new_user_only,
			valid_from = EXCLUDED.valid_from, valid_to = EXCLUDED.valid_to,
			usage_limit = EXCLUDED.usage_limit, active = TRUE`

	linkCouponProductSQL = `INSERT INTO coupon_products (coupon_code, product_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	upsertUserSQL = `INSERT INTO users (email, phone, address)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET phone = EXCLUDED.phone, address = EXCLUDED.address
		RETURNING id`

	upsertCartSQL = `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	upsertCartItemSQL = `INSERT INTO cart_items (cart_id, variant_id, quantity)
		SELECT c.id, $2, $3 FROM carts c WHERE c.user_id = $1
		ON CONFLICT (cart_id, variant_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	upsertAPIKeySQL = `INSERT INTO api_keys (user_id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET active = TRUE`
)

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Price, p.Category, p.WeightKg,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		for _, v := range p.Variants {
			if _, err := pool.Exec(ctx, upsertVariantSQL,
				v.ID, p.ID, v.Color, v.Size, v.Stock,
			); err != nil {
				return errors.Wrapf(err, "upsert variant %s", v.ID)
			}
		}

		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int("variants", len(p.Variants)))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding coupons")

	now := time.Now()
	yearAhead := now.AddDate(1, 0, 0)
	usageLimit := 500

	type couponSeed struct {
		code         string
		discountType string
		value        decimal.Decimal
		minimum      decimal.Decimal
		newUserOnly  bool
		usageLimit   *int
		products     []string
	}

	singleUse := 1

	coupons := []couponSeed{
		{
			code:         "WELCOME10",
			discountType: "percentage",
			value:        decimal.NewFromInt(10),
			minimum:      decimal.NewFromInt(500),
			newUserOnly:  true,
		},
		{
			code:         "FLAT150",
			discountType: "fixed_amount",
			value:        decimal.NewFromInt(150),
			minimum:      decimal.NewFromInt(1000),
			usageLimit:   &usageLimit,
		},
		{
			code:         "EARLYBIRD",
			discountType: "fixed_amount",
			value:        decimal.NewFromInt(100),
			minimum:      decimal.NewFromInt(500),
			usageLimit:   &singleUse,
		},
		{
			code:         "BOGOTEES",
			discountType: "bogo_50",
			value:        decimal.Zero,
			minimum:      decimal.Zero,
			products: []string{
				"11111111-1111-1111-1111-111111111111",
				"22222222-2222-2222-2222-222222222222",
			},
		},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.discountType, c.value, c.minimum,
			c.newUserOnly, now, yearAhead, c.usageLimit,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		for _, pid := range c.products {
			if _, err := pool.Exec(ctx, linkCouponProductSQL, c.code, pid); err != nil {
				return errors.Wrapf(err, "link coupon %s to product %s", c.code, pid)
			}
		}

		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("type", c.discountType))
	}

	return nil
}

type cartItemSeed struct {
	variantID string
	quantity  int
}

type userSeed struct {
	email     string
	phone     string
	address   string
	keySuffix string
	keyName   string
	cartItems []cartItemSeed
}

// seedUsers creates demo accounts with their carts and API keys. Each user's
// key is the base API key plus the user's suffix; the first user carries the
// base key unmodified.
func seedUsers(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding demo users")

	users := []userSeed{
		{
			email:   "demo@example.com",
			phone:   "+919876543210",
			address: "12 Anna Salai, Chennai, Tamil Nadu",
			keyName: "Default test key",
		},
		{
			email:     "cod@example.com",
			phone:     "+919876543211",
			address:   "4 Gandhi Road, Coimbatore, Tamil Nadu",
			keySuffix: "-cod",
			keyName:   "COD checkout key",
			cartItems: []cartItemSeed{
				{variantID: "aaaaaaa3-0000-0000-0000-000000000001", quantity: 1},
			},
		},
		{
			email:     "payer@example.com",
			phone:     "+919876543212",
			address:   "7 MG Road, Bengaluru, Karnataka",
			keySuffix: "-payer",
			keyName:   "Online payment key",
			cartItems: []cartItemSeed{
				{variantID: "aaaaaaa1-0000-0000-0000-000000000002", quantity: 2},
			},
		},
		{
			email:     "racer-one@example.com",
			phone:     "+919876543213",
			address:   "1 Beach Road, Pondicherry",
			keySuffix: "-racer1",
			keyName:   "Coupon race key 1",
			cartItems: []cartItemSeed{
				{variantID: "aaaaaaa1-0000-0000-0000-000000000003", quantity: 2},
			},
		},
		{
			email:     "racer-two@example.com",
			phone:     "+919876543214",
			address:   "2 Beach Road, Pondicherry",
			keySuffix: "-racer2",
			keyName:   "Coupon race key 2",
			cartItems: []cartItemSeed{
				{variantID: "aaaaaaa1-0000-0000-0000-000000000003", quantity: 2},
			},
		},
	}

	for _, u := range users {
		var userID string
		err := pool.QueryRow(ctx, upsertUserSQL, u.email, u.phone, u.address).Scan(&userID)
		if err != nil {
			return errors.Wrapf(err, "upsert user %s", u.email)
		}

		if _, err := pool.Exec(ctx, upsertCartSQL, userID); err != nil {
			return errors.Wrapf(err, "create cart for %s", u.email)
		}
		for _, it := range u.cartItems {
			if _, err := pool.Exec(ctx, upsertCartItemSQL, userID, it.variantID, it.quantity); err != nil {
				return errors.Wrapf(err, "seed cart item for %s", u.email)
			}
		}

		keyHash := hashAPIKey(apiKey+u.keySuffix, pepper)
		if _, err := pool.Exec(ctx, upsertAPIKeySQL,
			userID, keyHash, u.keyName, []string{"checkout"},
		); err != nil {
			return errors.Wrapf(err, "upsert API key for %s", u.email)
		}

		slog.Info("upserted user",
			slog.String("email", u.email),
			slog.String("id", userID),
			slog.Int("cart_items", len(u.cartItems)))
	}

	return nil
}

func hashAPIKey(apiKey, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	return hex.EncodeToString(mac.Sum(nil))
}
