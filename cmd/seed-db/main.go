// Command seed-db loads demo data: perfume variants with stock, a user
// address book, starter coupons, and an API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lavandier/parfum-shop/internal/domain/address"
	"github.com/lavandier/parfum-shop/internal/domain/auth"
	"github.com/lavandier/parfum-shop/internal/domain/catalog"
	"github.com/lavandier/parfum-shop/internal/domain/coupon"
	"github.com/lavandier/parfum-shop/internal/handler"
	"github.com/lavandier/parfum-shop/internal/repository"
)

type variantJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `json:"price"`
	WeightKg float64         `json:"weight_kg"`
	WidthCm  float64         `json:"width_cm"`
	HeightCm float64         `json:"height_cm"`
	LengthCm float64         `json:"length_cm"`
	Stock    int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		variantsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&variantsFile, "variants-file", "db/seed/products.json", "path to variants JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PARFUM_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PARFUM_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PARFUM_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PARFUM_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PARFUM_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, variantsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, variantsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedVariants(ctx, repository.NewVariantRepository(pool), variantsFile); err != nil {
		return errors.Wrap(err, "seed variants")
	}
	if err := seedAddresses(ctx, repository.NewAddressRepository(pool)); err != nil {
		return errors.Wrap(err, "seed addresses")
	}
	if err := seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedVariants(ctx context.Context, repo *repository.VariantRepository, variantsFile string) error {
	slog.Info("reading variants file", slog.String("path", variantsFile))

	data, err := os.ReadFile(variantsFile)
	if err != nil {
		return errors.Wrap(err, "read variants file")
	}

	var variants []variantJSON
	if err := json.Unmarshal(data, &variants); err != nil {
		return errors.Wrap(err, "parse variants JSON")
	}

	slog.Info("upserting variants", slog.Int("count", len(variants)))

	for _, v := range variants {
		if err := repo.Upsert(ctx, &catalog.Variant{
			ID:       v.ID,
			Name:     v.Name,
			Brand:    v.Brand,
			Price:    v.Price,
			WeightKg: v.WeightKg,
			Dimensions: catalog.Dimensions{
				WidthCm:  v.WidthCm,
				HeightCm: v.HeightCm,
				LengthCm: v.LengthCm,
			},
			Active: true,
		}); err != nil {
			return errors.Wrapf(err, "upsert variant %s", v.ID)
		}
		if err := repo.SetStock(ctx, v.ID, v.Stock); err != nil {
			return errors.Wrapf(err, "set stock for %s", v.ID)
		}

		slog.Info("upserted variant", slog.String("id", v.ID), slog.String("name", v.Name))
	}

	return nil
}

func seedAddresses(ctx context.Context, repo *repository.AddressRepository) error {
	addresses := []address.Address{
		{
			ID: "addr-demo-1", UserID: "usr-demo", Label: "home",
			PostalCode: "04538-133", Street: "Av. Brigadeiro Faria Lima", Number: "3477",
			City: "São Paulo", State: "SP",
		},
		{
			ID: "addr-demo-2", UserID: "usr-demo", Label: "office",
			PostalCode: "01310-100", Street: "Av. Paulista", Number: "1578",
			City: "São Paulo", State: "SP",
		},
	}

	for i := range addresses {
		if err := repo.Upsert(ctx, &addresses[i]); err != nil {
			return errors.Wrapf(err, "upsert address %s", addresses[i].ID)
		}
	}

	slog.Info("upserted addresses", slog.Int("count", len(addresses)))
	return nil
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	until := time.Now().AddDate(1, 0, 0)
	coupons := []coupon.Coupon{
		{
			Code: "BIENVENUE10", Type: coupon.TypePercentage,
			Value:       decimal.NewFromInt(10),
			ValidUntil:  &until,
			Description: "Welcome: 10% off",
			Active:      true,
		},
		{
			Code: "FRETEGRATIS", Type: coupon.TypeFreeShipping,
			MinOrderValue: decimal.NewFromInt(150),
			ValidUntil:    &until,
			Description:   "Free shipping on orders over 150",
			Active:        true,
		},
		{
			Code: "VIP50", Type: coupon.TypeFixed,
			Value:         decimal.NewFromInt(50),
			MinOrderValue: decimal.NewFromInt(300),
			UsageLimit:    100,
			ValidUntil:    &until,
			Description:   "VIP: 50 off orders over 300",
			Active:        true,
		},
	}

	for i := range coupons {
		if err := repo.Upsert(ctx, &coupons[i]); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", coupons[i].Code)
		}
	}

	slog.Info("upserted coupons", slog.Int("count", len(coupons)))
	return nil
}

func seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	sec := handler.NewSecurityHandler(repo, []byte(pepper))
	if err := repo.Insert(ctx, &auth.APIKeyInfo{
		ID:      "key-seed",
		KeyHash: sec.HashKey(apiKey),
		Name:    "seeded key",
	}); err != nil {
		return err
	}

	slog.Info("seeded api key", slog.String("id", "key-seed"))
	return nil
}
