package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-basket/internal/domain/customer"
	"github.com/xenking/oolio-kart-basket/internal/domain/product"
	"github.com/xenking/oolio-kart-basket/internal/storage/postgres"
)

type catalogJSON struct {
	Products  []productJSON  `json:"products"`
	Customers []customerJSON `json:"customers"`
}

type productJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Price        decimal.Decimal `json:"price"`
	VatRate      decimal.Decimal `json:"vatRate"`
	Recurrent    bool            `json:"recurrent"`
	MaxPerBasket int             `json:"maxPerBasket"`
}

type customerJSON struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Addresses []addressJSON `json:"addresses"`
}

type addressJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file, optionally gzip compressed (.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	catalog, err := readCatalog(catalogFile)
	if err != nil {
		return err
	}

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

	products := postgres.NewProductRepository(pool)
	if err := seedProducts(ctx, products, catalog.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	all, err := products.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	slog.Info("catalog size", slog.Int("products", len(all)))

	if err := seedCustomers(ctx, postgres.NewCustomerRepository(pool), catalog.Customers); err != nil {
		return errors.Wrap(err, "seed customers")
	}

	return nil
}

func readCatalog(path string) (*catalogJSON, error) {
	slog.Info("reading catalog file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	var catalog catalogJSON
	if err := json.NewDecoder(r).Decode(&catalog); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return &catalog, nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		typ := p.Type
		if typ == "" {
			typ = product.TypeStandard
		}
		if err := repo.Upsert(ctx, product.Product{
			ID:               p.ID,
			Name:             p.Name,
			Type:             typ,
			Price:            p.Price,
			VatRate:          p.VatRate,
			RecurrentPayment: p.Recurrent,
			MaxPerBasket:     p.MaxPerBasket,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("type", typ))
	}

	return nil
}

func seedCustomers(ctx context.Context, repo *postgres.CustomerRepository, customers []customerJSON) error {
	slog.Info("upserting customers", slog.Int("count", len(customers)))

	for _, c := range customers {
		if err := repo.Upsert(ctx, customer.Customer{ID: c.ID, Name: c.Name, Email: c.Email}); err != nil {
			return errors.Wrapf(err, "upsert customer %s", c.ID)
		}
		for _, a := range c.Addresses {
			if err := repo.UpsertAddress(ctx, customer.Address{
				ID:         a.ID,
				CustomerID: c.ID,
				Name:       a.Name,
				Street:     a.Street,
				City:       a.City,
				PostalCode: a.PostalCode,
				Country:    a.Country,
			}); err != nil {
				return errors.Wrapf(err, "upsert address %s", a.ID)
			}
		}

		slog.Info("upserted customer", slog.String("id", c.ID), slog.Int("addresses", len(c.Addresses)))
	}

	return nil
}
