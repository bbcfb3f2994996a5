// Command coupon-import loads marketing campaign code dumps into the coupons
// table. Campaign partners each export one gzipped code list; a code counts
// as genuine only when at least two partners agree on it. The dumps are far
// too large to hold in memory, so membership is tracked with bloom filters
// across two streaming passes.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/extremewear/checkout-api/internal/storage/postgres"
)

const (
	bloomCapacity = 100_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 12
	validityDays  = 90
)

// discountFor maps a campaign code to its percentage discount. Campaigns
// encode the tier in the code prefix; anything unrecognized gets the base
// tier.
func discountFor(code string) decimal.Decimal {
	switch {
	case strings.HasPrefix(code, "VIP"):
		return decimal.NewFromInt(25)
	case strings.HasPrefix(code, "FEST"):
		return decimal.NewFromInt(20)
	case strings.HasPrefix(code, "SALE"):
		return decimal.NewFromInt(15)
	default:
		return decimal.NewFromInt(10)
	}
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing partner .gz code dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list partner dumps")
	}
	if len(files) < 2 {
		return errors.Errorf("need at least 2 partner dumps in %s, found %d", dataDir, len(files))
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: cross-checking codes across partners")

	codes, err := crossCheck(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "cross-check codes")
	}

	slog.Info("confirmed codes", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return importCoupons(ctx, pool, codes)
}

// buildFilters streams every dump once, concurrently, producing one bloom
// filter of plausible codes per file.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamCodes(ctx, path, func(code string) {
				filter.AddString(code)
				if count++; count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.String("file", path), slog.Uint64("codes", count))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}

			slog.Info("pass 1 file done", slog.String("file", path), slog.Uint64("codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// crossCheck streams every dump a second time and keeps codes that another
// partner's filter also contains. Per-file hits are merged as bitmasks so a
// code confirmed by two or more partners survives.
func crossCheck(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	perFile := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			hits := make(map[string]uint)
			bit := uint(1) << uint(i)

			err := streamCodes(ctx, path, func(code string) {
				for j, f := range filters {
					if j == i {
						continue
					}
					if f.TestString(code) {
						hits[code] |= bit
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "cross-check %s", path)
			}

			slog.Info("pass 2 file done", slog.String("file", path), slog.Int("hits", len(hits)))
			perFile[i] = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, hits := range perFile {
		for code, mask := range hits {
			merged[code] |= mask
		}
	}

	var confirmed []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, code)
		}
	}
	return confirmed, nil
}

// streamCodes reads a gzipped dump line by line, passing each plausible code
// to fn. Lines outside the length bounds are campaign noise and skipped.
func streamCodes(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := strings.TrimSpace(scanner.Text())
		if len(code) >= minCodeLen && len(code) <= maxCodeLen {
			fn(code)
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

const upsertCampaignCouponSQL = `INSERT INTO coupons (code, discount_type, value,
		minimum_order_amount, new_user_only, valid_from, valid_to, active)
	VALUES ($1, 'percentage', $2, 0, FALSE, $3, $4, TRUE)
	ON CONFLICT (code) DO UPDATE SET
		value = EXCLUDED.value, valid_to = EXCLUDED.valid_to, active = TRUE`

func importCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing coupons to database", slog.Int("count", len(codes)))

	from := time.Now()
	to := from.AddDate(0, 0, validityDays)

	for i, code := range codes {
		if _, err := pool.Exec(ctx, upsertCampaignCouponSQL, code, discountFor(code), from, to); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", code)
		}
		if (i+1)%1000 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}
	return nil
}
