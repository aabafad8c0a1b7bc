//go:build ignore

package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// generateSampleCoupons writes gzipped JSON-lines coupon catalogues that
// COUPON_IMPORT_FILES can point at.
//
//	go run scripts/generate_sample_coupons.go
func main() {
	dataDir := "data/coupons"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	yearEnd := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, time.UTC)

	catalogues := map[string][]model.CouponInput{
		"seasonal.gz": {
			percentage("SUMMER10", 10, 500, ptr(decimal.NewFromInt(200)), nil, now, yearEnd),
			percentage("WINTER15", 15, 1000, ptr(decimal.NewFromInt(300)), nil, now, yearEnd),
			fixed("FESTIVE100", 100, 999, ptr(1000), now, now.AddDate(0, 1, 0)),
		},
		"welcome.gz": {
			fixed("WELCOME50", 50, 0, nil, now, yearEnd),
			percentage("FIRSTORDER", 20, 300, ptr(decimal.NewFromInt(150)), ptr(500), now, yearEnd),
		},
		"expired.gz": {
			fixed("LASTYEAR", 75, 0, nil, now.AddDate(-1, 0, 0), now.AddDate(0, 0, -1)),
		},
	}

	for filename, coupons := range catalogues {
		filePath := filepath.Join(dataDir, filename)

		if err := createCouponFile(filePath, coupons); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d coupons\n", filePath, len(coupons))
	}

	fmt.Println("\nSample coupon catalogues created successfully!")
	fmt.Println("Import them with COUPON_IMPORT_FILES=data/coupons/seasonal.gz,data/coupons/welcome.gz,data/coupons/expired.gz")
}

func percentage(code string, pct, minPurchase int64, maxDiscount *decimal.Decimal, limit *int, from, until time.Time) model.CouponInput {
	return model.CouponInput{
		Code:        code,
		Kind:        model.CouponKindPercentage,
		Value:       decimal.NewFromInt(pct),
		MinPurchase: decimal.NewFromInt(minPurchase),
		MaxDiscount: maxDiscount,
		UsageLimit:  limit,
		ValidFrom:   from,
		ValidUntil:  until,
	}
}

func fixed(code string, amount, minPurchase int64, limit *int, from, until time.Time) model.CouponInput {
	return model.CouponInput{
		Code:        code,
		Kind:        model.CouponKindFixed,
		Value:       decimal.NewFromInt(amount),
		MinPurchase: decimal.NewFromInt(minPurchase),
		UsageLimit:  limit,
		ValidFrom:   from,
		ValidUntil:  until,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func createCouponFile(filePath string, coupons []model.CouponInput) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := json.NewEncoder(gzipWriter)
	for _, coupon := range coupons {
		if err := encoder.Encode(coupon); err != nil {
			return fmt.Errorf("failed to write coupon %s: %w", coupon.Code, err)
		}
	}

	return nil
}
