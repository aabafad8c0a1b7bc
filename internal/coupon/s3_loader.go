package coupon

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// objectGetter is the part of the S3 client the loader needs.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Location names where catalogue files live in S3. Prefix is prepended
// to every file name, e.g. "coupons/".
type S3Location struct {
	Bucket string
	Region string
	Prefix string
}

type s3Loader struct {
	client objectGetter
	loc    S3Location
	logger zerolog.Logger
}

// NewS3Loader creates a loader reading catalogue files from S3 using the
// default AWS credential chain.
func NewS3Loader(ctx context.Context, loc S3Location, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(loc.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	l := newS3Loader(s3.NewFromConfig(cfg), loc, logger)
	l.logger.Info().
		Str("bucket", loc.Bucket).
		Str("region", loc.Region).
		Str("prefix", loc.Prefix).
		Msg("S3 coupon loader ready")
	return l, nil
}

func newS3Loader(client objectGetter, loc S3Location, logger zerolog.Logger) *s3Loader {
	return &s3Loader{
		client: client,
		loc:    loc,
		logger: logger.With().Str("component", "s3-coupon-loader").Logger(),
	}
}

// Load reads name, relative to the configured prefix, from the bucket.
func (l *s3Loader) Load(ctx context.Context, name string) ([]model.CouponInput, error) {
	key := l.loc.Prefix + name
	source := "s3://" + l.loc.Bucket + "/" + key

	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.loc.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().Err(err).Str("source", source).Msg("failed to get coupon file")
		return nil, fmt.Errorf("failed to get %s: %w", source, err)
	}
	defer out.Body.Close()

	defs, err := decodeDefinitions(ctx, out.Body, source)
	if err != nil {
		l.logger.Error().Err(err).Str("source", source).Msg("error reading coupon file")
		return nil, err
	}

	l.logger.Info().
		Str("source", source).
		Int("coupons_loaded", len(defs)).
		Msg("coupon file loaded")
	return defs, nil
}

type fallbackLoader struct {
	primary   Loader
	secondary Loader
	logger    zerolog.Logger
}

// NewFallbackLoader returns a loader that reads through primary and, when
// that fails, through secondary. A nil primary reads through secondary only.
func NewFallbackLoader(primary, secondary Loader, logger zerolog.Logger) Loader {
	if primary == nil {
		return secondary
	}
	return &fallbackLoader{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback-loader").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, name string) ([]model.CouponInput, error) {
	defs, err := l.primary.Load(ctx, name)
	if err == nil {
		return defs, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	l.logger.Warn().Err(err).Str("file", name).Msg("primary coupon source failed, trying fallback")

	defs, fbErr := l.secondary.Load(ctx, name)
	if fbErr != nil {
		return nil, errors.Join(err, fbErr)
	}
	return defs, nil
}
