package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INT8 PRIMARY KEY DEFAULT unique_rowid(),
		email STRING NOT NULL UNIQUE,
		password_hash STRING NOT NULL,
		name STRING NOT NULL DEFAULT '',
		role STRING NOT NULL CHECK (role IN ('owner', 'provider')),
		phone_number STRING NOT NULL DEFAULT '',
		bio STRING NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		pet_id INT8 NOT NULL,
		service_id INT8 NOT NULL,
		owner_id INT8 NOT NULL,
		provider_id INT8 NOT NULL,
		status STRING NOT NULL CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled')),
		total_price NUMERIC NOT NULL,
		payment_id UUID NOT NULL UNIQUE,
		notes STRING NOT NULL DEFAULT '',
		scheduled_at TIMESTAMPTZ NOT NULL,
		rating INT8,
		review_text STRING,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		INDEX bookings_owner_idx (owner_id),
		INDEX bookings_provider_idx (provider_id)
	)`,
	`CREATE TABLE IF NOT EXISTS payment_holds (
		id UUID PRIMARY KEY,
		booking_id UUID NOT NULL,
		amount NUMERIC NOT NULL,
		provider_id INT8 NOT NULL,
		status STRING NOT NULL CHECK (status IN ('escrowed', 'released', 'refunded')),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type STRING NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type STRING NOT NULL,
		payload_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status STRING NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'PUBLISHED')),
		dedupe_key STRING NOT NULL UNIQUE,
		INDEX outbox_status_idx (status, created_at)
	)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}
