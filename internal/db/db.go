package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitPostgres connects to the signal store. The store is the source of
// truth for every endpoint, so a missing or unreachable database is fatal.
func InitPostgres(ctx context.Context, dsn string) *pgxpool.Pool {
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping Postgres: %v", err)
	}
	log.Println("Connected to Postgres")
	return pool
}
