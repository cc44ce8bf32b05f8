package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresStores wires all four collections onto one connection pool.
func NewPostgresStores(db *pgxpool.Pool) *Stores {
	return &Stores{
		Datasets: NewPostgresDatasetStore(db),
		Bots:     NewPostgresBotStore(db),
		Jobs:     NewPostgresJobStore(db),
		Reports:  NewPostgresReportStore(db),
	}
}
