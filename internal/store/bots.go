package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botforgehq/botforge/internal/models"
)

type PostgresBotStore struct {
	db *pgxpool.Pool
}

func NewPostgresBotStore(db *pgxpool.Pool) *PostgresBotStore {
	return &PostgresBotStore{db: db}
}

const botColumns = `id, owner_id, name, description, type, model, status, created_at, updated_at`

func (s *PostgresBotStore) Create(ctx context.Context, b *models.Bot) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO bots (id, owner_id, name, description, type, model, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.OwnerID, b.Name, b.Description, b.Type, b.Model, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bot: %w", err)
	}
	return nil
}

func (s *PostgresBotStore) Get(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	var b models.Bot
	err := s.db.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id).
		Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.Type, &b.Model, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bot: %w", err)
	}
	return &b, nil
}

func (s *PostgresBotStore) Update(ctx context.Context, b *models.Bot) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE bots SET name=$2, description=$3, type=$4, model=$5, status=$6, updated_at=now() WHERE id = $1`,
		b.ID, b.Name, b.Description, b.Type, b.Model, b.Status,
	)
	if err != nil {
		return fmt.Errorf("update bot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresBotStore) Query(ctx context.Context, ownerID *uuid.UUID, limit, offset int) ([]models.Bot, error) {
	sql := `SELECT ` + botColumns + ` FROM bots WHERE 1=1`
	var args []any
	if ownerID != nil {
		args = append(args, *ownerID)
		sql += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	sql += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query bots: %w", err)
	}
	defer rows.Close()

	var out []models.Bot
	for rows.Next() {
		var b models.Bot
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.Type, &b.Model, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
