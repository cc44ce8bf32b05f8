package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botforgehq/botforge/internal/models"
)

type PostgresDatasetStore struct {
	db *pgxpool.Pool
}

func NewPostgresDatasetStore(db *pgxpool.Pool) *PostgresDatasetStore {
	return &PostgresDatasetStore{db: db}
}

const datasetColumns = `id, owner_id, title, description, type, content, training_content, test_content,
	num_examples, training_examples_count, test_examples_count, generation_status,
	progress, current_batch, total_batches, generated_count, metadata, created_at, completed_at`

func (s *PostgresDatasetStore) Create(ctx context.Context, d *models.Dataset) error {
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO datasets (id, owner_id, title, description, type, content, training_content, test_content,
			num_examples, training_examples_count, test_examples_count, generation_status,
			progress, current_batch, total_batches, generated_count, metadata, created_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		d.ID, d.OwnerID, d.Title, d.Description, d.Type, d.Content, d.TrainingContent, d.TestContent,
		d.NumExamples, d.TrainingExamplesCount, d.TestExamplesCount, d.GenerationStatus,
		d.Progress, d.CurrentBatch, d.TotalBatches, d.GeneratedCount, meta, d.CreatedAt, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (s *PostgresDatasetStore) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	row := s.db.QueryRow(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = $1`, id)
	d, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return d, nil
}

func (s *PostgresDatasetStore) Update(ctx context.Context, d *models.Dataset) error {
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE datasets SET title=$2, description=$3, type=$4, content=$5, training_content=$6, test_content=$7,
			num_examples=$8, training_examples_count=$9, test_examples_count=$10, generation_status=$11,
			progress=$12, current_batch=$13, total_batches=$14, generated_count=$15, metadata=$16, completed_at=$17
		 WHERE id = $1`,
		d.ID, d.Title, d.Description, d.Type, d.Content, d.TrainingContent, d.TestContent,
		d.NumExamples, d.TrainingExamplesCount, d.TestExamplesCount, d.GenerationStatus,
		d.Progress, d.CurrentBatch, d.TotalBatches, d.GeneratedCount, meta, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresDatasetStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresDatasetStore) Query(ctx context.Context, f DatasetFilter) ([]models.Dataset, error) {
	sql := `SELECT ` + datasetColumns + ` FROM datasets WHERE 1=1`
	var args []any
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		sql += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		sql += fmt.Sprintf(" AND generation_status = $%d", len(args))
	}
	if f.HasContent != nil {
		if *f.HasContent {
			sql += " AND content IS NOT NULL"
		} else {
			sql += " AND content IS NULL"
		}
	}
	sql += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var out []models.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDataset(row pgx.Row) (*models.Dataset, error) {
	var d models.Dataset
	var meta []byte
	err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Description, &d.Type,
		&d.Content, &d.TrainingContent, &d.TestContent,
		&d.NumExamples, &d.TrainingExamplesCount, &d.TestExamplesCount, &d.GenerationStatus,
		&d.Progress, &d.CurrentBatch, &d.TotalBatches, &d.GeneratedCount,
		&meta, &d.CreatedAt, &d.CompletedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &d, nil
}
