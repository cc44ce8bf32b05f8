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

type PostgresReportStore struct {
	db *pgxpool.Pool
}

func NewPostgresReportStore(db *pgxpool.Pool) *PostgresReportStore {
	return &PostgresReportStore{db: db}
}

const reportColumns = `id, job_id, bot_id, dataset_id, training_examples_count, test_examples_count,
	accuracy, precision_score, recall, f1, perplexity, results, status, error, created_at, completed_at`

func (s *PostgresReportStore) Create(ctx context.Context, r *models.TrainingReport) error {
	results, err := json.Marshal(r.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO training_reports (id, job_id, bot_id, dataset_id, training_examples_count, test_examples_count,
			accuracy, precision_score, recall, f1, perplexity, results, status, error, created_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.JobID, r.BotID, r.DatasetID, r.TrainingExamplesCount, r.TestExamplesCount,
		r.Accuracy, r.Precision, r.Recall, r.F1, r.Perplexity, results, r.Status, r.Error, r.CreatedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert training report: %w", err)
	}
	return nil
}

func (s *PostgresReportStore) Get(ctx context.Context, id uuid.UUID) (*models.TrainingReport, error) {
	row := s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM training_reports WHERE id = $1`, id)
	r, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get training report: %w", err)
	}
	return r, nil
}

func (s *PostgresReportStore) Update(ctx context.Context, r *models.TrainingReport) error {
	results, err := json.Marshal(r.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE training_reports SET training_examples_count=$2, test_examples_count=$3,
			accuracy=$4, precision_score=$5, recall=$6, f1=$7, perplexity=$8,
			results=$9, status=$10, error=$11, completed_at=$12
		 WHERE id = $1`,
		r.ID, r.TrainingExamplesCount, r.TestExamplesCount,
		r.Accuracy, r.Precision, r.Recall, r.F1, r.Perplexity,
		results, r.Status, r.Error, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update training report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresReportStore) Query(ctx context.Context, f ReportFilter) ([]models.TrainingReport, error) {
	sql := `SELECT ` + reportColumns + ` FROM training_reports WHERE 1=1`
	var args []any
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		sql += fmt.Sprintf(" AND bot_id IN (SELECT id FROM bots WHERE owner_id = $%d)", len(args))
	}
	if f.JobID != nil {
		args = append(args, *f.JobID)
		sql += fmt.Sprintf(" AND job_id = $%d", len(args))
	}
	if f.BotID != nil {
		args = append(args, *f.BotID)
		sql += fmt.Sprintf(" AND bot_id = $%d", len(args))
	}
	if f.DatasetID != nil {
		args = append(args, *f.DatasetID)
		sql += fmt.Sprintf(" AND dataset_id = $%d", len(args))
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
		return nil, fmt.Errorf("query training reports: %w", err)
	}
	defer rows.Close()

	var out []models.TrainingReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan training report: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReport(row pgx.Row) (*models.TrainingReport, error) {
	var r models.TrainingReport
	var results []byte
	err := row.Scan(&r.ID, &r.JobID, &r.BotID, &r.DatasetID, &r.TrainingExamplesCount, &r.TestExamplesCount,
		&r.Accuracy, &r.Precision, &r.Recall, &r.F1, &r.Perplexity, &results, &r.Status, &r.Error,
		&r.CreatedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &r.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	return &r, nil
}
