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

type PostgresJobStore struct {
	db *pgxpool.Pool
}

func NewPostgresJobStore(db *pgxpool.Pool) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

const jobColumns = `id, bot_id, training_file_id, validation_file_id, provider_job_id, status,
	fine_tuned_model_id, error, hyperparameters, metadata,
	validation_started_at, validation_ended_at, training_started_at, training_ended_at, finished_at,
	validation_duration_sec, training_duration_sec, total_duration_sec,
	trained_tokens, estimated_cost_usd, parent_job_id, created_at`

func (s *PostgresJobStore) Create(ctx context.Context, j *models.FineTuneJob) error {
	jobErr, hp, meta, err := marshalJobJSON(j)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO fine_tune_jobs (id, bot_id, training_file_id, validation_file_id, provider_job_id, status,
			fine_tuned_model_id, error, hyperparameters, metadata,
			validation_started_at, validation_ended_at, training_started_at, training_ended_at, finished_at,
			validation_duration_sec, training_duration_sec, total_duration_sec,
			trained_tokens, estimated_cost_usd, parent_job_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		j.ID, j.BotID, j.TrainingFileID, j.ValidationFileID, j.ProviderJobID, j.Status,
		j.FineTunedModelID, jobErr, hp, meta,
		j.ValidationStartedAt, j.ValidationEndedAt, j.TrainingStartedAt, j.TrainingEndedAt, j.FinishedAt,
		j.ValidationDurationSec, j.TrainingDurationSec, j.TotalDurationSec,
		j.TrainedTokens, j.EstimatedCostUSD, j.ParentJobID, j.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fine-tune job: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id uuid.UUID) (*models.FineTuneJob, error) {
	row := s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM fine_tune_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get fine-tune job: %w", err)
	}
	return j, nil
}

func (s *PostgresJobStore) Update(ctx context.Context, j *models.FineTuneJob) error {
	jobErr, hp, meta, err := marshalJobJSON(j)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE fine_tune_jobs SET training_file_id=$2, validation_file_id=$3, provider_job_id=$4, status=$5,
			fine_tuned_model_id=$6, error=$7, hyperparameters=$8, metadata=$9,
			validation_started_at=$10, validation_ended_at=$11, training_started_at=$12, training_ended_at=$13, finished_at=$14,
			validation_duration_sec=$15, training_duration_sec=$16, total_duration_sec=$17,
			trained_tokens=$18, estimated_cost_usd=$19, parent_job_id=$20
		 WHERE id = $1`,
		j.ID, j.TrainingFileID, j.ValidationFileID, j.ProviderJobID, j.Status,
		j.FineTunedModelID, jobErr, hp, meta,
		j.ValidationStartedAt, j.ValidationEndedAt, j.TrainingStartedAt, j.TrainingEndedAt, j.FinishedAt,
		j.ValidationDurationSec, j.TrainingDurationSec, j.TotalDurationSec,
		j.TrainedTokens, j.EstimatedCostUSD, j.ParentJobID,
	)
	if err != nil {
		return fmt.Errorf("update fine-tune job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresJobStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM fine_tune_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fine-tune job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresJobStore) Query(ctx context.Context, f JobFilter) ([]models.FineTuneJob, error) {
	sql := `SELECT ` + jobColumns + ` FROM fine_tune_jobs WHERE 1=1`
	var args []any
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		sql += fmt.Sprintf(" AND bot_id IN (SELECT id FROM bots WHERE owner_id = $%d)", len(args))
	}
	if f.BotID != nil {
		args = append(args, *f.BotID)
		sql += fmt.Sprintf(" AND bot_id = $%d", len(args))
	}
	if f.ParentJobID != nil {
		args = append(args, *f.ParentJobID)
		sql += fmt.Sprintf(" AND parent_job_id = $%d", len(args))
	}
	if len(f.Statuses) > 0 {
		args = append(args, f.Statuses)
		sql += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	sql += " ORDER BY created_at ASC"
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
		return nil, fmt.Errorf("query fine-tune jobs: %w", err)
	}
	defer rows.Close()

	var out []models.FineTuneJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fine-tune job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func marshalJobJSON(j *models.FineTuneJob) (jobErr, hp, meta []byte, err error) {
	if j.Error != nil {
		jobErr, err = json.Marshal(j.Error)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal job error: %w", err)
		}
	}
	hp, err = json.Marshal(j.Hyperparameters)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal hyperparameters: %w", err)
	}
	meta, err = json.Marshal(j.Metadata)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal job metadata: %w", err)
	}
	return jobErr, hp, meta, nil
}

func scanJob(row pgx.Row) (*models.FineTuneJob, error) {
	var j models.FineTuneJob
	var jobErr, hp, meta []byte
	err := row.Scan(&j.ID, &j.BotID, &j.TrainingFileID, &j.ValidationFileID, &j.ProviderJobID, &j.Status,
		&j.FineTunedModelID, &jobErr, &hp, &meta,
		&j.ValidationStartedAt, &j.ValidationEndedAt, &j.TrainingStartedAt, &j.TrainingEndedAt, &j.FinishedAt,
		&j.ValidationDurationSec, &j.TrainingDurationSec, &j.TotalDurationSec,
		&j.TrainedTokens, &j.EstimatedCostUSD, &j.ParentJobID, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(jobErr) > 0 {
		j.Error = &models.JobError{}
		if err := json.Unmarshal(jobErr, j.Error); err != nil {
			return nil, fmt.Errorf("unmarshal job error: %w", err)
		}
	}
	if len(hp) > 0 {
		if err := json.Unmarshal(hp, &j.Hyperparameters); err != nil {
			return nil, fmt.Errorf("unmarshal hyperparameters: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &j.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal job metadata: %w", err)
		}
	}
	return &j, nil
}
