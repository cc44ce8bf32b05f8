// Package provider abstracts the external fine-tuning and chat-completion
// provider. The pipeline core depends only on these contracts; the OpenAI
// implementation is the production backend, the Anthropic one covers chat
// completion for dataset generation.
package provider

import (
	"context"
	"time"

	"github.com/botforgehq/botforge/internal/models"
)

// Message is a chat turn sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter is the completion subset of the provider surface. Dataset
// generation and model evaluation need nothing more.
type ChatCompleter interface {
	ChatComplete(ctx context.Context, model string, messages []Message) (string, error)
}

// SubmitJobRequest starts a fine-tuning run on an uploaded training file.
type SubmitJobRequest struct {
	TrainingFileID   string
	ValidationFileID string
	BaseModel        string
	Suffix           string
	Hyperparameters  models.Hyperparameters
}

// Job is the provider's view of a fine-tuning run.
type Job struct {
	ID               string
	Status           models.JobStatus
	FineTunedModelID string
	TrainedTokens    int
	FinishedAt       *time.Time
	Error            *models.JobError
}

// Client is the full provider surface consumed by the job lifecycle manager.
type Client interface {
	ChatCompleter
	CreateFile(ctx context.Context, name string, data []byte) (string, error)
	SubmitJob(ctx context.Context, req SubmitJobRequest) (*Job, error)
	GetJob(ctx context.Context, providerJobID string) (*Job, error)
	CancelJob(ctx context.Context, providerJobID string) error
}
