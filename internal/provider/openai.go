package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/botforgehq/botforge/internal/models"
)

// OpenAIClient implements Client against the OpenAI fine-tuning and chat
// completion APIs.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(apiKey)}
}

// NewOpenAIClientWithBaseURL points the client at a custom endpoint.
// Used by tests against a mocked HTTP transport.
func NewOpenAIClientWithBaseURL(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) CreateFile(ctx context.Context, name string, data []byte) (string, error) {
	file, err := c.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: openai.PurposeFineTune,
	})
	if err != nil {
		return "", fmt.Errorf("openai create file: %w", err)
	}
	return file.ID, nil
}

func (c *OpenAIClient) SubmitJob(ctx context.Context, req SubmitJobRequest) (*Job, error) {
	oReq := openai.FineTuningJobRequest{
		TrainingFile:   req.TrainingFileID,
		ValidationFile: req.ValidationFileID,
		Model:          req.BaseModel,
		Suffix:         req.Suffix,
		Hyperparameters: &openai.Hyperparameters{
			Epochs:                 req.Hyperparameters.NEpochs.ProviderValue(),
			BatchSize:              req.Hyperparameters.BatchSize.ProviderValue(),
			LearningRateMultiplier: req.Hyperparameters.LearningRateMultiplier.ProviderValue(),
		},
	}

	resp, err := c.client.CreateFineTuningJob(ctx, oReq)
	if err != nil {
		return nil, fmt.Errorf("openai submit job: %w", err)
	}
	return mapFineTuningJob(resp), nil
}

func (c *OpenAIClient) GetJob(ctx context.Context, providerJobID string) (*Job, error) {
	resp, err := c.client.RetrieveFineTuningJob(ctx, providerJobID)
	if err != nil {
		return nil, fmt.Errorf("openai get job: %w", err)
	}
	return mapFineTuningJob(resp), nil
}

func (c *OpenAIClient) CancelJob(ctx context.Context, providerJobID string) error {
	if _, err := c.client.CancelFineTuningJob(ctx, providerJobID); err != nil {
		return fmt.Errorf("openai cancel job: %w", err)
	}
	return nil
}

func (c *OpenAIClient) ChatComplete(ctx context.Context, model string, messages []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func mapFineTuningJob(j openai.FineTuningJob) *Job {
	job := &Job{
		ID:               j.ID,
		Status:           mapStatus(j.Status),
		FineTunedModelID: j.FineTunedModel,
		TrainedTokens:    j.TrainedTokens,
	}
	if j.FinishedAt > 0 {
		t := time.Unix(j.FinishedAt, 0).UTC()
		job.FinishedAt = &t
	}
	if job.Status == models.JobStatusFailed {
		// The retrieve endpoint does not expose error detail through the
		// SDK struct, so record a generic one.
		job.Error = &models.JobError{
			Message: "fine-tuning job failed at provider",
			Type:    "provider_error",
		}
	}
	return job
}

func mapStatus(remote string) models.JobStatus {
	switch remote {
	case "queued", "pending":
		return models.JobStatusPending
	case "validating_files":
		return models.JobStatusValidatingFiles
	case "running":
		return models.JobStatusRunning
	case "succeeded":
		return models.JobStatusSucceeded
	case "failed":
		return models.JobStatusFailed
	case "cancelled":
		return models.JobStatusCancelled
	}
	return models.JobStatusPending
}

// APIErrorDetail extracts the provider's structured error from a wrapped
// request failure, falling back to the plain message.
func APIErrorDetail(err error) *models.JobError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		detail := &models.JobError{
			Message: apiErr.Message,
			Type:    apiErr.Type,
		}
		if apiErr.Code != nil {
			detail.Code = fmt.Sprintf("%v", apiErr.Code)
		}
		if apiErr.Param != nil {
			detail.Param = *apiErr.Param
		}
		return detail
	}
	return &models.JobError{Message: err.Error()}
}
