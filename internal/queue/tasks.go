package queue

const (
	TypeDatasetGenerate = "dataset:generate"
	TypeFinetunePoll    = "finetune:poll"
	TypeReportEvaluate  = "report:evaluate"
)

type DatasetGeneratePayload struct {
	DatasetID string `json:"dataset_id"`
}

type FinetunePollPayload struct {
	JobID string `json:"job_id"`
}

type ReportEvaluatePayload struct {
	JobID string `json:"job_id"`
}
