package provider

// trainingCostPer1K is the announced fine-tuning price in USD per 1K
// trained tokens, keyed by base model.
var trainingCostPer1K = map[string]float64{
	"gpt-3.5-turbo":      0.008,
	"gpt-3.5-turbo-0125": 0.008,
	"gpt-4o-mini":        0.003,
	"gpt-4o":             0.025,
	"davinci-002":        0.006,
	"babbage-002":        0.0004,
}

const defaultTrainingCostPer1K = 0.008

// TrainingCost estimates the cost of a fine-tuning run from its trained
// token count.
func TrainingCost(baseModel string, trainedTokens int) float64 {
	rate, ok := trainingCostPer1K[baseModel]
	if !ok {
		rate = defaultTrainingCostPer1K
	}
	return float64(trainedTokens) / 1000.0 * rate
}
