package llm

// costPerToken stores per-1K-token pricing for the models this
// service routes to. Prices in USD per 1K tokens: [input, output].
var costPerToken = map[string][2]float64{
	// OpenAI
	"gpt-4o":                 {0.005, 0.015},
	"gpt-4o-mini":            {0.00015, 0.0006},
	"text-embedding-3-small": {0.00002, 0},
	"text-embedding-3-large": {0.00013, 0},

	// Anthropic
	"claude-3-haiku-20240307":  {0.00025, 0.00125},
	"claude-sonnet-4-20250514": {0.003, 0.015},
}

func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	prices, ok := costPerToken[model]
	if !ok {
		return 0
	}
	inputCost := float64(inputTokens) / 1000.0 * prices[0]
	outputCost := float64(outputTokens) / 1000.0 * prices[1]
	return inputCost + outputCost
}
