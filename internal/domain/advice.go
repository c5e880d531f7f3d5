package domain

// Advice is a short narrative about a recommendation, with provider token usage.
type Advice struct {
	Text         string
	Model        string
	PromptTokens int
	TotalTokens  int
}
