package generation

import "context"

// Options are the sampling parameters for one generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Generator sends an assembled prompt to an external generative model and
// returns the produced text. An empty response is a failure, not an answer.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
