// Package inference talks to a local Ollama instance: chat completion for
// summary generation, the tag listing for model discovery, and a rolling
// window of call latencies.
package inference

import "fmt"

// Options is the sampling configuration passed through to the model. The
// field set and JSON keys match the Ollama options object; all five keys are
// always sent.
type Options struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	RepeatLastN   int     `json:"repeat_last_n"`
	NumPredict    int     `json:"num_predict"`
}

// DefaultOptions returns the sampling defaults applied when a request omits
// a field.
func DefaultOptions() Options {
	return Options{
		Temperature:   0.5,
		TopP:          0.8,
		RepeatPenalty: 1.1,
		RepeatLastN:   32,
		NumPredict:    1000,
	}
}

// Parameters is the full user-controlled inference request configuration.
// The pipeline bounds-checks it and passes it through without interpreting
// the values further.
type Parameters struct {
	Model    string
	Language string // normalized tag or "auto"
	Options
}

// Sampling bounds. Values outside these are rejected rather than clamped so
// a typo'd request fails loudly instead of producing a silently different
// summary.
const (
	MaxTemperature   = 2.0
	MinTopP          = 0.0 // exclusive
	MaxTopP          = 1.0
	MinRepeatPenalty = 0.5
	MaxRepeatPenalty = 2.0
	MinRepeatLastN   = -1 // -1 means the full context window
	MaxRepeatLastN   = 512
	MinNumPredict    = 1
	MaxNumPredict    = 8192
)

func (p Parameters) Validate() error {
	if p.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if p.Temperature < 0 || p.Temperature > MaxTemperature {
		return fmt.Errorf("temperature %v out of range [0, %v]", p.Temperature, MaxTemperature)
	}
	if p.TopP <= MinTopP || p.TopP > MaxTopP {
		return fmt.Errorf("top_p %v out of range (0, %v]", p.TopP, MaxTopP)
	}
	if p.RepeatPenalty < MinRepeatPenalty || p.RepeatPenalty > MaxRepeatPenalty {
		return fmt.Errorf("repeat_penalty %v out of range [%v, %v]", p.RepeatPenalty, MinRepeatPenalty, MaxRepeatPenalty)
	}
	if p.RepeatLastN < MinRepeatLastN || p.RepeatLastN > MaxRepeatLastN {
		return fmt.Errorf("repeat_last_n %d out of range [%d, %d]", p.RepeatLastN, MinRepeatLastN, MaxRepeatLastN)
	}
	if p.NumPredict < MinNumPredict || p.NumPredict > MaxNumPredict {
		return fmt.Errorf("num_predict %d out of range [%d, %d]", p.NumPredict, MinNumPredict, MaxNumPredict)
	}
	return nil
}
