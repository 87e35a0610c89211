// Package classifier adapts the trained risk model to the screening domain:
// it maps the model's class code to a risk level and derives a confidence.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Skufu/tbrisk/internal/symptom"
)

// ErrInternal marks failures that are the server's fault: the model raised,
// or it produced output the adapter cannot interpret.
var ErrInternal = errors.New("classifier internal error")

// Model is the trained collaborator. Implementations must be safe for
// concurrent use.
type Model interface {
	Predict(row []float64) (int, error)
	PredictProba(row []float64) ([]float64, error)
}

// RiskLevel is the only classifier output exposed to callers.
type RiskLevel string

const (
	Low    RiskLevel = "Low"
	Medium RiskLevel = "Medium"
	High   RiskLevel = "High"
)

var riskLevels = map[int]RiskLevel{
	0: Low,
	1: Medium,
	2: High,
}

// RiskLevelFor maps a model class code to its risk level.
func RiskLevelFor(class int) (RiskLevel, bool) {
	level, ok := riskLevels[class]
	return level, ok
}

// Elevated reports whether the level warrants a hospital recommendation.
func (r RiskLevel) Elevated() bool {
	return r == Medium || r == High
}

// Assessment is the result of one classification.
type Assessment struct {
	RiskLevel         RiskLevel
	ConfidencePercent float64
}

// Classifier wraps a loaded Model.
type Classifier struct {
	model Model
}

// New returns a Classifier backed by model.
func New(model Model) *Classifier {
	return &Classifier{model: model}
}

// Classify runs the model on v. The call is synchronous, not cancellable and
// not retried; a model failure or an unmapped class is wrapped in ErrInternal.
func (c *Classifier) Classify(ctx context.Context, v symptom.Vector) (Assessment, error) {
	row := v.Row()

	class, err := c.model.Predict(row)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: predict: %w", ErrInternal, err)
	}
	level, ok := RiskLevelFor(class)
	if !ok {
		return Assessment{}, fmt.Errorf("%w: unmapped class %d", ErrInternal, class)
	}

	proba, err := c.model.PredictProba(row)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: predict proba: %w", ErrInternal, err)
	}
	top, err := maxProbability(proba)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	return Assessment{
		RiskLevel:         level,
		ConfidencePercent: roundPercent(top),
	}, nil
}

// Probe classifies the all-absent vector. Startup uses it to prove the
// model is callable before traffic is accepted.
func (c *Classifier) Probe(ctx context.Context) (Assessment, error) {
	return c.Classify(ctx, symptom.Vector{})
}

func maxProbability(proba []float64) (float64, error) {
	if len(proba) == 0 {
		return 0, errors.New("empty probability distribution")
	}
	top := math.Inf(-1)
	for i, p := range proba {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return 0, fmt.Errorf("probability %d out of range: %v", i, p)
		}
		if p > top {
			top = p
		}
	}
	return top, nil
}

func roundPercent(p float64) float64 {
	return math.Round(p*100*100) / 100
}
