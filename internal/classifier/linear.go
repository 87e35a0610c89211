package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Skufu/tbrisk/internal/symptom"
)

// LinearModel is a multinomial logistic regression exported from training:
// one coefficient row and intercept per class, softmax over the scores.
type LinearModel struct {
	Name         string      `json:"name" yaml:"name"`
	Labels       []int       `json:"classes" yaml:"classes"`
	Coefficients [][]float64 `json:"coefficients" yaml:"coefficients"`
	Intercepts   []float64   `json:"intercepts" yaml:"intercepts"`
}

// LoadModel reads a .json, .yaml or .yml artifact and validates its shape.
func LoadModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	m := &LinearModel{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.NewDecoder(bytes.NewReader(data)).Decode(m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, m)
	default:
		return nil, fmt.Errorf("unsupported model artifact %q: want .json, .yaml or .yml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return m, nil
}

// Validate checks that the model can score a symptom.NumFeatures-wide row.
func (m *LinearModel) Validate() error {
	if len(m.Labels) < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", len(m.Labels))
	}
	if len(m.Coefficients) != len(m.Labels) {
		return fmt.Errorf("%d coefficient rows for %d classes", len(m.Coefficients), len(m.Labels))
	}
	if len(m.Intercepts) != len(m.Labels) {
		return fmt.Errorf("%d intercepts for %d classes", len(m.Intercepts), len(m.Labels))
	}

	seen := make(map[int]bool, len(m.Labels))
	for i, label := range m.Labels {
		if seen[label] {
			return fmt.Errorf("duplicate class %d", label)
		}
		seen[label] = true

		if len(m.Coefficients[i]) != symptom.NumFeatures {
			return fmt.Errorf("class %d has %d coefficients, want %d", label, len(m.Coefficients[i]), symptom.NumFeatures)
		}
		for _, w := range m.Coefficients[i] {
			if !finite(w) {
				return fmt.Errorf("class %d has a non-finite coefficient", label)
			}
		}
		if !finite(m.Intercepts[i]) {
			return fmt.Errorf("class %d has a non-finite intercept", label)
		}
	}
	return nil
}

// Classes returns the class codes in model order.
func (m *LinearModel) Classes() []int {
	out := make([]int, len(m.Labels))
	copy(out, m.Labels)
	return out
}

// Predict returns the class with the highest score; ties go to the earlier
// class.
func (m *LinearModel) Predict(row []float64) (int, error) {
	scores, err := m.scores(row)
	if err != nil {
		return 0, err
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return m.Labels[best], nil
}

// PredictProba returns the softmax of the class scores, in model order.
func (m *LinearModel) PredictProba(row []float64) ([]float64, error) {
	scores, err := m.scores(row)
	if err != nil {
		return nil, err
	}

	top := scores[0]
	for _, s := range scores[1:] {
		top = math.Max(top, s)
	}

	var sum float64
	proba := make([]float64, len(scores))
	for i, s := range scores {
		proba[i] = math.Exp(s - top)
		sum += proba[i]
	}
	for i := range proba {
		proba[i] /= sum
	}
	return proba, nil
}

func (m *LinearModel) scores(row []float64) ([]float64, error) {
	if len(row) != symptom.NumFeatures {
		return nil, fmt.Errorf("row has %d columns, want %d", len(row), symptom.NumFeatures)
	}
	if len(m.Labels) == 0 {
		return nil, errors.New("model has no classes")
	}
	scores := make([]float64, len(m.Labels))
	for i, coef := range m.Coefficients {
		s := m.Intercepts[i]
		for j, x := range row {
			s += coef[j] * x
		}
		scores[i] = s
	}
	return scores, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
