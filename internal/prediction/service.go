// Package prediction composes validation, classification and hospital lookup
// into one screening result.
package prediction

import (
	"context"

	"github.com/Skufu/tbrisk/internal/classifier"
	"github.com/Skufu/tbrisk/internal/hospital"
	"github.com/Skufu/tbrisk/internal/symptom"
	"github.com/Skufu/tbrisk/internal/textnorm"
)

// Disclaimer accompanies every prediction and every server error.
const Disclaimer = "This system provides early TB risk screening only. " +
	"It does not diagnose tuberculosis. " +
	"Please consult a qualified healthcare professional."

// Classifier scores a validated vector.
type Classifier interface {
	Classify(ctx context.Context, v symptom.Vector) (classifier.Assessment, error)
	Probe(ctx context.Context) (classifier.Assessment, error)
}

// Directory recommends hospitals for a location.
type Directory interface {
	Recommend(district, state string, limit int) []hospital.Hospital
}

// Result is the outcome of one screening. Hospitals is never nil.
type Result struct {
	RiskLevel         classifier.RiskLevel
	ConfidencePercent float64
	Hospitals         []hospital.Hospital
}

// Location is the normalized, optional place of the patient.
type Location struct {
	District string
	State    string
}

// Complete reports whether both fields were supplied.
func (l Location) Complete() bool {
	return l.District != "" && l.State != ""
}

// LocationFrom extracts district and state from a decoded request body.
// Missing or non-string fields are treated as unspecified.
func LocationFrom(payload map[string]any) Location {
	return Location{
		District: textnorm.Normalize(payload["district"], textnorm.MaxLength),
		State:    textnorm.Normalize(payload["state"], textnorm.MaxLength),
	}
}

// Service is stateless across calls; its collaborators are read-only.
type Service struct {
	classifier Classifier
	directory  Directory
	limit      int
}

// NewService wires the two shared, immutable resources.
func NewService(c Classifier, d Directory) *Service {
	return &Service{classifier: c, directory: d, limit: hospital.DefaultLimit}
}

// Predict validates payload, classifies it and, for Medium or High risk with
// a complete location, recommends hospitals. Validation errors come back
// unchanged; classifier failures wrap classifier.ErrInternal.
func (s *Service) Predict(ctx context.Context, payload any) (Result, error) {
	vector, err := symptom.Validate(payload)
	if err != nil {
		return Result{}, err
	}

	assessment, err := s.classifier.Classify(ctx, vector)
	if err != nil {
		return Result{}, err
	}

	// Validate guarantees a map here.
	loc := LocationFrom(payload.(map[string]any))

	hospitals := []hospital.Hospital{}
	if assessment.RiskLevel.Elevated() && loc.Complete() {
		hospitals = s.directory.Recommend(loc.District, loc.State, s.limit)
	}

	return Result{
		RiskLevel:         assessment.RiskLevel,
		ConfidencePercent: assessment.ConfidencePercent,
		Hospitals:         hospitals,
	}, nil
}

// Ping runs a probe classification.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.classifier.Probe(ctx)
	return err
}
