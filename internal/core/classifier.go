package core

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Classifier is the boundary to the optional trained model. Implementations
// must be deterministic: identical feature sets yield identical output.
// Absence of a classifier never crashes the pipeline — the scorer degrades to
// heuristic-only mode.
type Classifier interface {
	// Predict returns the model's class label for a feature set.
	Predict(fs FeatureSet) (RiskLevel, error)
	// PredictProbability returns the model's risk probability in [0, 1].
	PredictProbability(fs FeatureSet) (float64, error)
}

// RunClassifier invokes the optional model for a feature set. A nil or
// failing classifier returns degraded = true so the caller marks the finding
// heuristic-only instead of silently treating it as model-confirmed.
func RunClassifier(fs FeatureSet, clf Classifier) (label RiskLevel, prob *float64, degraded bool) {
	if clf == nil {
		return RiskLow, nil, true
	}
	label, err := clf.Predict(fs)
	if err != nil {
		return RiskLow, nil, true
	}
	if p, err := clf.PredictProbability(fs); err == nil {
		return label, &p, false
	}
	return label, nil, false
}

// ModelColumn renders a finding's classifier output for report CSVs.
// Degraded runs read "Unavailable" so a heuristic-only report is never
// mistaken for a model-confirmed one.
func ModelColumn(f *Finding) string {
	if f.Degraded {
		return "Unavailable"
	}
	if f.ModelProbability != nil {
		return fmt.Sprintf("%s (%.2f)", f.ModelLabel, *f.ModelProbability)
	}
	return f.ModelLabel.String()
}

// ModelFile is a classifier backed by a weight artifact exported from offline
// training. The artifact is a black box to the pipeline: a logistic scoring
// function from the canonical feature vector to a probability, with label
// cutoffs chosen at training time.
type ModelFile struct {
	ModelDomain string             `json:"domain"`
	Bias        float64            `json:"bias"`
	Weights     map[string]float64 `json:"weights"`
	Cutoffs     struct {
		High         float64 `json:"high"`
		Intermediate float64 `json:"intermediate"`
	} `json:"cutoffs"`
}

// LoadModel reads a classifier artifact from disk. A missing or unreadable
// artifact returns an error wrapping ErrClassifierUnavailable so callers can
// fall back to heuristic-only scoring.
func LoadModel(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrClassifierUnavailable, path, err)
	}

	var m ModelFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrClassifierUnavailable, path, err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("%w: %s has no weights", ErrClassifierUnavailable, path)
	}
	if m.Cutoffs.High == 0 {
		m.Cutoffs.High = 0.8
	}
	if m.Cutoffs.Intermediate == 0 {
		m.Cutoffs.Intermediate = 0.4
	}
	return &m, nil
}

// PredictProbability applies the logistic scoring function to the feature
// vector. Numeric features contribute weight*value, booleans weight*{0,1},
// and categorical features match a "name=value" weight key.
func (m *ModelFile) PredictProbability(fs FeatureSet) (float64, error) {
	z := m.Bias
	for _, f := range fs.Features() {
		switch v := f.Value.(type) {
		case float64:
			z += m.Weights[f.Name] * v
		case int:
			z += m.Weights[f.Name] * float64(v)
		case bool:
			if v {
				z += m.Weights[f.Name]
			}
		case string:
			z += m.Weights[f.Name+"="+v]
		}
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

// Predict maps the probability to a class label using the artifact's cutoffs.
func (m *ModelFile) Predict(fs FeatureSet) (RiskLevel, error) {
	p, err := m.PredictProbability(fs)
	if err != nil {
		return RiskLow, err
	}
	switch {
	case p >= m.Cutoffs.High:
		return RiskHigh, nil
	case p >= m.Cutoffs.Intermediate:
		return RiskIntermediate, nil
	default:
		return RiskLow, nil
	}
}
