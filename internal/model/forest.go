package model

import (
	"fmt"
	"math"

	"weather2go/internal/types"
)

// Model kinds carried in the artifact.
const (
	KindClassifier = "classifier"
	KindRegressor  = "regressor"
)

// Feature kinds carried in the artifact.
const (
	FeatureNumeric     = "numeric"
	FeatureCategorical = "categorical"
)

// SupportedFormatVersion is the only artifact layout this package reads.
const SupportedFormatVersion = 1

const leafNode = -1

// Feature describes one model input column, in training order.
type Feature struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	// Encoder names the label encoder that turns a categorical value into a
	// code. Empty for numeric features.
	Encoder string `json:"encoder,omitempty"`
}

// Tree is a single decision tree in flattened array layout. Node 0 is the
// root. For an internal node i, samples with x[Feature[i]] <= Threshold[i]
// go to ChildrenLeft[i], the rest to ChildrenRight[i]. Leaves have both
// children set to -1.
//
// Value[i] holds per-class weights for classifiers and a single value for
// regressors.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is a tree-ensemble model (random forest). It is immutable after
// validation and safe for concurrent Predict calls.
type Forest struct {
	FormatVersion int       `json:"format_version"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	Classes       []int     `json:"classes,omitempty"`
	Features      []Feature `json:"features"`
	Trees         []Tree    `json:"trees"`
}

// NumFeatures returns the expected input width.
func (f *Forest) NumFeatures() int {
	return len(f.Features)
}

// OutputKind reports whether Predict yields a class or a score.
func (f *Forest) OutputKind() types.OutputKind {
	if f.Kind == KindRegressor {
		return types.OutputScore
	}
	return types.OutputClass
}

// Validate checks the structural consistency of the ensemble.
func (f *Forest) Validate() error {
	if f.FormatVersion != SupportedFormatVersion {
		return fmt.Errorf("unsupported format_version %d", f.FormatVersion)
	}
	if f.Kind != KindClassifier && f.Kind != KindRegressor {
		return fmt.Errorf("unknown model kind %q", f.Kind)
	}
	if len(f.Features) == 0 {
		return fmt.Errorf("model declares no features")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("model has no trees")
	}

	seen := make(map[string]struct{}, len(f.Features))
	for i, feat := range f.Features {
		if feat.Name == "" {
			return fmt.Errorf("feature %d has no name", i)
		}
		if _, dup := seen[feat.Name]; dup {
			return fmt.Errorf("duplicate feature %q", feat.Name)
		}
		seen[feat.Name] = struct{}{}
		switch feat.Kind {
		case FeatureNumeric:
		case FeatureCategorical:
			if feat.Encoder == "" {
				return fmt.Errorf("categorical feature %q names no encoder", feat.Name)
			}
		default:
			return fmt.Errorf("feature %q has unknown kind %q", feat.Name, feat.Kind)
		}
	}

	width := 1
	if f.Kind == KindClassifier {
		if len(f.Classes) == 0 {
			return fmt.Errorf("classifier declares no classes")
		}
		width = len(f.Classes)
	}

	for ti := range f.Trees {
		if err := f.Trees[ti].validate(len(f.Features), width, f.Kind == KindClassifier); err != nil {
			return fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	return nil
}

func (t *Tree) validate(numFeatures, valueWidth int, weighted bool) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays have different lengths")
	}
	for i := 0; i < n; i++ {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == leafNode || right == leafNode {
			if left != right {
				return fmt.Errorf("node %d has exactly one child", i)
			}
			if len(t.Value[i]) != valueWidth {
				return fmt.Errorf("leaf %d has %d values, want %d", i, len(t.Value[i]), valueWidth)
			}
			if weighted {
				if err := checkLeafWeights(t.Value[i]); err != nil {
					return fmt.Errorf("leaf %d: %w", i, err)
				}
			}
			continue
		}
		// Children always come after their parent, which also rules out cycles.
		if left <= i || left >= n || right <= i || right >= n {
			return fmt.Errorf("node %d has out-of-range children (%d, %d)", i, left, right)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d, model has %d", i, t.Feature[i], numFeatures)
		}
	}
	return nil
}

// checkLeafWeights requires class weights to be finite, non-negative and not
// all zero.
func checkLeafWeights(weights []float64) error {
	var total float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("invalid class weight %v", w)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("class weights sum to zero")
	}
	return nil
}

// leaf walks the tree for x and returns the leaf's values.
func (t *Tree) leaf(x []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// Predict runs the ensemble on vec.
//
// For classifiers the per-tree leaf weights are normalized and averaged; the
// predicted class is the one with the highest mean probability (first one
// wins on ties) and Score is that probability. For regressors Score is the
// mean leaf value.
//
// A vector whose width differs from NumFeatures fails with
// feature_shape_mismatch before any tree is walked.
func (f *Forest) Predict(vec types.FeatureVector) (*types.RiskPrediction, error) {
	if vec.Len() != f.NumFeatures() {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeFeatureShape,
			fmt.Sprintf("model expects %d features, got %d", f.NumFeatures(), vec.Len()),
			nil,
			map[string]any{"expected": f.NumFeatures(), "actual": vec.Len()},
		)
	}

	if f.Kind == KindRegressor {
		var sum float64
		for i := range f.Trees {
			sum += f.Trees[i].leaf(vec.Values)[0]
		}
		return &types.RiskPrediction{
			Kind:  types.OutputScore,
			Score: sum / float64(len(f.Trees)),
		}, nil
	}

	probs := make([]float64, len(f.Classes))
	for i := range f.Trees {
		weights := f.Trees[i].leaf(vec.Values)
		var total float64
		for _, w := range weights {
			total += w
		}
		if total <= 0 {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeInternalUnexpected,
				"model produced no class weights",
				nil,
				map[string]any{"tree": i},
			)
		}
		for c, w := range weights {
			probs[c] += w / total
		}
	}

	best := 0
	dist := make([]types.ClassProbability, len(f.Classes))
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
		dist[c] = types.ClassProbability{Class: f.Classes[c], Probability: probs[c]}
		if probs[c] > probs[best] {
			best = c
		}
	}

	return &types.RiskPrediction{
		Kind:          types.OutputClass,
		Class:         f.Classes[best],
		Score:         probs[best],
		Probabilities: dist,
	}, nil
}
