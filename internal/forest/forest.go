// Package forest implements inference for a random-forest classifier
// exported from the training pipeline. Trees are stored as flat node arrays
// in pre-order, so every child index is greater than its parent's.
package forest

import (
	"errors"
	"fmt"
)

var (
	// ErrFeatureCount is returned when the input vector has the wrong length
	ErrFeatureCount = errors.New("feature count mismatch")
	// ErrInvalidModel is returned when a loaded artifact is inconsistent
	ErrInvalidModel = errors.New("invalid model")
)

// Predictor maps an aligned feature vector to a class label
type Predictor interface {
	Predict(features []float64) (string, error)
	Classes() []string
}

// Node is one split or leaf of a tree. Samples with
// features[Feature] <= Threshold go Left. Leaves have Left == -1 and carry
// per-class weights in Value, aligned with Forest.Labels.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
}

// Tree is a CART tree; Nodes[0] is the root
type Tree struct {
	Nodes []Node
}

// Forest averages the normalized class distributions of its trees
type Forest struct {
	FeatureNames []string
	Labels       []string
	Trees        []Tree
}

// IsLeaf reports whether the node has no children
func (n Node) IsLeaf() bool {
	return n.Left < 0
}

// Classes returns the labels the forest can predict
func (f *Forest) Classes() []string {
	return append([]string(nil), f.Labels...)
}

// Predict returns the label with the highest mean probability.
// Ties go to the label listed first.
func (f *Forest) Predict(features []float64) (string, error) {
	proba, err := f.PredictProba(features)
	if err != nil {
		return "", err
	}
	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return f.Labels[best], nil
}

// PredictProba returns the mean class distribution, aligned with Labels
func (f *Forest) PredictProba(features []float64) ([]float64, error) {
	if len(features) != len(f.FeatureNames) {
		return nil, fmt.Errorf("%w: model expects %d, got %d", ErrFeatureCount, len(f.FeatureNames), len(features))
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrInvalidModel)
	}

	proba := make([]float64, len(f.Labels))
	for _, t := range f.Trees {
		leaf := t.leaf(features)
		total := 0.0
		for _, w := range leaf.Value {
			total += w
		}
		if total == 0 {
			continue
		}
		for i, w := range leaf.Value {
			proba[i] += w / total
		}
	}
	for i := range proba {
		proba[i] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Info returns a summary of the model for diagnostics
func (f *Forest) Info() map[string]interface{} {
	nodes := 0
	for _, t := range f.Trees {
		nodes += len(t.Nodes)
	}
	return map[string]interface{}{
		"trees":    len(f.Trees),
		"nodes":    nodes,
		"features": len(f.FeatureNames),
		"classes":  f.Classes(),
	}
}

// Validate checks the structural invariants inference relies on
func (f *Forest) Validate() error {
	if len(f.Labels) == 0 {
		return fmt.Errorf("%w: no class labels", ErrInvalidModel)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d is empty", ErrInvalidModel, ti)
		}
		for ni, n := range t.Nodes {
			if n.IsLeaf() {
				if len(n.Value) != len(f.Labels) {
					return fmt.Errorf("%w: tree %d node %d has %d class weights, want %d",
						ErrInvalidModel, ti, ni, len(n.Value), len(f.Labels))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(f.FeatureNames) {
				return fmt.Errorf("%w: tree %d node %d splits on feature %d", ErrInvalidModel, ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("%w: tree %d node %d has children %d/%d", ErrInvalidModel, ti, ni, n.Left, n.Right)
			}
		}
	}
	return nil
}

func (t Tree) leaf(features []float64) Node {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n
		}
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
