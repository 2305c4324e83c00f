package ml

import (
	"errors"
	"fmt"
)

// DecisionTree is a fitted tree in flat node form. Node 0 is the root; a
// split sends features[FeatureIdx] <= Threshold to LeftChild.
type DecisionTree struct {
	schema
	Nodes []TreeNode `json:"nodes"`

	nClasses int
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassLabel int       `json:"class_label"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

func (dt *DecisionTree) Name() string { return KindDecisionTree }

func (dt *DecisionTree) ClassIndices() []int { return dt.classIndices(dt.nClasses) }

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	if len(dt.Nodes) == 0 {
		return 0, errors.New("model not loaded")
	}
	if err := dt.checkFeatures(features); err != nil {
		return 0, err
	}
	leaf, err := walk(dt.Nodes, features)
	if err != nil {
		return 0, err
	}
	pos := leaf.ClassLabel
	if len(leaf.Value) > 0 {
		pos = argmax(leaf.Value)
	}
	return dt.classAt(pos), nil
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.Nodes) == 0 {
		return errors.New("model not loaded")
	}
	return writeJSON(path, dt)
}

func (dt *DecisionTree) Load(path string) error {
	var loaded DecisionTree
	if err := readJSON(path, &loaded); err != nil {
		return err
	}
	n := len(loaded.Classes)
	if n == 0 {
		n = inferClasses(loaded.Nodes)
	}
	if err := loaded.validate(n); err != nil {
		return err
	}
	if err := validateTree(loaded.Nodes, n, loaded.NFeatures); err != nil {
		return err
	}
	loaded.nClasses = n
	*dt = loaded
	return nil
}

func walk(nodes []TreeNode, features []float64) (*TreeNode, error) {
	idx := 0
	// a valid tree reaches a leaf in at most len(nodes) steps
	for steps := 0; steps <= len(nodes); steps++ {
		node := &nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
	return nil, errors.New("invalid tree state: cycle")
}

// distribution returns the normalised class distribution of the leaf the
// features reach. A leaf without counts votes for its ClassLabel.
func distribution(nodes []TreeNode, features []float64, nClasses int) ([]float64, error) {
	leaf, err := walk(nodes, features)
	if err != nil {
		return nil, err
	}
	dist := make([]float64, nClasses)
	if len(leaf.Value) == 0 {
		dist[leaf.ClassLabel] = 1
		return dist, nil
	}
	total := 0.0
	for _, v := range leaf.Value {
		total += v
	}
	if total <= 0 {
		dist[argmax(leaf.Value)] = 1
		return dist, nil
	}
	for i, v := range leaf.Value {
		dist[i] = v / total
	}
	return dist, nil
}

func inferClasses(nodes []TreeNode) int {
	n := 0
	for _, node := range nodes {
		if !node.IsLeaf {
			continue
		}
		if len(node.Value) > n {
			n = len(node.Value)
		}
		if node.ClassLabel+1 > n {
			n = node.ClassLabel + 1
		}
	}
	return n
}

func validateTree(nodes []TreeNode, nClasses, nFeatures int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrInvalidModel)
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if node.ClassLabel < 0 || node.ClassLabel >= nClasses {
				return fmt.Errorf("%w: node %d: class %d out of range", ErrInvalidModel, i, node.ClassLabel)
			}
			if len(node.Value) > 0 && len(node.Value) != nClasses {
				return fmt.Errorf("%w: node %d: %d values for %d classes", ErrInvalidModel, i, len(node.Value), nClasses)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= nFeatures {
			return fmt.Errorf("%w: node %d: feature %d out of range", ErrInvalidModel, i, node.FeatureIdx)
		}
		if node.LeftChild <= 0 || node.LeftChild >= len(nodes) || node.RightChild <= 0 || node.RightChild >= len(nodes) {
			return fmt.Errorf("%w: node %d: child out of range", ErrInvalidModel, i)
		}
	}
	return nil
}
