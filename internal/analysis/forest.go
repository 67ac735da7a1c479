package analysis

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"fuelwatch/internal/models"
)

// ErrInsufficientData is returned when a batch is too small for the
// multivariate ensemble; the statistical detectors still run.
var ErrInsufficientData = errors.New("not enough records for multivariate detection")

// MinEnsembleRows is the smallest batch the ensemble will train on.
const MinEnsembleRows = 10

const eulerMascheroni = 0.5772156649

// ForestConfig controls the isolation forest ensemble. Seed is fixed so
// repeated runs over the same batch produce identical verdicts.
type ForestConfig struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{Trees: 100, SampleSize: 256, Contamination: 0.10, Seed: 42}
}

// TreeNode fields are exported for gob round-tripping of trained models.
type TreeNode struct {
	SplitAttr int
	SplitVal  float64
	Left      *TreeNode
	Right     *TreeNode
	Size      int
}

// Forest is a trained isolation forest together with the standardization
// parameters of its training matrix.
type Forest struct {
	Config    ForestConfig
	Roots     []*TreeNode
	Means     []float64
	Stds      []float64
	Features  []string
	SampleN   int
	Threshold float64
}

// Fit trains the forest on X (rows of feature vectors). X must be
// non-empty and rectangular.
func (f *Forest) Fit(X [][]float64, features []string) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return errors.New("empty training matrix")
	}
	f.Features = features
	f.standardize(X)
	Z := f.transform(X)

	sample := f.Config.SampleSize
	if sample > len(Z) {
		sample = len(Z)
	}
	f.SampleN = sample
	heightLimit := int(math.Ceil(math.Log2(float64(sample))))
	rng := rand.New(rand.NewSource(f.Config.Seed))

	f.Roots = make([]*TreeNode, f.Config.Trees)
	for t := 0; t < f.Config.Trees; t++ {
		idx := rng.Perm(len(Z))[:sample]
		sub := make([][]float64, sample)
		for i, j := range idx {
			sub[i] = Z[j]
		}
		f.Roots[t] = buildTree(sub, 0, heightLimit, rng)
	}

	scores := f.Scores(X)
	f.Threshold = Quantile(scores, 1-f.Config.Contamination)
	return nil
}

// Scores returns one anomaly score per row of X, in (0, 1); higher means
// more isolated.
func (f *Forest) Scores(X [][]float64) []float64 {
	Z := f.transform(X)
	cn := avgPathLength(f.SampleN)
	out := make([]float64, len(Z))
	for i, row := range Z {
		sum := 0.0
		for _, root := range f.Roots {
			sum += pathLength(root, row, 0)
		}
		mean := sum / float64(len(f.Roots))
		if cn > 0 {
			out[i] = math.Pow(2, -mean/cn)
		} else {
			out[i] = 0.5
		}
	}
	return out
}

// Save serializes the trained forest for persistence alongside the run.
func (f *Forest) Save() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadForest restores a forest previously produced by Save.
func LoadForest(blob []byte) (*Forest, error) {
	var f Forest
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return &f, nil
}

func (f *Forest) standardize(X [][]float64) {
	cols := len(X[0])
	f.Means = make([]float64, cols)
	f.Stds = make([]float64, cols)
	for c := 0; c < cols; c++ {
		col := make([]float64, len(X))
		for r := range X {
			col[r] = X[r][c]
		}
		f.Means[c] = Mean(col)
		f.Stds[c] = StdDev(col)
		if f.Stds[c] == 0 {
			f.Stds[c] = 1
		}
	}
}

func (f *Forest) transform(X [][]float64) [][]float64 {
	Z := make([][]float64, len(X))
	for r := range X {
		row := make([]float64, len(X[r]))
		for c := range X[r] {
			row[c] = (X[r][c] - f.Means[c]) / f.Stds[c]
		}
		Z[r] = row
	}
	return Z
}

func buildTree(X [][]float64, depth, limit int, rng *rand.Rand) *TreeNode {
	if depth >= limit || len(X) <= 1 {
		return &TreeNode{Size: len(X)}
	}
	attr := rng.Intn(len(X[0]))
	lo, hi := X[0][attr], X[0][attr]
	for _, row := range X {
		if row[attr] < lo {
			lo = row[attr]
		}
		if row[attr] > hi {
			hi = row[attr]
		}
	}
	if lo == hi {
		return &TreeNode{Size: len(X)}
	}
	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range X {
		if row[attr] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &TreeNode{
		SplitAttr: attr,
		SplitVal:  split,
		Left:      buildTree(left, depth+1, limit, rng),
		Right:     buildTree(right, depth+1, limit, rng),
	}
}

func pathLength(node *TreeNode, row []float64, depth int) float64 {
	if node.Left == nil {
		return float64(depth) + avgPathLength(node.Size)
	}
	if row[node.SplitAttr] < node.SplitVal {
		return pathLength(node.Left, row, depth+1)
	}
	return pathLength(node.Right, row, depth+1)
}

// avgPathLength is the expected path length of an unsuccessful BST search
// over n items, the standard isolation-forest normalizer.
func avgPathLength(n int) float64 {
	switch {
	case n > 2:
		h := math.Log(float64(n-1)) + eulerMascheroni
		return 2*h - 2*float64(n-1)/float64(n)
	case n == 2:
		return 1
	default:
		return 0
	}
}

// featureMatrix assembles one row per record with every available
// numeric feature non-null; rows with a null cell are excluded and keep
// a neutral ensemble verdict. idx maps matrix rows back to dataset rows.
func featureMatrix(ds *models.Dataset) (X [][]float64, idx []int, names []string) {
	type feature struct {
		name   string
		values []float64
		valid  []bool
	}
	allValid := make([]bool, ds.Len())
	for i := range allValid {
		allValid[i] = true
	}
	feats := []feature{{name: "volume", values: ds.Volume, valid: allValid}}
	for _, col := range []struct {
		name string
		c    models.FloatColumn
	}{
		{"distance", ds.Distance},
		{"cost", ds.Cost},
	} {
		if col.c.Present {
			feats = append(feats, feature{name: col.name, values: col.c.Values, valid: col.c.Valid})
		}
	}

	names = make([]string, len(feats))
	for j, ft := range feats {
		names[j] = ft.name
	}

rows:
	for i := 0; i < ds.Len(); i++ {
		row := make([]float64, len(feats))
		for j, ft := range feats {
			if !ft.valid[i] {
				continue rows
			}
			row[j] = ft.values[i]
		}
		X = append(X, row)
		idx = append(idx, i)
	}
	return X, idx, names
}

// DetectMultivariate trains a fresh isolation forest on the batch and
// flags the rows scoring above the contamination quantile. Batches with
// fewer than MinEnsembleRows complete rows return a neutral verdict and
// ErrInsufficientData.
func DetectMultivariate(ds *models.Dataset, cfg ForestConfig) (DetectorOutput, *Forest, error) {
	out := newOutput(NameEnsemble, ds.Len())
	X, idx, names := featureMatrix(ds)
	if len(X) < MinEnsembleRows {
		return out, nil, ErrInsufficientData
	}
	forest := &Forest{Config: cfg}
	if err := forest.Fit(X, names); err != nil {
		return out, nil, err
	}
	scores := forest.Scores(X)
	for k, s := range scores {
		i := idx[k]
		out.Scores[i] = s
		if s > forest.Threshold {
			out.Flags[i] = true
		}
	}
	return out, forest, nil
}
