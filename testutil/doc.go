// Package testutil provides test and benchmark helpers for grainvdb.
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UnitVectors(1000, 128)
//	flat := testutil.Flatten(vecs)
//
// BruteForceTopK computes exact inner-product ground truth by full sort,
// and ComputeRecall compares two result lists.
package testutil
