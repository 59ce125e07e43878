package rerank

// RM3Params configures relevance-model feedback.
type RM3Params struct {
	// FbDocs is the number of top first-pass documents used as feedback.
	FbDocs int
	// FbTerms caps both each document vector and the aggregate vector.
	FbTerms int
	// OriginalQueryWeight is the interpolation weight of the query side,
	// expected in [0,1].
	OriginalQueryWeight float64
	// Restrict limits the second pass to the first-pass document ids.
	Restrict bool
}

// DefaultRM3Params returns fbDocs=10, fbTerms=10, originalQueryWeight=0.5.
func DefaultRM3Params() RM3Params {
	return RM3Params{
		FbDocs:              10,
		FbTerms:             10,
		OriginalQueryWeight: 0.5,
	}
}

// AxiomParams configures axiomatic mutual-information feedback.
type AxiomParams struct {
	// R is the number of top first-pass documents trusted as relevant.
	R int
	// N multiplies R to give the size of the sampled document pool.
	N int
	// K and M bound the per-query-term ranking to max(M, K) entries.
	K int
	// M is the number of expansion terms kept.
	M int
	// Beta scales the mutual-information contribution of non-query terms.
	Beta float64
	// Seed makes pool sampling reproducible when non-zero.
	Seed int64
	// Restrict limits the second pass to the first-pass document ids.
	Restrict bool
}

// DefaultAxiomParams returns R=20, N=20, K=1000, M=30, beta=0.4.
func DefaultAxiomParams() AxiomParams {
	return AxiomParams{
		R:    20,
		N:    20,
		K:    1000,
		M:    30,
		Beta: 0.4,
	}
}
