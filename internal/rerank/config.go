package rerank

import (
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/metrics"
)

// OptionsFromConfig maps the service configuration onto Reranker options.
// Zero filter bounds keep the defaults.
func OptionsFromConfig(cfg config.RerankConfig, m *metrics.Metrics) []Option {
	vf := DefaultVectorFilter()
	if cfg.VectorFilter.MinTermLength > 0 {
		vf.MinTermLength = cfg.VectorFilter.MinTermLength
	}
	if cfg.VectorFilter.MaxTermLength > 0 {
		vf.MaxTermLength = cfg.VectorFilter.MaxTermLength
	}
	if cfg.VectorFilter.MaxDocFreq > 0 {
		vf.MaxDocFreqRatio = cfg.VectorFilter.MaxDocFreq
	}
	opts := []Option{WithVectorFilter(vf), WithWorkers(cfg.Workers)}
	if m != nil {
		opts = append(opts, WithMetrics(m))
	}
	return opts
}

// RM3ParamsFromConfig returns the configured RM3 defaults.
func RM3ParamsFromConfig(cfg config.RM3Config) RM3Params {
	return RM3Params{
		FbDocs:              cfg.FbDocs,
		FbTerms:             cfg.FbTerms,
		OriginalQueryWeight: cfg.OriginalQueryWeight,
		Restrict:            cfg.Restrict,
	}
}

// AxiomParamsFromConfig returns the configured axiomatic defaults.
func AxiomParamsFromConfig(cfg config.AxiomConfig) AxiomParams {
	return AxiomParams{
		R:        cfg.R,
		N:        cfg.N,
		K:        cfg.K,
		M:        cfg.M,
		Beta:     cfg.Beta,
		Seed:     cfg.Seed,
		Restrict: cfg.Restrict,
	}
}
