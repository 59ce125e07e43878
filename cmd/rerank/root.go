package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/rerank"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/logger"
)

type options struct {
	configPath string
	corpus     string
	indexDir   string
	query      string
	strategy   string
	queryType  string
	similarity string
	filters    []string
	params     []string
	rows       int
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "rerank",
		Short: "Rerank a first-pass result list offline",
		Long: `rerank indexes a JSONL corpus into a scratch index, runs one query
through the first pass and the selected reranker, and prints the same JSON
response the HTTP service returns.

Any request parameter can be passed with -p name=value, for example
-p rm3.fbDocs=5 -p ax.seed=7 -p _restrict=true.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "config file for rerank defaults")
	f.StringVar(&o.corpus, "corpus", "", "JSONL corpus to index (required)")
	f.StringVar(&o.indexDir, "index-dir", "", "index directory (default: a temporary directory)")
	f.StringVarP(&o.query, "q", "q", "", "query text (required)")
	f.StringVar(&o.strategy, "rtype", "", "rerank strategy: rm3, ax or id")
	f.StringVar(&o.queryType, "qtype", "", "first-pass query type: bow or sdm")
	f.StringVar(&o.similarity, "sim", "", "similarity: bm or ql")
	f.StringArrayVar(&o.filters, "fq", nil, "filter field:value (repeatable)")
	f.StringArrayVarP(&o.params, "param", "p", nil, "extra request parameter name=value (repeatable)")
	f.IntVar(&o.rows, "rows", 10, "documents to print")
	f.StringVar(&o.logLevel, "log-level", "warn", "log level")
	_ = cmd.MarkFlagRequired("corpus")
	_ = cmd.MarkFlagRequired("q")
	return cmd
}

func run(cmd *cobra.Command, o options) error {
	logger.SetupWriter(cmd.ErrOrStderr(), o.logLevel, "text")
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	params, err := requestParams(o)
	if err != nil {
		return err
	}

	dir := o.indexDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "rerank-index-")
		if err != nil {
			return fmt.Errorf("creating scratch index: %w", err)
		}
		defer os.RemoveAll(dir)
	}
	cfg.Indexer.DataDir = dir
	engine, err := indexer.NewEngine(cfg.Indexer, nil)
	if err != nil {
		return err
	}
	defer engine.Close()
	if err := indexCorpus(engine, o.corpus); err != nil {
		return err
	}

	sim, err := ranker.ForName(cfg.Search.Similarity)
	if err != nil {
		return err
	}
	s, err := searcher.New(engine, sim, 0)
	if err != nil {
		return err
	}
	h := handler.New(s, cfg.Search, cfg.Rerank, nil, nil, rerank.OptionsFromConfig(cfg.Rerank, nil)...)
	resp, err := h.Handle(cmd.Context(), params)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func requestParams(o options) (url.Values, error) {
	params := url.Values{}
	params.Set("q", o.query)
	params.Set("rows", fmt.Sprint(o.rows))
	for name, v := range map[string]string{"rtype": o.strategy, "qtype": o.queryType, "sim": o.similarity} {
		if v != "" {
			params.Set(name, v)
		}
	}
	for _, fq := range o.filters {
		params.Add("fq", fq)
	}
	for _, p := range o.params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter must have the form name=value, got %q", p)
		}
		params.Add(name, value)
	}
	return params, nil
}

func indexCorpus(engine *indexer.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()
	return ingestion.ReadJSONL(f, func(doc index.Document) error {
		if engine.HasDocument(doc.ID) {
			return nil
		}
		return engine.IndexDocument(doc)
	})
}
