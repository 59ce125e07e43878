package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/handler"
)

const corpus = `{"id":"d1","contents":"solar panels convert sunlight into electricity"}
{"id":"d2","contents":"rooftop solar panels and battery storage"}
{"id":"d3","contents":"wind turbines generate electricity offshore"}
{"id":"d4","contents":"coal plants emit carbon"}
`

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRerankCommand(t *testing.T) {
	t.Setenv("SP_SEARCH_DEFAULT_FIELD", "contents")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--corpus", writeCorpus(t),
		"--index-dir", t.TempDir(),
		"-q", "solar panels",
		"--rtype", "rm3",
		"-p", "rm3.fbDocs=2",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	var resp handler.Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out.String())
	}
	if resp.Header.QueryA != "contents:solar contents:panel" {
		t.Errorf("unexpected query_a %q", resp.Header.QueryA)
	}
	if resp.Body.NumFound != 2 || resp.Header.Outcome != "ok" {
		t.Errorf("unexpected response %+v", resp)
	}
	if got := resp.Header.Params["rm3.fbDocs"]; len(got) != 1 || got[0] != "2" {
		t.Errorf("expected extra parameter passed through, got %v", resp.Header.Params)
	}
}

func TestRerankCommandValidation(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--corpus", writeCorpus(t), "-q", "solar", "-p", "novalue"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "name=value") {
		t.Errorf("expected a parameter format error, got %v", err)
	}

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-q", "solar"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error without --corpus")
	}
}
