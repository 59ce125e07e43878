package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/middleware"
)

const (
	// maxBodyBytes bounds one ingest request.
	maxBodyBytes = 32 << 20
	// maxDocuments bounds the documents accepted per request.
	maxDocuments = 5000
)

var errTooManyDocuments = errors.New("too many documents")

type Handler struct {
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func New(pub *publisher.Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    logger.WithComponent("ingestion-handler"),
	}
}

// Ingest serves POST /api/v1/documents. The body is either
// {"documents":[...]} or, with Content-Type application/x-ndjson, one
// document per line in the corpus JSONL format.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	docs, err := decodeDocuments(r.Header.Get("Content-Type"), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds "+strconv.Itoa(maxBodyBytes)+" bytes")
		case errors.Is(err, errTooManyDocuments):
			h.writeError(w, http.StatusRequestEntityTooLarge, "at most "+strconv.Itoa(maxDocuments)+" documents per request")
		default:
			h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		}
		return
	}
	if len(docs) == 0 {
		h.writeError(w, http.StatusBadRequest, "at least one document is required")
		return
	}

	n, err := h.publisher.Publish(ctx, middleware.GetRequestID(ctx), docs...)
	if err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  err.Error(),
				"fields": validationErr.Fields,
			})
			return
		}
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"documents", len(docs),
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("documents accepted", "count", n)
	h.writeJSON(w, http.StatusAccepted, ingestion.IngestResponse{Accepted: n, Status: "PENDING"})
}

func decodeDocuments(contentType string, body io.Reader) ([]index.Document, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/x-ndjson", "application/jsonl":
		var docs []index.Document
		err := ingestion.ReadJSONL(body, func(doc index.Document) error {
			if len(docs) == maxDocuments {
				return errTooManyDocuments
			}
			docs = append(docs, doc)
			return nil
		})
		return docs, err
	default:
		var req ingestion.IngestRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return nil, err
		}
		if len(req.Documents) > maxDocuments {
			return nil, errTooManyDocuments
		}
		return req.Documents, nil
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
