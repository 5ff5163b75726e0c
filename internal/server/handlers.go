package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/config"
	"github.com/hyperjump/lostfound/internal/keyword"
	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/storage"
	"github.com/hyperjump/lostfound/internal/vector"
)

const maxDiscoverLimit = 200

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	var query models.MatchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(s.config.Match.TopK, s.config.Match.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(query.Embedding) != s.vectors.Dimensions() {
		s.respondError(w, http.StatusBadRequest, "embedding dimension mismatch")
		return
	}
	s.logger.Debug("match request", zap.Int("top_k", query.TopK), zap.String("report_type", string(query.ReportType)))
	start := time.Now()
	matches := s.engine.FindMatches(r.Context(), query.Embedding, query.TopK, query.ReportType)
	s.respondJSON(w, http.StatusOK, &models.MatchResponse{
		Matches:   matches,
		Total:     len(matches),
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var input models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("report request", zap.String("report_type", string(input.ReportType)), zap.String("category", input.Category))
	resp, err := s.indexer.Report(r.Context(), &input)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) || errors.Is(err, vector.ErrDimensionMismatch) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("report failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

// discoverResponse lists records without their embeddings.
type discoverResponse struct {
	Items []*models.ItemRecord `json:"items"`
	Total int                  `json:"total"`
}

// parseFilter reads discover query parameters. "status" and "itemType" are accepted as
// aliases of report_type and category.
func parseFilter(r *http.Request) (models.ItemFilter, error) {
	q := r.URL.Query()
	var filter models.ItemFilter
	rt := q.Get("report_type")
	if rt == "" {
		rt = q.Get("status")
	}
	reportType, err := models.ParseReportType(rt)
	if err != nil {
		return filter, err
	}
	filter.ReportType = reportType
	filter.Category = q.Get("category")
	if filter.Category == "" {
		filter.Category = q.Get("itemType")
	}
	filter.Location = q.Get("location")
	switch q.Get("sort") {
	case "", "newest":
	case "oldest":
		filter.Oldest = true
	default:
		return filter, errors.New("sort must be 'newest' or 'oldest'")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = n
	}
	if filter.Limit == 0 || filter.Limit > maxDiscoverLimit {
		filter.Limit = maxDiscoverLimit
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid offset")
		}
		filter.Offset = n
	}
	return filter, nil
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	text := r.URL.Query().Get("q")

	var items []*models.ItemRecord
	if text != "" && s.keyword != nil {
		hits, err := s.keyword.Search(ctx, text, maxDiscoverLimit, &keyword.SearchOptions{
			ReportType:   filter.ReportType,
			FuzzyEnabled: r.URL.Query().Get("fuzzy") == "true",
		})
		if err != nil {
			s.logger.Error("keyword search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		matched := make([]*models.ItemRecord, 0, len(hits))
		for _, hit := range hits {
			rec, err := s.storage.Get(ctx, hit.ID)
			if err != nil {
				continue
			}
			if storage.MatchesFilter(rec, filter) {
				matched = append(matched, rec)
			}
		}
		items = storage.Page(matched, filter.Offset, filter.Limit)
	} else {
		items, err = s.storage.List(ctx, filter)
		if err != nil {
			s.logger.Error("discover failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	out := make([]*models.ItemRecord, len(items))
	for i, rec := range items {
		c := *rec
		c.Embedding = nil
		out[i] = &c
	}
	s.respondJSON(w, http.StatusOK, &discoverResponse{Items: out, Total: len(out)})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.storage.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

type embeddingRequest struct {
	Embedding []float32 `json:"embedding"`
}

func (s *Server) handleStoreEmbedding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req embeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Embedding) != s.vectors.Dimensions() {
		s.respondError(w, http.StatusBadRequest, "embedding dimension mismatch")
		return
	}
	if _, err := s.storage.Get(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !s.engine.StoreEmbedding(r.Context(), id, req.Embedding) {
		s.respondError(w, http.StatusInternalServerError, "failed to store embedding")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"item_id": id, "status": "updated"})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.reconciler.Reconcile(r.Context())
	if err != nil {
		s.logger.Error("reconcile failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := s.storage.Count(ctx)
	if err != nil {
		s.logger.Error("status: count items failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"items":             count,
		"vector_index_size": s.vectors.Size(),
	}

	cfg := s.config.Storage
	configInfo := map[string]interface{}{
		"backend":           cfg.Backend,
		"vector_index_type": s.vectors.Type(),
		"dimensions":        s.vectors.Dimensions(),
		"score_threshold":   s.engine.Threshold(),
		"top_k":             s.config.Match.TopK,
		"index_path":        cfg.IndexPath,
		"id_map_path":       cfg.IDMapPath,
	}
	recordsPath := cfg.DatabasePath
	if cfg.Backend == config.BackendJSON {
		recordsPath = cfg.ItemsPath
	}
	configInfo["records_path"] = recordsPath
	if diskBytes, err := storage.DiskUsageBytes(recordsPath, cfg.IndexPath, cfg.IDMapPath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
