// Package api exposes the mapping and transformation services over HTTP.
// Handlers are thin: decode, delegate, encode; all policy lives in the
// service layer.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"schemabridge/internal/domain"
	"schemabridge/internal/service/governance"
	"schemabridge/internal/service/mapping"
	"schemabridge/internal/service/snapshot"
	"schemabridge/internal/service/transform"
)

// Handler aggregates the services backing the HTTP surface.
type Handler struct {
	snapshots  *snapshot.Service
	mappings   *mapping.Service
	transforms *transform.Service
	controller *transform.Controller
	audit      *governance.AuditService
}

// NewHandler creates a Handler over the given services.
func NewHandler(
	snapshots *snapshot.Service,
	mappings *mapping.Service,
	transforms *transform.Service,
	controller *transform.Controller,
	audit *governance.AuditService,
) *Handler {
	return &Handler{
		snapshots:  snapshots,
		mappings:   mappings,
		transforms: transforms,
		controller: controller,
		audit:      audit,
	}
}

// Routes registers all endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/sessions/{session}", func(r chi.Router) {
			r.Post("/snapshots/{dataset}", h.captureSnapshot)
			r.Get("/snapshots/{dataset}", h.getSnapshot)
			r.Get("/snapshots/{dataset}/tables/{table}", h.getTableColumns)
			r.Get("/tables/{dataset}/{table}/sample", h.sampleRows)

			r.Post("/mappings/suggest", h.suggestMappings)
			r.Get("/mappings/{id}", h.getMappingSet)
			r.Post("/mappings/{id}/validate", h.validateMappings)
			r.Post("/mappings/{id}/classify", h.classifyMappings)
			r.Post("/mappings/{id}/decision", h.recordDecision)
			r.Post("/mappings/{id}/sql", h.generateSQL)

			r.Post("/executions/dry-run", h.dryRun)
			r.Post("/executions/execute", h.execute)
		})
		r.Get("/audit", h.listAudit)
	})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

// --- snapshots ---

func (h *Handler) captureSnapshot(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")
	dataset := chi.URLParam(r, "dataset")

	snap, err := h.snapshots.Capture(r.Context(), session, dataset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Get(r.Context(), chi.URLParam(r, "session"), chi.URLParam(r, "dataset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) getTableColumns(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")
	dataset := chi.URLParam(r, "dataset")
	table := chi.URLParam(r, "table")

	snap, err := h.snapshots.Get(r.Context(), session, dataset)
	if err != nil {
		writeError(w, err)
		return
	}
	ts := snap.Table(table)
	if ts == nil {
		writeError(w, domain.ErrNotFound("table %q not found in captured schema for dataset %q", table, dataset))
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

type sampleResponse struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

func (h *Handler) sampleRows(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")
	dataset := chi.URLParam(r, "dataset")
	table := chi.URLParam(r, "table")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, domain.ErrValidation("limit must be an integer, got %q", raw))
			return
		}
		limit = n
	}

	columns, rows, err := h.snapshots.Sample(r.Context(), session, dataset, table, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = [][]interface{}{}
	}
	writeJSON(w, http.StatusOK, sampleResponse{Columns: columns, Rows: rows})
}

// --- mappings ---

type suggestBody struct {
	SourceDataset string `json:"source_dataset"`
	SourceTable   string `json:"source_table"`
	TargetDataset string `json:"target_dataset"`
	TargetTable   string `json:"target_table"`
}

func (h *Handler) suggestMappings(w http.ResponseWriter, r *http.Request) {
	var body suggestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.mappings.Suggest(r.Context(), mapping.SuggestRequest{
		SessionID:     chi.URLParam(r, "session"),
		SourceDataset: body.SourceDataset,
		SourceTable:   body.SourceTable,
		TargetDataset: body.TargetDataset,
		TargetTable:   body.TargetTable,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) getMappingSet(w http.ResponseWriter, r *http.Request) {
	set, err := h.mappings.GetSet(r.Context(), chi.URLParam(r, "session"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

type validateResponse struct {
	Set      *domain.MappingSet        `json:"set"`
	Rejected []domain.MappingCandidate `json:"rejected"`
}

func (h *Handler) validateMappings(w http.ResponseWriter, r *http.Request) {
	set, rejected, err := h.mappings.Validate(r.Context(), chi.URLParam(r, "session"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rejected == nil {
		rejected = []domain.MappingCandidate{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Set: set, Rejected: rejected})
}

func (h *Handler) classifyMappings(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.mappings.Classify(r.Context(), chi.URLParam(r, "session"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

type decisionBody struct {
	Decision string `json:"decision"`
}

func (h *Handler) recordDecision(w http.ResponseWriter, r *http.Request) {
	var body decisionBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	set, err := h.mappings.RecordDecision(r.Context(), chi.URLParam(r, "session"), chi.URLParam(r, "id"), body.Decision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// --- SQL generation and execution ---

type generateBody struct {
	Mode      string `json:"mode"`
	KeyColumn string `json:"key_column,omitempty"`
}

func (h *Handler) generateSQL(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	out, err := h.transforms.GenerateSQL(r.Context(), chi.URLParam(r, "session"), chi.URLParam(r, "id"), body.Mode, body.KeyColumn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type dryRunBody struct {
	MappingSetID string `json:"mapping_set_id"`
	SQL          string `json:"sql"`
}

func (h *Handler) dryRun(w http.ResponseWriter, r *http.Request) {
	var body dryRunBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.SQL == "" {
		writeError(w, domain.ErrValidation("sql must not be empty"))
		return
	}

	token, err := h.controller.DryRun(r.Context(), chi.URLParam(r, "session"), body.MappingSetID, body.SQL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, token)
}

type executeBody struct {
	SQL     string `json:"sql"`
	TokenID string `json:"token_id"`
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	var body executeBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.SQL == "" || body.TokenID == "" {
		writeError(w, domain.ErrValidation("sql and token_id must not be empty"))
		return
	}

	result, err := h.controller.Execute(r.Context(), chi.URLParam(r, "session"), body.SQL, body.TokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- audit ---

type auditResponse struct {
	Events        []domain.AuditEvent `json:"events"`
	TotalCount    int64               `json:"total_count"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.AuditFilter{
		SessionID: optParam(q.Get("session_id")),
		EventType: optParam(q.Get("event_type")),
		Action:    optParam(q.Get("action")),
		RiskLevel: optParam(q.Get("risk_level")),
		Page: domain.PageRequest{
			PageToken: q.Get("page_token"),
		},
	}
	if raw := q.Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, domain.ErrValidation("max_results must be an integer, got %q", raw))
			return
		}
		filter.Page.MaxResults = n
	}
	if raw := q.Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domain.ErrValidation("since must be RFC 3339, got %q", raw))
			return
		}
		filter.Since = &ts
	}

	events, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, auditResponse{
		Events:        events,
		TotalCount:    total,
		NextPageToken: domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total),
	})
}

func optParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
