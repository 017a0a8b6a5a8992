package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/shift-roster/internal/application"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/stage"
)

type rosterService interface {
	Get(ctx context.Context, key persistence.Key) (application.WeekDocs, error)
	ListWeeks(ctx context.Context, kind persistence.Kind) ([]persistence.Key, error)
	SaveStage(ctx context.Context, doc persistence.Document, expectedUpdatedAt string) (application.WriteResult, error)
	ResetStage(ctx context.Context, key persistence.Key) (persistence.Document, error)
	Publish(ctx context.Context, stageDoc persistence.Document, opts application.PublishOptions) (application.PublishResult, error)
	AddShift(ctx context.Context, edit application.ShiftEdit) (application.EditResult, error)
	UpdateShift(ctx context.Context, edit application.ShiftEdit) (application.EditResult, error)
	MoveShift(ctx context.Context, move application.ShiftMove) (application.EditResult, error)
	DeleteShift(ctx context.Context, del application.ShiftDelete) (application.EditResult, error)
	Diff(ctx context.Context, key persistence.Key, opts stage.Options) (stage.WeekDiff, error)
	Compliance(ctx context.Context, key persistence.Key, kind persistence.Kind, opts application.ComplianceOptions) (application.ComplianceReport, error)
	Coverage(ctx context.Context, key persistence.Key, kind persistence.Kind, binMinutes int) (application.CoverageReport, error)
	Snapshot(ctx context.Context, key persistence.Key, kind persistence.Kind, title string) (application.SnapshotResult, error)
	ListSnapshots(ctx context.Context, key persistence.Key) ([]persistence.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (persistence.Snapshot, error)
}

// RosterHandler serves the week, shift and report endpoints.
type RosterHandler struct {
	service   rosterService
	defaultTZ string
	responder responder
	logger    *slog.Logger
}

// NewRosterHandler wires service. defaultTZ answers requests that omit the
// tz query parameter.
func NewRosterHandler(service rosterService, defaultTZ string, logger *slog.Logger) *RosterHandler {
	return &RosterHandler{
		service:   service,
		defaultTZ: defaultTZ,
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

func (h *RosterHandler) available(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *RosterHandler) key(r *http.Request) persistence.Key {
	weekStart, _ := WeekStartFromContext(r.Context())
	tz := strings.TrimSpace(r.URL.Query().Get("tz"))
	if tz == "" {
		tz = h.defaultTZ
	}
	return persistence.Key{WeekStart: weekStart, TZID: tz}
}

func kindParam(q url.Values, fallback persistence.Kind) persistence.Kind {
	if kind := strings.TrimSpace(q.Get("kind")); kind != "" {
		return persistence.Kind(kind)
	}
	return fallback
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *RosterHandler) ListWeeks(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	keys, err := h.service.ListWeeks(r.Context(), kindParam(r.URL.Query(), persistence.KindLive))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, weeksResponse{Weeks: keys})
}

func (h *RosterHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	docs, err := h.service.Get(r.Context(), h.key(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, docs)
}

// SaveStage stores the body document as the stage. The document's updatedAt
// is the token the client last read.
func (h *RosterHandler) SaveStage(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var doc persistence.Document
	if err := decodeBody(r, &doc); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	key := h.key(r)
	doc.WeekStart, doc.TZID = key.WeekStart, key.TZID

	result, err := h.service.SaveStage(r.Context(), doc, doc.UpdatedAt)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if result.Conflict {
		handlerLogger(r.Context(), h.logger, "RosterHandler", "SaveStage").
			InfoContext(r.Context(), "stale stage token", "expected_updated_at", doc.UpdatedAt)
		h.responder.writeConflict(r.Context(), w, codeStaleWrite, result)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *RosterHandler) ResetStage(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	doc, err := h.service.ResetStage(r.Context(), h.key(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, doc)
}

func (h *RosterHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req publishRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	key := h.key(r)
	req.Stage.WeekStart, req.Stage.TZID = key.WeekStart, key.TZID

	result, err := h.service.Publish(r.Context(), req.Stage, req.Options)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if result.Conflict {
		handlerLogger(r.Context(), h.logger, "RosterHandler", "Publish").
			InfoContext(r.Context(), "stale publish tokens",
				"stage_updated_at", req.Stage.UpdatedAt,
				"force", req.Options.Force)
		h.responder.writeConflict(r.Context(), w, codeStaleWrite, result)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *RosterHandler) AddShift(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req shiftRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	result, err := h.service.AddShift(r.Context(), req.toEdit(h.key(r)))
	h.renderEdit(r.Context(), w, result, err, http.StatusCreated)
}

func (h *RosterHandler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	shiftID, ok := ShiftIDFromContext(r.Context())
	if !ok || strings.TrimSpace(shiftID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidShiftID)
		return
	}
	var req shiftRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	edit := req.toEdit(h.key(r))
	edit.Shift.ID = shiftID
	result, err := h.service.UpdateShift(r.Context(), edit)
	h.renderEdit(r.Context(), w, result, err, http.StatusOK)
}

func (h *RosterHandler) MoveShifts(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	result, err := h.service.MoveShift(r.Context(), application.ShiftMove{
		Key:               h.key(r),
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
		ShiftIDs:          req.ShiftIDs,
		DeltaMin:          req.DeltaMin,
		AllowOverlap:      req.AllowOverlap,
	})
	h.renderEdit(r.Context(), w, result, err, http.StatusOK)
}

// DeleteShift takes the expected stage token from the expectedUpdatedAt
// query parameter.
func (h *RosterHandler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	shiftID, ok := ShiftIDFromContext(r.Context())
	if !ok || strings.TrimSpace(shiftID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidShiftID)
		return
	}
	result, err := h.service.DeleteShift(r.Context(), application.ShiftDelete{
		Key:               h.key(r),
		ExpectedUpdatedAt: r.URL.Query().Get("expectedUpdatedAt"),
		ShiftID:           shiftID,
	})
	h.renderEdit(r.Context(), w, result, err, http.StatusOK)
}

func (h *RosterHandler) renderEdit(ctx context.Context, w http.ResponseWriter, result application.EditResult, err error, status int) {
	switch {
	case err != nil:
		h.responder.handleServiceError(ctx, w, err)
	case result.Blocked:
		h.responder.writeConflict(ctx, w, codeShiftOverlap, result)
	case result.Conflict:
		h.responder.writeConflict(ctx, w, codeStaleWrite, result)
	default:
		h.responder.writeJSON(ctx, w, status, result)
	}
}

// Diff accepts segments=true and notes=true to widen the compared fields.
func (h *RosterHandler) Diff(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var opts stage.Options
	if err := boolQuery(r.URL.Query(), map[string]*bool{"segments": &opts.IncludeSegments, "notes": &opts.IncludeNotes}); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	diff, err := h.service.Diff(r.Context(), h.key(r), opts)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, diffResponse{WeekDiff: diff, Unchanged: diff.Empty()})
}

// Compliance accepts suppressMealBreaks=true to skip the meal period rules.
func (h *RosterHandler) Compliance(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	q := r.URL.Query()
	var opts application.ComplianceOptions
	if err := boolQuery(q, map[string]*bool{"suppressMealBreaks": &opts.SuppressMealBreaks}); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}
	report, err := h.service.Compliance(r.Context(), h.key(r), kindParam(q, persistence.KindStage), opts)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, report)
}

func (h *RosterHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	q := r.URL.Query()
	bin := 0
	if raw := q.Get("bin"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		bin = v
	}
	report, err := h.service.Coverage(r.Context(), h.key(r), kindParam(q, persistence.KindStage), bin)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, report)
}

func (h *RosterHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req snapshotRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}
	kind := req.Kind
	if kind == "" {
		kind = persistence.KindLive
	}
	result, err := h.service.Snapshot(r.Context(), h.key(r), kind, req.Title)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, result)
}

func (h *RosterHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	snaps, err := h.service.ListSnapshots(r.Context(), h.key(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]snapshotSummary, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, newSnapshotSummary(s))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snapshotsResponse{Snapshots: out})
}

func (h *RosterHandler) GetSnapshot(w http.ResponseWriter, r *http.Request, id string) {
	if !h.available(w) {
		return
	}
	if strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSnapshot)
		return
	}
	snap, err := h.service.GetSnapshot(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snap)
}

type weeksResponse struct {
	Weeks []persistence.Key `json:"weeks"`
}

type publishRequest struct {
	Stage   persistence.Document       `json:"stage"`
	Options application.PublishOptions `json:"options"`
}

type shiftRequest struct {
	ExpectedUpdatedAt string       `json:"expectedUpdatedAt"`
	Shift             roster.Shift `json:"shift"`
	AllowOverlap      bool         `json:"allowOverlap"`
}

func (s shiftRequest) toEdit(key persistence.Key) application.ShiftEdit {
	return application.ShiftEdit{
		Key:               key,
		ExpectedUpdatedAt: s.ExpectedUpdatedAt,
		Shift:             s.Shift,
		AllowOverlap:      s.AllowOverlap,
	}
}

type moveRequest struct {
	ExpectedUpdatedAt string   `json:"expectedUpdatedAt"`
	ShiftIDs          []string `json:"shiftIds"`
	DeltaMin          int      `json:"deltaMin"`
	AllowOverlap      bool     `json:"allowOverlap"`
}

type diffResponse struct {
	stage.WeekDiff
	Unchanged bool `json:"unchanged"`
}

type snapshotRequest struct {
	Kind  persistence.Kind `json:"kind"`
	Title string           `json:"title"`
}

type snapshotSummary struct {
	ID              string           `json:"id"`
	Kind            persistence.Kind `json:"kind"`
	WeekStart       string           `json:"weekStart"`
	TZID            string           `json:"tzId"`
	Title           string           `json:"title"`
	SourceUpdatedAt string           `json:"sourceUpdatedAt"`
	CreatedAt       string           `json:"createdAt"`
}

func newSnapshotSummary(s persistence.Snapshot) snapshotSummary {
	return snapshotSummary{
		ID:              s.ID,
		Kind:            s.Kind,
		WeekStart:       s.WeekStart,
		TZID:            s.TZID,
		Title:           s.Title,
		SourceUpdatedAt: s.SourceUpdatedAt,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type snapshotsResponse struct {
	Snapshots []snapshotSummary `json:"snapshots"`
}

// boolQuery parses the named boolean query parameters into their targets.
// Absent parameters leave the target untouched.
func boolQuery(q url.Values, targets map[string]*bool) error {
	for name, dst := range targets {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = v
	}
	return nil
}
