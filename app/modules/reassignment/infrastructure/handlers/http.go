package reassignmenthandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	authhandlers "github.com/kingsroom/venue-engine/app/modules/auth/infrastructure/handlers"
	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/pagination"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// maxBodyBytes caps request bodies on the RPC surface.
const maxBodyBytes = 4 << 20

// Handlers serves the venue assignment HTTP surface.
type Handlers interface {
	HandleRPC(w http.ResponseWriter, r *http.Request)
	HandleRecords(w http.ResponseWriter, r *http.Request)
	HandleSummaryExport(w http.ResponseWriter, r *http.Request)
}

// ReassignmentHandlers implements Handlers.
type ReassignmentHandlers struct {
	dispatcher *Dispatcher
	service    reassignmentservice.Service
	logger     *slog.Logger
}

// NewReassignmentHandlers creates the HTTP handlers over dispatcher.
func NewReassignmentHandlers(dispatcher *Dispatcher, service reassignmentservice.Service, logger *slog.Logger) *ReassignmentHandlers {
	return &ReassignmentHandlers{
		dispatcher: dispatcher,
		service:    service,
		logger:     logger,
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Operation string `json:"operation,omitempty"`
}

// HandleRPC runs one named operation: {"operation": "...", "arguments": {...}}.
func (h *ReassignmentHandlers) HandleRPC(w http.ResponseWriter, r *http.Request) {
	var inv Invocation
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&inv); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("failed to decode request body: %v", err)})
		return
	}
	if inv.Operation == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "operation is required"})
		return
	}
	// Queue batches go through /records only.
	inv.Records = nil
	inv.InitiatedBy = caller(r)

	out, err := h.dispatcher.Invoke(r.Context(), inv)
	if err != nil {
		h.writeError(w, r, inv.Operation, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRecords consumes a queue-shaped batch: {"records": [...]}.
func (h *ReassignmentHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	var inv Invocation
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&inv); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("failed to decode request body: %v", err)})
		return
	}
	if len(inv.Records) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "records are required"})
		return
	}

	out, err := h.dispatcher.Invoke(r.Context(), Invocation{Records: inv.Records, InitiatedBy: caller(r)})
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSummaryExport streams the assignment summary as a spreadsheet.
func (h *ReassignmentHandlers) HandleSummaryExport(w http.ResponseWriter, r *http.Request) {
	entityID := sharedtypes.EntityID(r.URL.Query().Get("entityId"))

	summary, err := h.service.GetVenueAssignmentSummary(r.Context(), entityID)
	if err != nil {
		h.writeError(w, r, "getVenueAssignmentSummary", err)
		return
	}
	games, err := collectGamesNeedingVenue(r.Context(), h.service, entityID)
	if err != nil {
		h.writeError(w, r, "listGamesNeedingVenue", err)
		return
	}

	f, err := buildSummaryWorkbook(summary, games)
	if err != nil {
		h.writeError(w, r, "", err)
		return
	}
	defer f.Close()

	name := "venue-assignment-summary.xlsx"
	if entityID != "" {
		name = fmt.Sprintf("venue-assignment-summary-%s.xlsx", entityID)
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := f.WriteTo(w); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to write summary workbook", slog.Any("error", err))
	}
}

func (h *ReassignmentHandlers) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed",
			slog.String("operation", operation),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Operation: operation})
}

func statusFor(err error) int {
	var unknown *UnknownOperationError
	switch {
	case errors.As(err, &unknown),
		errors.Is(err, ErrInvalidArguments),
		errors.Is(err, reassignmentservice.ErrInvalidInput),
		errors.Is(err, pagination.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, taskdb.ErrNotFound), errors.Is(err, venuedb.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reassignmentservice.ErrQueueNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func caller(r *http.Request) string {
	if claims, ok := authhandlers.ClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
