package api

import (
	"fmt"
	"net/http"

	"github.com/doormanhub/doorman-core/internal/audit"
)

// handleListEvents returns a page of event log entries, newest first.
// Supports severity, limit and offset query parameters.
// GET /api/v1/events
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	filter := audit.Filter{
		Limit:  limit,
		Offset: offset,
	}
	if sev := r.URL.Query().Get("severity"); sev != "" {
		switch audit.Severity(sev) {
		case audit.SeverityDebug, audit.SeverityInfo, audit.SeverityError:
			filter.Severity = audit.Severity(sev)
		default:
			writeBadRequest(w, "severity must be debug, info or error")
			return
		}
	}

	result, err := s.events.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing events failed", "error", err)
		writeInternalError(w, "listing events failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRemoveAllEvents clears the event log. The clearing itself is
// recorded, so the log is never silently empty.
// DELETE /api/v1/events
func (s *Server) handleRemoveAllEvents(w http.ResponseWriter, r *http.Request) {
	count, err := s.events.RemoveAll(r.Context())
	if err != nil {
		s.logger.Error("removing events failed", "error", err)
		writeInternalError(w, "removing events failed")
		return
	}

	s.auditAdmin(r, fmt.Sprintf("event log cleared (%d entries)", count))
	writeJSON(w, http.StatusOK, removedResponse{Removed: count})
}
