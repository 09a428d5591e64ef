package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Dosada05/esport-core/middleware"
	"github.com/Dosada05/esport-core/services"
)

type EvidenceHandler struct {
	evidenceService services.EvidenceService
}

func NewEvidenceHandler(evidenceService services.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{evidenceService: evidenceService}
}

// UploadEvidenceHandler accepts a multipart form with a "screenshot" file
// and a "team_id" field, uploads the screenshot and registers it against
// the match.
func (h *EvidenceHandler) UploadEvidenceHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify caller")
		return
	}

	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	teamID, err := formInt(r, "team_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get screenshot file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content-type header is required for screenshot"))
		return
	}

	item, err := h.evidenceService.Attach(r.Context(), caller, matchID, teamID, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"evidence": item}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EvidenceHandler) ListEvidenceHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	items, err := h.evidenceService.List(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"evidence": items}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
