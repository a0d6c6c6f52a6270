// internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/charityrun/runproof/internal/errors"
	"github.com/charityrun/runproof/internal/scraper"
	"github.com/charityrun/runproof/internal/submit"
	"github.com/charityrun/runproof/pkg/api"
)

// handleSubmit accepts the multipart submission form.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, apperrors.New(apperrors.CodeValidationFailed,
			"request must be multipart/form-data within the upload limit"))
		return
	}

	req := &submit.Request{
		Name:        r.FormValue("name"),
		Email:       r.FormValue("email"),
		Phone:       r.FormValue("phone"),
		ActivityURL: r.FormValue("activity_url"),
		Distance:    r.FormValue("distance"),
		Duration:    r.FormValue("duration"),
		Credentials: scraper.Credentials{
			RememberID:    r.FormValue("remember_id"),
			RememberToken: r.FormValue("remember_token"),
		},
	}

	if file, header, err := r.FormFile("proof"); err == nil {
		defer file.Close()
		req.Proof = file
		req.ProofName = header.Filename
	}

	result, err := s.orchestrator.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.Response{
		Success: true,
		Data: api.Submission{
			Decision:     string(result.Decision),
			ActivityRef:  result.ActivityRef,
			ActivityName: result.Fields.ActivityName,
			Location:     result.Fields.Location,
			Date:         result.Fields.Date,
			DistanceKm:   result.DistanceKm,
			Duration:     result.Duration,
			Pace:         result.Pace,
			ProofURL:     result.ProofURL,
			SubmittedAt:  result.SubmittedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}

// handleScrape is the debug endpoint: resolve and extract one activity
// without touching the ledger.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.writeError(w, apperrors.New(apperrors.CodeValidationFailed,
			"the url query parameter is required"))
		return
	}

	creds := scraper.Credentials{
		RememberID:    r.URL.Query().Get("remember_id"),
		RememberToken: r.URL.Query().Get("remember_token"),
	}

	result, err := s.orchestrator.Scrape(r.Context(), rawURL, creds)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data: api.Scrape{
			ActivityRef: result.ActivityRef,
			Fields:      result.Fields,
			Diagnostics: result.Diagnostics,
			DistanceKm:  result.DistanceKm,
			Duration:    result.Duration,
			Pace:        result.Pace,
		},
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	structured := apperrors.AsError(err)
	if structured.Code == apperrors.CodeInternal {
		s.logger.Errorf("internal error: %v", err)
	}

	s.writeJSON(w, apperrors.HTTPStatus(structured.Code), api.Response{
		Success: false,
		Error: &api.ErrorBody{
			Code:           string(structured.Code),
			Message:        apperrors.UserMessage(structured),
			Issues:         structured.Issues,
			Diagnostics:    structured.Diagnostics,
			UpstreamStatus: structured.UpstreamStatus,
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Errorf("failed to encode response: %v", err)
	}
}
