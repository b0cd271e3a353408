package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/regradar/internal/common"
	"github.com/bobmcallan/regradar/internal/models"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Analysis runs
	mux.HandleFunc("/api/analyze/", s.routeAnalyze)
	mux.HandleFunc("/api/analyze", s.handleAnalyze)

	// Dashboard collaborators
	mux.HandleFunc("/api/market/overview", s.handleMarketOverview)
	mux.HandleFunc("/api/company/", s.handleCompanyImpact)
}

// routeAnalyze dispatches /api/analyze/{id}[/progress|/report] to the
// appropriate handler.
func (s *Server) routeAnalyze(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/analyze/")
	if path == "" {
		s.handleAnalyze(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	runID := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handleCancel(w, r, runID)
	case "progress":
		s.handleProgress(w, r, runID)
	case "report":
		s.handleReport(w, r, runID)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// formatFromFilename infers the document format from the upload's extension.
// Anything unrecognized is treated as plain text; the extractor decides
// whether the bytes are actually analyzable.
func formatFromFilename(name string) models.DocumentFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml", ".xml":
		return models.FormatMarkup
	case ".pdf":
		return models.FormatPDF
	default:
		return models.FormatPlain
	}
}

// handleAnalyze handles POST /api/analyze: multipart upload of a regulatory
// document plus the target ticker. Responds 202 with the run ID; the
// analysis itself runs in the background.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	maxBytes := s.app.Config.Server.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large or malformed multipart body")
		return
	}

	ticker := strings.TrimSpace(r.FormValue("ticker"))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker form field is required")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "document file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read uploaded document")
		return
	}

	doc := models.Document{
		Name:   header.Filename,
		Format: formatFromFilename(header.Filename),
		Data:   data,
	}

	runID, chunksTotal, err := s.app.AnalysisManager.StartAnalysis(r.Context(), doc, ticker)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"run_id":       runID,
		"chunks_total": chunksTotal,
	})
}

// writeAnalysisError maps pipeline sentinel errors onto HTTP status codes.
func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnsupportedFormat):
		WriteErrorWithCode(w, http.StatusUnsupportedMediaType, err.Error(), "unsupported_format")
	case errors.Is(err, models.ErrEmptyDocument):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "empty_document")
	case errors.Is(err, models.ErrChunking):
		WriteErrorWithCode(w, http.StatusInternalServerError, err.Error(), "chunking")
	case errors.Is(err, models.ErrInvalidTarget):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_target")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleProgress handles GET /api/analyze/{id}/progress.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, runID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	progress, err := s.app.AnalysisManager.GetProgress(runID)
	if err != nil {
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "unknown_run")
		return
	}

	WriteJSON(w, http.StatusOK, progress)
}

// handleReport handles GET /api/analyze/{id}/report. A successful retrieval
// is terminal: the run is discarded and subsequent requests return 404.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, runID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, err := s.app.AnalysisManager.GetReport(runID)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary": report.Summary(),
			"report":  report,
		})
	case errors.Is(err, models.ErrUnknownRun):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "unknown_run")
	case errors.Is(err, models.ErrReportPending):
		WriteErrorWithCode(w, http.StatusAccepted, err.Error(), "pending")
	case errors.Is(err, models.ErrRunCancelled):
		WriteErrorWithCode(w, http.StatusGone, err.Error(), "cancelled")
	default:
		// Terminal run failure (provider rejection etc.)
		WriteErrorWithCode(w, http.StatusBadGateway, err.Error(), "failed")
	}
}

// handleCancel handles DELETE /api/analyze/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, runID string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if err := s.app.AnalysisManager.Cancel(runID); err != nil {
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "unknown_run")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleMarketOverview handles GET /api/market/overview.
func (s *Server) handleMarketOverview(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, err := s.app.MarketService.GetIndexOverview(r.Context())
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// handleCompanyImpact handles GET /api/company/{symbol}.
func (s *Server) handleCompanyImpact(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/api/company/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	impact, err := s.app.MarketService.CompanyImpact(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTarget) {
			WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "invalid_target")
			return
		}
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, impact)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"active_runs": s.app.AnalysisManager.RunCount(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
