package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"spotload/internal/config"
	"spotload/internal/logger"
	"spotload/internal/pipeline"
	"spotload/internal/spotify"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse(s.tracker.Status()))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON request")
		return
	}

	req.Link = strings.TrimSpace(req.Link)
	req.Query = strings.TrimSpace(req.Query)
	if (req.Link == "") == (req.Query == "") {
		s.writeError(w, http.StatusBadRequest, "Exactly one of link or query is required")
		return
	}
	if req.Quality != "" && !config.IsQuality(req.Quality) {
		s.writeError(w, http.StatusBadRequest, "Quality must be one of "+strings.Join(config.Qualities, ", "))
		return
	}

	if req.Quality == "" {
		req.Quality = s.cfg.Quality
	}
	folder, err := resolveFolder(s.cfg.BaseDir, req.Folder)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.runMu.TryLock() {
		s.writeError(w, http.StatusConflict, "A download is already running")
		return
	}
	defer s.runMu.Unlock()

	input := req.Link
	if input == "" {
		input = "search: " + req.Query
	}
	runID := s.tracker.Begin(input)
	logger.Info("Run %s started for %s", runID, input)

	var res pipeline.Result
	if req.Link != "" {
		res, err = s.runner.RunWithSummary(r.Context(), req.Link, folder, req.Quality)
	} else {
		res, err = s.runner.RunSearch(r.Context(), req.Query, folder, req.Quality)
	}
	s.tracker.End(res, err)

	if err != nil {
		logger.Error("Run %s failed: %v", runID, err)
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse(DownloadResponse{
		RunID:       runID,
		Kind:        res.Reference.Kind.String(),
		Name:        res.Name,
		Destination: res.Destination,
		Summary:     res.Summary,
	}))
}

var errFolderOutsideBase = errors.New("folder must be inside the download directory")

// resolveFolder maps a requested folder onto base. Relative folders are
// joined to base; absolute ones must already lie within it. An empty folder
// stays empty so the pipeline uses its default.
func resolveFolder(base, folder string) (string, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return "", nil
	}
	if base == "" {
		return "", errFolderOutsideBase
	}

	target := folder
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	rel, err := filepath.Rel(base, filepath.Clean(target))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errFolderOutsideBase
	}
	return filepath.Join(base, rel), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnsupportedLink), errors.Is(err, spotify.ErrInvalidResourceID):
		return http.StatusBadRequest
	case errors.Is(err, spotify.ErrNotFound), errors.Is(err, pipeline.ErrNoSearchResult):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
