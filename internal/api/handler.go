package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/repopulse/repopulse/internal/db"
	apperrors "github.com/repopulse/repopulse/internal/errors"
	"github.com/repopulse/repopulse/internal/github"
	"github.com/repopulse/repopulse/internal/models"
	"github.com/repopulse/repopulse/internal/utils"
)

// SyncClient is the slice of the GitHub client the API needs.
type SyncClient interface {
	FullRepository(ctx context.Context, owner, name string) *models.Repository
	RateLimitState() (*time.Time, string)
	ClearCache()
	DiagnosticsSummary() github.DiagnosticsSummary
}

// Refresher triggers refresh cycles.
type Refresher interface {
	RefreshAll(ctx context.Context) error
	LastRun() time.Time
}

type Handler struct {
	store     db.Store
	client    SyncClient
	refresher Refresher
	logger    *logrus.Logger
}

func NewHandler(store db.Store, client SyncClient, refresher Refresher, logger *logrus.Logger) *Handler {
	return &Handler{
		store:     store,
		client:    client,
		refresher: refresher,
		logger:    logger,
	}
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error string `json:"error" example:"Failed to process request"`
}

// respondError maps an application error onto an HTTP status.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsInvalidInput(err):
		status = http.StatusBadRequest
	case apperrors.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case apperrors.IsRateLimit(err):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// AddRepositoryRequest is the body for registering a repository
type AddRepositoryRequest struct {
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	SortOrder int    `json:"sort_order"`
}

// ListRepositories returns the latest stored snapshot of every monitored
// repository.
// @Summary List repository snapshots
// @Description Get the latest stored snapshot for all monitored repositories
// @Tags repositories
// @Produce json
// @Success 200 {array} models.Repository
// @Failure 500 {object} ErrorResponse
// @Router /repositories [get]
func (h *Handler) ListRepositories(c *gin.Context) {
	snapshots, err := h.store.ListSnapshots(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list snapshots")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list repositories"})
		return
	}
	if snapshots == nil {
		snapshots = []*models.Repository{}
	}
	c.JSON(http.StatusOK, snapshots)
}

// AddRepository registers a repository for monitoring.
// @Summary Add a monitored repository
// @Description Register a repository, by owner/name or URL, for refresh cycles
// @Tags repositories
// @Accept json
// @Produce json
// @Param request body AddRepositoryRequest true "Repository to monitor"
// @Success 201 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /repositories [post]
func (h *Handler) AddRepository(c *gin.Context) {
	var req AddRepositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	owner, name := req.Owner, req.Name
	if owner == "" || name == "" {
		var err error
		owner, name, err = utils.ParseRepoURL(req.URL)
		if err != nil {
			respondError(c, apperrors.NewValidationError("Provide owner and name, or a repository URL", err))
			return
		}
	}

	if err := h.store.AddMonitoredRepository(c.Request.Context(), owner, name, req.SortOrder); err != nil {
		h.logger.WithError(err).Error("Failed to add monitored repository")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to add repository"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"owner": owner, "name": name})
}

// RemoveRepository unregisters a monitored repository.
// @Summary Remove a monitored repository
// @Tags repositories
// @Produce json
// @Param owner path string true "Repository owner"
// @Param repo path string true "Repository name"
// @Success 200 {object} map[string]string
// @Failure 500 {object} ErrorResponse
// @Router /repositories/{owner}/{repo} [delete]
func (h *Handler) RemoveRepository(c *gin.Context) {
	owner, repo := c.Param("owner"), c.Param("repo")
	if err := h.store.RemoveMonitoredRepository(c.Request.Context(), owner, repo); err != nil {
		h.logger.WithError(err).Error("Failed to remove monitored repository")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to remove repository"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// GetStoredSnapshot returns the last persisted snapshot for one monitored
// repository without touching the GitHub API.
// @Summary Get a stored repository snapshot
// @Tags repositories
// @Produce json
// @Param owner path string true "Repository owner"
// @Param repo path string true "Repository name"
// @Success 200 {object} models.Repository
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /repositories/{owner}/{repo} [get]
func (h *Handler) GetStoredSnapshot(c *gin.Context) {
	owner, repo := c.Param("owner"), c.Param("repo")
	snapshot, err := h.store.GetSnapshot(c.Request.Context(), owner, repo)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load snapshot")
		respondError(c, apperrors.NewInternalError("Failed to load snapshot", err))
		return
	}
	if snapshot == nil {
		respondError(c, apperrors.NewNotFoundError(fmt.Sprintf("no snapshot stored for %s/%s", owner, repo), nil))
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetRepository builds a live snapshot for one repository. The aggregate
// never fails outright; partial failures show up in the error field of
// the returned entity.
// @Summary Get a live repository snapshot
// @Description Aggregate CI status, counts, activity, traffic, heatmap and release for a repository
// @Tags repository
// @Produce json
// @Param owner path string true "Repository owner"
// @Param repo path string true "Repository name"
// @Success 200 {object} models.Repository
// @Router /repos/{owner}/{repo} [get]
func (h *Handler) GetRepository(c *gin.Context) {
	owner, repo := c.Param("owner"), c.Param("repo")
	snapshot := h.client.FullRepository(c.Request.Context(), owner, repo)
	c.JSON(http.StatusOK, snapshot)
}

// TriggerRefresh starts a refresh cycle in the background.
// @Summary Trigger a refresh cycle
// @Tags sync
// @Produce json
// @Success 202 {object} map[string]string
// @Router /refresh [post]
func (h *Handler) TriggerRefresh(c *gin.Context) {
	go func() {
		if err := h.refresher.RefreshAll(context.Background()); err != nil {
			h.logger.WithError(err).Error("Triggered refresh failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
}

// DiagnosticsResponse is the diagnostics payload
type DiagnosticsResponse struct {
	github.DiagnosticsSummary
	RateLimitedUntil *time.Time `json:"rate_limited_until,omitempty"`
	RateLimitMessage string     `json:"rate_limit_message,omitempty"`
	LastRefresh      *time.Time `json:"last_refresh,omitempty"`
}

// GetDiagnostics reports client cache/cooldown counts and rate limit state.
// @Summary Sync client diagnostics
// @Tags diagnostics
// @Produce json
// @Success 200 {object} DiagnosticsResponse
// @Router /diagnostics [get]
func (h *Handler) GetDiagnostics(c *gin.Context) {
	until, msg := h.client.RateLimitState()
	resp := DiagnosticsResponse{
		DiagnosticsSummary: h.client.DiagnosticsSummary(),
		RateLimitedUntil:   until,
		RateLimitMessage:   msg,
	}
	if last := h.refresher.LastRun(); !last.IsZero() {
		resp.LastRefresh = &last
	}
	c.JSON(http.StatusOK, resp)
}

// ClearCache drops the client's conditional cache, cooldowns and rate
// limit state.
// @Summary Clear the sync client cache
// @Tags diagnostics
// @Produce json
// @Success 200 {object} map[string]string
// @Router /cache/clear [post]
func (h *Handler) ClearCache(c *gin.Context) {
	h.client.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "cache cleared"})
}
