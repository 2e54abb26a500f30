// file: internal/server/handlers.go
// version: 1.0.0
// guid: 4101ced6-7d45-4dd2-9836-a399a281766d

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/cpe-resolver/internal/database"
	"github.com/jdfalk/cpe-resolver/internal/logging"
	"github.com/jdfalk/cpe-resolver/internal/server/middleware"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

func (s *Server) healthCheck(c *gin.Context) {
	data := gin.H{
		"retrieval_mode": s.deps.Mode,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	status := "ok"
	if s.deps.Catalog != nil {
		n, err := s.deps.Catalog.CountCatalog(c.Request.Context())
		if err != nil {
			status = "degraded"
			data["catalog_error"] = err.Error()
		} else {
			data["catalog_entries"] = n
		}
	}
	c.JSON(http.StatusOK, NewStatusResponse(status, "", data))
}

func (s *Server) resolve(c *gin.Context) {
	if s.deps.Resolver == nil {
		RespondWithUnavailable(c, "resolver not configured")
		return
	}
	var req ResolveRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if err := ValidateAliases(req.Aliases, s.cfg.MaxBatchSize); err != nil {
		var ve ValidationError
		if errors.As(err, &ve) {
			RespondWithError(c, http.StatusBadRequest, ve.Error(), ve.Code)
			return
		}
		RespondWithBadRequest(c, err.Error())
		return
	}

	log := logging.NewServiceLogger("server", middleware.GetRequestID(c))
	stop := log.LogExecutionTime("resolve")
	runID, recs := s.deps.Resolver.ResolveBatch(c.Request.Context(), req.Aliases, nil)
	log.LogOperation("resolve", map[string]any{"run_id": runID, "aliases": len(req.Aliases), "elapsed": stop()})

	c.JSON(http.StatusOK, NewResolveResponse(runID, recs))
}

func (s *Server) listRuns(c *gin.Context) {
	if s.deps.Runs == nil {
		RespondWithUnavailable(c, "result store not configured")
		return
	}
	limit := ParseLimit(c, defaultRunsLimit, maxRunsLimit)
	runs, err := s.deps.Runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		RespondWithInternalError(c, "failed to list runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []database.RunSummary{}
	}
	c.JSON(http.StatusOK, NewListResponse(runs, len(runs), limit))
}

func (s *Server) getRun(c *gin.Context) {
	if s.deps.Runs == nil {
		RespondWithUnavailable(c, "result store not configured")
		return
	}
	id := c.Param("id")
	if err := ValidateRunID(id); err != nil {
		RespondWithValidationError(c, "id", err.Error())
		return
	}
	recs, err := s.deps.Runs.GetRun(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "run", id)
		return
	}
	if err != nil {
		RespondWithInternalError(c, "failed to load run: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, NewListResponse(recs, len(recs), len(recs)))
}

func (s *Server) importCatalog(c *gin.Context) {
	if s.deps.Catalog == nil {
		RespondWithUnavailable(c, "catalog not configured")
		return
	}
	res, err := database.ImportCPEs(c.Request.Context(), s.deps.Catalog, c.Request.Body, 0, nil)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondWithError(c, http.StatusRequestEntityTooLarge, "request body too large", "TOO_LARGE")
		return
	}
	if err != nil {
		RespondWithInternalError(c, "catalog import failed: "+err.Error())
		return
	}
	if res.Inserted > 0 && s.deps.Index != nil {
		s.deps.Index.Invalidate()
	}
	RespondWithOK(c, res)
}
