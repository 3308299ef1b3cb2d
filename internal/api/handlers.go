package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/JolanLar/lunager/internal/catalog"
)

// SyncTaskID is the scheduler task triggered by POST /api/v1/sync.
const SyncTaskID = "sync"

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleCandidates returns the deletion-candidate report. The threshold
// defaults to the configured inactivity window; an explicit ?days=N
// overrides it.
func (s *Server) handleCandidates(c echo.Context) error {
	days := s.cfg.Retention.ThresholdDays
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid days parameter")
		}
		days = parsed
	}

	report, err := s.classifier.CandidatesAfterInactivity(c.Request().Context(), days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleSync(c echo.Context) error {
	if err := s.sched.RunNow(SyncTaskID); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sched.ListTasks())
}

func (s *Server) handleListMedia(c echo.Context) error {
	kind, err := mediaKindParam(c)
	if err != nil {
		return err
	}

	titles, err := s.store.List(c.Request().Context(), kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, titles)
}

func (s *Server) handleProtect(c echo.Context) error {
	return s.setProtected(c, true)
}

func (s *Server) handleUnprotect(c echo.Context) error {
	return s.setProtected(c, false)
}

func (s *Server) setProtected(c echo.Context, protected bool) error {
	kind, err := mediaKindParam(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid media id")
	}

	if err := s.store.SetProtected(c.Request().Context(), kind, id, protected); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "title not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	s.logger.Info().
		Str("kind", string(kind)).
		Int64("externalId", id).
		Bool("protected", protected).
		Msg("Updated protection")
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handlePools(c echo.Context) error {
	pools, err := s.registry.Pools(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pools)
}

func (s *Server) handleBindings(c echo.Context) error {
	bindings, err := s.registry.Bindings(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, bindings)
}

func mediaKindParam(c echo.Context) (catalog.MediaKind, error) {
	kind := catalog.MediaKind(c.Param("kind"))
	if !kind.Valid() {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid media kind")
	}
	return kind, nil
}
