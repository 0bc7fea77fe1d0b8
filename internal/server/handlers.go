package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apexcompute/apex-compute/internal/fastf1"
	"github.com/apexcompute/apex-compute/internal/laps"
)

// health godoc
// @Summary Health check
// @Tags Utility
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sessionInfo godoc
// @Summary Get session metadata
// @Description Returns basic session metadata plus the ordered driver list.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body SessionRequest true "Session descriptor"
// @Success 200 {object} SessionMetadata
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /session/info [post]
func (s *Server) sessionInfo(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	sess, err := s.loadSession(c, req, fastf1.DefaultLoadOptions())
	if err != nil {
		s.upstreamError(c, req, err)
		return
	}

	// A session without a usable driver list is still worth answering;
	// everything else about the load already succeeded.
	drivers, err := sess.Drivers()
	if err != nil {
		slog.Warn("Driver list unavailable", "requestId", c.GetString(requestIDKey), "year", req.Year, "gp", req.GP, "error", err)
		drivers = []string{}
	}
	if drivers == nil {
		drivers = []string{}
	}

	var name *string
	if n := sess.Name(); n != "" {
		name = &n
	}

	c.JSON(http.StatusOK, SessionMetadata{
		Year:        req.Year,
		GP:          req.GP,
		Session:     req.Session,
		SessionName: name,
		Drivers:     drivers,
	})
}

// sessionLaps godoc
// @Summary Get the session's lap table
// @Description Returns per-lap timing records, optionally narrowed to one driver.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body SessionRequest true "Session descriptor"
// @Param driver query string false "Driver identifier filter"
// @Success 200 {object} LapsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /session/laps [post]
func (s *Server) sessionLaps(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	// Telemetry, weather and message data are never served by this
	// endpoint, so skip fetching them.
	sess, err := s.loadSession(c, req, fastf1.LapsOnly())
	if err != nil {
		s.upstreamError(c, req, err)
		return
	}

	table := sess.Laps()
	if table == nil {
		table = laps.NewTable(nil)
	}

	if driver := c.Query("driver"); driver != "" {
		table = table.FilterDriver(driver)
	}

	records := table.Project(laps.RecordColumns).Records()

	c.JSON(http.StatusOK, LapsResponse{
		Count: len(records),
		Data:  records,
	})
}

// loadSession performs the single provider attempt for a request. No
// retries; concurrent identical requests each load independently.
func (s *Server) loadSession(c *gin.Context, req SessionRequest, opts fastf1.LoadOptions) (fastf1.Session, error) {
	slog.Info("Loading session", "requestId", c.GetString(requestIDKey), "year", req.Year, "gp", req.GP, "session", req.Session)

	sess, err := s.provider.GetSession(req.Year, req.GP, req.Session)
	if err != nil {
		return nil, err
	}
	if err := sess.Load(c.Request.Context(), opts); err != nil {
		return nil, err
	}
	return sess, nil
}

// upstreamError reports a provider failure. Bad input (unknown event) and
// provider unavailability deliberately collapse into the same shape, with
// the provider's message embedded verbatim.
func (s *Server) upstreamError(c *gin.Context, req SessionRequest, err error) {
	slog.Error("Session load failed", "requestId", c.GetString(requestIDKey), "year", req.Year, "gp", req.GP, "session", req.Session, "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Detail: fmt.Sprintf("FastF1 error: %v", err)})
}
