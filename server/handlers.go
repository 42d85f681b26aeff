package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/common/expfmt"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/ingest"
	"github.com/ceyewan/pushgate/xerrors"
)

// HealthResponse GET /api/health
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse GET /api/status
type StatusResponse struct {
	Status        string `json:"status"`
	Families      int    `json:"families"`
	Series        int    `json:"series"`
	Sources       int    `json:"sources"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	StartTime     string `json:"start_time"`
	Version       string `json:"version"`
}

func (s *Server) handleIngest(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.abort(c, http.StatusRequestEntityTooLarge, xerrors.Wrapf(ingest.ErrBatchTooLarge, "body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.abort(c, http.StatusBadRequest, xerrors.Wrapf(ingest.ErrMalformedBatch, "read body: %v", err))
		return
	}

	batch, err := ingest.Decode(c.GetHeader("Content-Type"), body)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}

	res, err := s.svc.IngestBatch(ctx, ingest.TransportHTTP, batch)
	if err != nil {
		s.abort(c, statusOf(err), err)
		return
	}

	status := http.StatusOK
	if res.AllFailed() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, ingest.NewResponse(res))
}

func (s *Server) abort(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "ingest request failed", clog.Error(err))
	}
	c.AbortWithStatusJSON(status, ingest.NewErrorResponse(err))
}

// statusOf 请求级错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case xerrors.Is(err, ingest.ErrRateLimited):
		return http.StatusTooManyRequests
	case xerrors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleScrape 先完整渲染再写出，渲染失败时可以返回 500
func (s *Server) handleScrape(c *gin.Context) {
	format := expfmt.Negotiate(c.Request.Header)

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, format); err != nil {
		s.logger.ErrorContext(c.Request.Context(), "render failed", clog.Error(err))
		c.String(http.StatusInternalServerError, "render failed: %v", err)
		return
	}
	c.Data(http.StatusOK, string(format), buf.Bytes())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   s.opts.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	stats := s.svc.Engine().Store().Stats()
	c.JSON(http.StatusOK, StatusResponse{
		Status:        "running",
		Families:      stats.Families,
		Series:        stats.Series,
		Sources:       s.svc.Sources(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		StartTime:     s.started.UTC().Format(time.RFC3339),
		Version:       s.opts.version,
	})
}
