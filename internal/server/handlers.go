package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cell-counter/internal/api"
	"cell-counter/internal/imaging"
	"cell-counter/internal/monitor"
	"cell-counter/internal/roi"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errQueueFull = errors.New("all workers are busy")

func (s *Server) handleCount(c *gin.Context) {
	s.metrics.Requests.Inc()
	id := uuid.NewString()

	data, err := s.readImage(c)
	if err != nil {
		s.metrics.Fail(monitor.FailInvalidImage)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{ID: id, Error: err.Error()})
		return
	}

	j := job{id: id, image: data, result: make(chan jobResult, 1)}
	select {
	case s.jobs <- j:
		s.metrics.QueueDepth.Set(float64(len(s.jobs)))
	default:
		s.metrics.Fail(monitor.FailBusy)
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{ID: id, Error: errQueueFull.Error()})
		return
	}

	timer := time.NewTimer(s.cfg.RequestTimeout)
	defer timer.Stop()

	var r jobResult
	select {
	case r = <-j.result:
	case <-c.Request.Context().Done():
		s.log.Info("client went away", zap.String("id", id))
		return
	case <-timer.C:
		s.metrics.Fail(monitor.FailInternal)
		c.JSON(http.StatusGatewayTimeout, api.ErrorResponse{ID: id, Error: "count timed out"})
		return
	}

	if r.err != nil {
		status, kind := classify(r.err)
		s.metrics.Fail(kind)
		s.log.Warn("count failed", zap.String("id", id), zap.Int("status", status), zap.Error(r.err))
		c.JSON(status, api.ErrorResponse{ID: id, Error: r.err.Error()})
		return
	}

	s.metrics.Observe(r.res.Count(), r.res.Duration)
	resp := api.CountResponse{
		ID:     id,
		Count:  r.res.Count(),
		Cells:  r.res.Cells,
		Millis: r.res.Duration.Milliseconds(),
	}
	if r.res.DishFound {
		circle := r.res.Circle
		resp.Circle = &circle
	}
	c.JSON(http.StatusOK, resp)
}

// classify maps a pipeline error to an HTTP status and a failure kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, imaging.ErrUnsupportedImage), errors.Is(err, roi.ErrInvalidImageShape):
		return http.StatusBadRequest, monitor.FailInvalidImage
	case errors.Is(err, roi.ErrDegenerateEdgeMap):
		return http.StatusUnprocessableEntity, monitor.FailNoDish
	default:
		return http.StatusInternalServerError, monitor.FailInternal
	}
}

// readImage takes the upload from the multipart "image" field, or the raw
// body for any other content type.
func (s *Server) readImage(c *gin.Context) ([]byte, error) {
	limit := s.cfg.MaxUploadMB << 20
	if limit <= 0 {
		limit = 64 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile(api.ImageField)
		if err != nil {
			return nil, fmt.Errorf("missing %q form file: %w", api.ImageField, err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readAll(f)
	}
	return readAll(c.Request.Body)
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	return data, nil
}
