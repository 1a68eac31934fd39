package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "Screener/internal/domain/models"
	"Screener/internal/repository"
	icache "Screener/internal/service/cache"
	"Screener/internal/service/ratelimit"
	"Screener/internal/usecase"
	xhttp "Screener/pkg/http"
	xlogger "Screener/pkg/logger"
)

// ScreensHandler exposes the screen registry and run endpoints over Echo.
type ScreensHandler struct {
	logger   *xlogger.Logger
	service  *usecase.ScreenService
	jobs     *usecase.JobDispatcher
	rl       *ratelimit.Limiter
	rps      float64
	cache    icache.BytesCache
	cacheTTL time.Duration
}

func NewScreensHandler(
	logger *xlogger.Logger,
	service *usecase.ScreenService,
	jobs *usecase.JobDispatcher,
	rps float64,
) *ScreensHandler {
	return &ScreensHandler{
		logger:  logger,
		service: service,
		jobs:    jobs,
		rl:      ratelimit.New(),
		rps:     rps,
	}
}

// SetCache enables caching of synchronous run responses.
func (h *ScreensHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	h.cacheTTL = ttl
}

func (h *ScreensHandler) allow(c echo.Context, endpoint string) bool {
	if h.rps <= 0 {
		return true
	}
	return h.rl.Allow(c.RealIP()+":"+endpoint, h.rps*2, h.rps)
}

func (h *ScreensHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/screens", h.List)
	g.POST("/screens/:name/run", h.Run)
	g.POST("/screens/:name/jobs", h.Enqueue)
	g.GET("/jobs/:id", h.JobStatus)
}

func (h *ScreensHandler) List(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.service.List())
}

func (h *ScreensHandler) Run(c echo.Context) error {
	req := &models.RunScreenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	name := c.Param("name")
	if !h.allow(c, "run") {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limited"})
	}

	cacheKey := fmt.Sprintf("run:%s:%s:%s:%s", name, req.From, req.To, req.OnError)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
			var cached models.RunResult
			if json.Unmarshal(b, &cached) == nil {
				return xhttp.SuccessResponse(c, &cached)
			}
		}
	}

	res, err := h.service.Run(c.Request().Context(), name, req)
	if err != nil {
		h.logger.Error("screen run error",
			xlogger.String("screen", name), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			_ = h.cache.SetBytes(cacheKey, b, h.cacheTTL)
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScreensHandler) Enqueue(c echo.Context) error {
	req := &models.RunScreenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	name := c.Param("name")
	if !h.allow(c, "jobs") {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limited"})
	}

	st, err := h.jobs.Enqueue(c.Request().Context(), name, req)
	if err != nil {
		h.logger.Error("enqueue screen run",
			xlogger.String("screen", name), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, st)
}

func (h *ScreensHandler) JobStatus(c echo.Context) error {
	req := &models.JobStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.jobs.Status(c.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return xhttp.NotFoundResponse(c, map[string]string{"id": req.ID})
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, st)
}
