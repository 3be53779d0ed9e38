package api

import (
	"errors"
	"net/http"
	"time"

	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/saga"
	"MarketWatch/internal/strategy"
	"MarketWatch/internal/usecase"
	apphttp "MarketWatch/pkg/http"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// WatcherStatus reports the observable state of a running watcher saga.
type WatcherStatus interface {
	State() saga.State
}

// AdminHandler exposes the operational API: health, strategy registry
// administration and watcher introspection.
type AdminHandler struct {
	strategies *strategy.Registry
	classify   *usecase.ClassifyUseCase
	consensus  domrepo.ConsensusReader
	watchers   map[string]WatcherStatus
	pluginDir  string
	period     string
	log        *logger.Logger
}

// NewAdminHandler wires the admin API over the shared registries. watchers
// maps exchange name to its running saga and may be empty; consensus is nil
// when no result store is configured.
func NewAdminHandler(
	strategies *strategy.Registry,
	classify *usecase.ClassifyUseCase,
	consensus domrepo.ConsensusReader,
	watchers map[string]WatcherStatus,
	pluginDir string,
	period string,
	log *logger.Logger,
) *AdminHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AdminHandler{
		strategies: strategies,
		classify:   classify,
		consensus:  consensus,
		watchers:   watchers,
		pluginDir:  pluginDir,
		period:     period,
		log:        log.With("api"),
	}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/strategies", h.ListStrategies)
	g.DELETE("/strategies/:name", h.RemoveStrategy)
	g.POST("/strategies/reload", h.ReloadStrategies)
	g.GET("/watchers", h.Watchers)
	g.GET("/symbols/:name", h.Symbol)
	g.GET("/consensus/:symbol", h.Consensus)
}

// Health responds 200 while the process is serving.
func (h *AdminHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// strategyView is the wire representation of a registered strategy.
type strategyView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        int    `json:"type"`
	Priority    int    `json:"priority"`
}

// ListStrategies returns every registered strategy in registration order.
func (h *AdminHandler) ListStrategies(c echo.Context) error {
	views := lo.Map(h.strategies.All(), func(s strategy.Strategy, _ int) strategyView {
		return strategyView{
			Name:        s.Name(),
			Description: s.Description(),
			Type:        int(s.Type()),
			Priority:    s.Priority(),
		}
	})
	return apphttp.ListResponse(c, views, int64(len(views)))
}

// RemoveStrategy unregisters a strategy by name. Removal takes effect on the
// next consensus evaluation.
func (h *AdminHandler) RemoveStrategy(c echo.Context) error {
	name := c.Param("name")
	if err := h.strategies.Remove(name); err != nil {
		if errors.Is(err, strategy.ErrNotFound) {
			return apphttp.AppErrorResponse(c, apphttp.NotFoundErrorf("strategy %q is not registered", name))
		}
		return apphttp.AppErrorResponse(c, apphttp.InternalError("remove strategy").WithError(err))
	}
	h.log.Info("strategy removed", logger.String("strategy", name))
	return apphttp.NoContentResponse(c)
}

// ReloadStrategies rescans the plugin directory and registers or updates the
// strategies found there.
func (h *AdminHandler) ReloadStrategies(c echo.Context) error {
	if h.pluginDir == "" {
		return apphttp.AppErrorResponse(c, apphttp.BadRequestError("no strategy plugin directory configured"))
	}
	if err := h.strategies.Reload(h.pluginDir); err != nil {
		return apphttp.AppErrorResponse(c, apphttp.InternalError("reload strategies").WithError(err))
	}
	h.log.Info("strategies reloaded", logger.Int("registered", h.strategies.Len()))
	return apphttp.SuccessResponse(c, map[string]int{"registered": h.strategies.Len()})
}

// Watchers reports the state of every watcher saga keyed by exchange.
func (h *AdminHandler) Watchers(c echo.Context) error {
	states := make(map[string]string, len(h.watchers))
	for name, w := range h.watchers {
		states[name] = w.State().String()
	}
	return apphttp.SuccessResponse(c, states)
}

// Consensus returns stored consensus results for a symbol. from/to accept
// RFC3339 or unix seconds and default to the last 24 hours, aligned to the
// configured candle period.
func (h *AdminHandler) Consensus(c echo.Context) error {
	if h.consensus == nil {
		return apphttp.AppErrorResponse(c, apphttp.NotFoundError("no consensus store configured"))
	}

	now := time.Now().UTC()
	from := util.ParseTimeDefault(c.QueryParam("from"), now.Add(-24*time.Hour))
	to := util.ParseTimeDefault(c.QueryParam("to"), now)
	from, to = util.AlignFromTo(from, to, h.period)

	results, err := h.consensus.QueryConsensus(c.Request().Context(), domrepo.ConsensusQuery{
		Symbol: c.Param("symbol"),
		From:   from,
		To:     to,
		Limit:  util.ParseIntDefault(c.QueryParam("limit"), 100),
	})
	if err != nil {
		return apphttp.AppErrorResponse(c, apphttp.InternalError("query consensus").WithError(err))
	}
	return apphttp.ListResponse(c, results, int64(len(results)))
}

// Symbol returns the cached descriptor of a symbol from the last valid batch.
func (h *AdminHandler) Symbol(c echo.Context) error {
	name := c.Param("name")
	desc, err := h.classify.ResolveDescriptor(c.Request().Context(), name)
	if err != nil {
		return apphttp.AppErrorResponse(c, apphttp.InternalError("resolve symbol").WithError(err))
	}
	if desc == nil {
		return apphttp.AppErrorResponse(c, apphttp.NotFoundErrorf("symbol %q is not in the current valid set", name))
	}
	return apphttp.SuccessResponse(c, desc)
}
