// Package api exposes the application table and the sync over JSON HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/carrierwatcher/carrierwatcher/model"
	"github.com/carrierwatcher/carrierwatcher/runner"
	"github.com/carrierwatcher/carrierwatcher/state"
	"github.com/carrierwatcher/carrierwatcher/store"
)

// Syncer runs the mail sync on demand.
type Syncer interface {
	RunOnce(ctx context.Context) (runner.Summary, error)
	LastSync() (time.Time, error)
}

type Server struct {
	echo   *echo.Echo
	store  runner.TableStore
	syncer Syncer
	logger *slog.Logger

	// mu serializes load, mutate and save sequences.
	mu sync.Mutex
}

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse struct {
	Applications store.IndexedTable `json:"applications"`
	Count        int                `json:"count"`
}

type filtersResponse struct {
	Statuses []model.Status `json:"statuses"`
	Domains  []string       `json:"domains"`
	Themes   []string       `json:"themes"`
}

type syncStateResponse struct {
	LastSync string `json:"last_sync"`
}

// NewServer wires the routes. syncer may be nil, in which case the sync
// endpoints report a configuration error.
func NewServer(tables runner.TableStore, syncer Syncer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		store:  tables,
		syncer: syncer,
		logger: logger,
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "id", v.RequestID)
			return nil
		},
	}))

	e.GET("/health", s.healthCheck)

	v1 := e.Group("/api/v1")
	v1.GET("/applications", s.listApplications)
	v1.POST("/applications", s.createApplication)
	v1.PUT("/applications/:index", s.updateApplication)
	v1.DELETE("/applications/:index", s.deleteApplication)
	v1.GET("/metrics", s.metrics)
	v1.GET("/filters", s.filters)
	v1.GET("/sync", s.syncState)
	v1.POST("/sync", s.runSync)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	s.logger.Info("starting HTTP server", "address", address)
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "carrierwatcher",
	})
}

func (s *Server) listApplications(c echo.Context) error {
	table, err := s.store.Load()
	if err != nil {
		return err
	}
	params := c.QueryParams()
	criteria := store.Criteria{
		Domains: params["domain"],
		Themes:  params["theme"],
	}
	for _, st := range params["status"] {
		criteria.Statuses = append(criteria.Statuses, model.Status(st))
	}
	rows := store.Select(table, criteria)
	if rows == nil {
		rows = store.IndexedTable{}
	}
	return c.JSON(http.StatusOK, listResponse{Applications: rows, Count: len(rows)})
}

func (s *Server) createApplication(c echo.Context) error {
	var in store.Input
	if err := c.Bind(&in); err != nil {
		return model.ValidationError("decode application", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.store.Load()
	if err != nil {
		return err
	}
	table, err = store.Add(table, in)
	if err != nil {
		return err
	}
	if err := s.store.Save(table); err != nil {
		return err
	}
	index := len(table) - 1
	s.logger.Info("application added", "index", index, "company", table[index].Company)
	return c.JSON(http.StatusCreated, store.IndexedRow{Index: index, Application: table[index]})
}

func (s *Server) updateApplication(c echo.Context) error {
	index, err := rowIndex(c)
	if err != nil {
		return err
	}
	var in store.Input
	if err := c.Bind(&in); err != nil {
		return model.ValidationError("decode application", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.store.Load()
	if err != nil {
		return err
	}
	table, err = store.Update(table, index, in)
	if err != nil {
		return err
	}
	if err := s.store.Save(table); err != nil {
		return err
	}
	s.logger.Info("application updated", "index", index, "company", table[index].Company)
	return c.JSON(http.StatusOK, store.IndexedRow{Index: index, Application: table[index]})
}

func (s *Server) deleteApplication(c echo.Context) error {
	index, err := rowIndex(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.store.Load()
	if err != nil {
		return err
	}
	table, err = store.Delete(table, index)
	if err != nil {
		return err
	}
	if err := s.store.Save(table); err != nil {
		return err
	}
	s.logger.Info("application deleted", "index", index)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) metrics(c echo.Context) error {
	table, err := s.store.Load()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, store.ComputeMetrics(table))
}

func (s *Server) filters(c echo.Context) error {
	table, err := s.store.Load()
	if err != nil {
		return err
	}
	domains, themes := store.Options(table)
	if domains == nil {
		domains = []string{}
	}
	if themes == nil {
		themes = []string{}
	}
	return c.JSON(http.StatusOK, filtersResponse{Statuses: model.Statuses, Domains: domains, Themes: themes})
}

func (s *Server) syncState(c echo.Context) error {
	if s.syncer == nil {
		return errSyncDisabled
	}
	last, err := s.syncer.LastSync()
	if err != nil {
		return err
	}
	resp := syncStateResponse{}
	if !last.IsZero() {
		resp.LastSync = state.FormatTimestamp(last)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) runSync(c echo.Context) error {
	if s.syncer == nil {
		return errSyncDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.syncer.RunOnce(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

var errSyncDisabled = model.ConfigurationError("sync", errors.New("no message source is configured"))

func rowIndex(c echo.Context) (int, error) {
	raw := c.Param("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.ValidationError("select application", fmt.Errorf("invalid row index %q", raw))
	}
	return index, nil
}

// StatusCode maps an error to the HTTP status it is reported with.
func StatusCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindAuthentication:
		return http.StatusUnauthorized
	case model.KindConfiguration:
		return http.StatusFailedDependency
	case model.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := StatusCode(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "status", code, "err", err)
	} else {
		s.logger.Warn("request rejected", "method", c.Request().Method, "path", c.Path(), "status", code, "err", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Error("write error response", "err", err)
	}
}
