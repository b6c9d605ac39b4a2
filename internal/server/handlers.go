package server

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	vectra "github.com/hupe1980/vectra"
	"github.com/hupe1980/vectra/collection"
	"github.com/hupe1980/vectra/metadata"
)

type createRequest struct {
	DB        string `json:"db"`
	Dimension int    `json:"dimension"`
}

type insertRequest struct {
	Values []float64         `json:"values"`
	Meta   map[string]string `json:"meta"`
}

type insertResponse struct {
	DB    string `json:"db"`
	Count int    `json:"count"`
}

type findRequest struct {
	Values []float64 `json:"values"`
	K      int       `json:"k"`
	Metric string    `json:"metric"`
}

type findHit struct {
	Index    int               `json:"index"`
	Distance float64           `json:"distance"`
	Values   []float64         `json:"values"`
	Meta     map[string]string `json:"meta,omitempty"`
}

type findResponse struct {
	DB      string    `json:"db"`
	Metric  string    `json:"metric"`
	Results []findHit `json:"results"`
}

type infoResponse struct {
	DB        string                   `json:"db"`
	Dimension int                      `json:"dimension"`
	Count     int                      `json:"count"`
	Schema    []collection.SchemaField `json:"schema"`
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(c echo.Context) error {
	stats := map[string]any{
		"cache": s.engine.Stats(),
	}
	if basic, ok := s.engine.Metrics().(*vectra.BasicMetricsCollector); ok {
		stats["operations"] = basic.GetStats()
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCreate(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed create request")
	}
	if req.DB == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "db name is required")
	}
	if req.Dimension <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "dimension must be positive")
	}

	if err := s.engine.Create(c.Request().Context(), req.DB, req.Dimension); err != nil {
		return mapEngineError(err)
	}
	return c.String(http.StatusOK, fmt.Sprintf("created db '%s' with dimension %d", req.DB, req.Dimension))
}

func (s *Server) handleInsert(c echo.Context) error {
	name := c.Param("name")

	var req insertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed insert request")
	}
	if len(req.Values) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "values are required")
	}

	count, err := s.engine.Insert(c.Request().Context(), name, req.Values, metaFromRequest(req.Meta))
	if err != nil {
		return mapEngineError(err)
	}
	return c.JSON(http.StatusOK, insertResponse{DB: name, Count: count})
}

func (s *Server) handleFind(c echo.Context) error {
	name := c.Param("name")

	var req findRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed find request")
	}
	if len(req.Values) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "values are required")
	}
	if req.Metric == "" {
		req.Metric = "eu"
	}

	ctx := c.Request().Context()
	if err := s.findSemaphore.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server busy")
	}
	defer s.findSemaphore.Release(1)

	results, err := s.engine.Find(ctx, name, req.Values, req.K, req.Metric)
	if err != nil {
		return mapEngineError(err)
	}

	hits := make([]findHit, len(results))
	for i, r := range results {
		hits[i] = findHit{
			Index:    r.Index,
			Distance: r.Distance,
			Values:   r.Values,
			Meta:     metaToResponse(r.Meta),
		}
	}
	return c.JSON(http.StatusOK, findResponse{DB: name, Metric: req.Metric, Results: hits})
}

func (s *Server) handleInfo(c echo.Context) error {
	name := c.Param("name")

	info, err := s.engine.Info(c.Request().Context(), name)
	if err != nil {
		return mapEngineError(err)
	}
	return c.JSON(http.StatusOK, infoResponse{
		DB:        info.Name,
		Dimension: info.Dimension,
		Count:     info.Count,
		Schema:    info.Schema,
	})
}

// metaFromRequest converts the wire meta map to ordered entries. Keys
// are sorted so the stored order is deterministic; every value arrives
// as a string on this surface.
func metaFromRequest(meta map[string]string) metadata.Entries {
	if len(meta) == 0 {
		return nil
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make(metadata.Entries, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, metadata.Entry{Key: k, Value: metadata.String(meta[k])})
	}
	return entries
}

// metaToResponse renders entries as a canonical-string map. Duplicate
// keys collapse last-wins on this surface; the full ordered list stays
// intact in storage.
func metaToResponse(meta metadata.Entries) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for _, e := range meta {
		out[e.Key] = e.Value.String()
	}
	return out
}

// mapEngineError translates the engine taxonomy to HTTP status codes.
func mapEngineError(err error) error {
	var (
		dimMismatch   *vectra.ErrDimensionMismatch
		unknownMetric *vectra.ErrUnknownMetric
		alreadyExists *vectra.ErrAlreadyExists
		corrupt       *vectra.ErrCorruptData
	)

	switch {
	case errors.As(err, &dimMismatch), errors.As(err, &unknownMetric),
		errors.Is(err, vectra.ErrEmptyMetadataKey):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, vectra.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &alreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &corrupt):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
