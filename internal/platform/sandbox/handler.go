package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/burnout/internal/domain/workforce"
	"github.com/ehr/burnout/internal/platform/events"
	"github.com/ehr/burnout/internal/platform/export"
	"github.com/ehr/burnout/pkg/pagination"
)

// Persister stores a freshly generated dataset somewhere durable.
type Persister interface {
	Load(ctx context.Context, ds *workforce.Dataset) (map[string]int64, error)
}

// EventPublisher receives run lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// SeedHandler exposes dataset generation and read access over HTTP.
type SeedHandler struct {
	seeder    *Seeder
	persister Persister
	publisher EventPublisher
	logger    zerolog.Logger
	mu        sync.Mutex // serializes regeneration
}

// NewSeedHandler creates a handler around seeder. persister may be nil.
func NewSeedHandler(seeder *Seeder, persister Persister, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{seeder: seeder, persister: persister, logger: logger}
}

// SetPublisher makes the handler announce each regeneration on pub.
func (h *SeedHandler) SetPublisher(pub EventPublisher) {
	h.publisher = pub
}

func (h *SeedHandler) publish(ctx context.Context, typ string, result *SeedResult, data any) {
	if h.publisher == nil {
		return
	}
	ev := events.Event{Type: typ, Topic: events.TopicRuns, RunID: result.RunID.String()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			h.logger.Warn().Err(err).Str("event", typ).Msg("encode event payload")
			return
		}
		ev.Data = raw
	}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		h.logger.Warn().Err(err).Str("event", typ).Msg("publish event")
	}
}

// RegisterRoutes registers dataset routes on the given Echo group.
// writeMW wraps only the routes that replace or drop the dataset.
func (h *SeedHandler) RegisterRoutes(g *echo.Group, writeMW ...echo.MiddlewareFunc) {
	g.POST("/datasets", h.handleGenerate, writeMW...)
	g.DELETE("/datasets/current", h.handleReset, writeMW...)
	g.GET("/datasets/current", h.handleCurrent)
	g.GET("/tables", h.handleListTables)
	g.GET("/tables/:name", h.handleListRecords)
	g.GET("/tables/:name/export", h.handleExport)
	g.GET("/providers/:id/assessments", h.handleProviderAssessments)
}

type generateRequest struct {
	Seed int64 `json:"seed"`
}

type tableSummary struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

type generateResponse struct {
	*SeedResult
	Persisted map[string]int64 `json:"persisted,omitempty"`
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (h *SeedHandler) handleGenerate(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	result, err := h.seeder.GenerateWithSeed(req.Seed)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	ctx := c.Request().Context()
	h.publish(ctx, events.TypeRunGenerated, result, result)

	resp := generateResponse{SeedResult: result}
	if h.persister != nil {
		counts, err := h.persister.Load(ctx, h.seeder.Dataset())
		if err != nil {
			h.logger.Error().Err(err).Str("run_id", result.RunID.String()).Msg("persist dataset")
			h.publish(ctx, events.TypeRunFailed, result, map[string]string{"error": err.Error()})
			return errorJSON(c, http.StatusBadGateway, fmt.Sprintf("dataset generated but not persisted: %v", err))
		}
		resp.Persisted = counts
		h.publish(ctx, events.TypeRunPersisted, result, counts)
	}
	return c.JSON(http.StatusCreated, resp)
}

// handleReset drops the in-memory dataset. Readers get 409 until the next
// regeneration; rows already loaded into Postgres are left in place.
func (h *SeedHandler) handleReset(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if result := h.seeder.Result(); result != nil {
		h.seeder.Reset()
		h.publish(c.Request().Context(), events.TypeRunReset, result, nil)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

func (h *SeedHandler) handleCurrent(c echo.Context) error {
	result := h.seeder.Result()
	if result == nil {
		return errorJSON(c, http.StatusConflict, ErrNoDataset.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *SeedHandler) handleListTables(c echo.Context) error {
	ds := h.seeder.Dataset()
	if ds == nil {
		return errorJSON(c, http.StatusConflict, ErrNoDataset.Error())
	}
	out := make([]tableSummary, 0, len(workforce.TableNames))
	for _, t := range ds.Tables() {
		out = append(out, tableSummary{Name: t.Name, Rows: t.Len(), Columns: t.Columns})
	}
	return c.JSON(http.StatusOK, out)
}

// table resolves :name against the current dataset, writing the error
// response itself when it cannot.
func (h *SeedHandler) table(c echo.Context) (workforce.Table, bool, error) {
	ds := h.seeder.Dataset()
	if ds == nil {
		return workforce.Table{}, false, errorJSON(c, http.StatusConflict, ErrNoDataset.Error())
	}
	t, err := ds.Table(c.Param("name"))
	if errors.Is(err, workforce.ErrUnknownTable) {
		return workforce.Table{}, false, errorJSON(c, http.StatusNotFound, err.Error())
	}
	return t, true, nil
}

func (h *SeedHandler) handleListRecords(c echo.Context) error {
	t, ok, err := h.table(c)
	if !ok {
		return err
	}
	p := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(t.Page(p.Offset, p.Limit), t.Len(), p))
}

func (h *SeedHandler) handleExport(c echo.Context) error {
	t, ok, err := h.table(c)
	if !ok {
		return err
	}

	name := c.QueryParam("format")
	if name == "" {
		name = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	res := c.Response()
	switch format {
	case export.FormatCSV:
		res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	case export.FormatNDJSON:
		res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	case export.FormatXLSX:
		res.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", t.Name+"."+string(format)))
	res.WriteHeader(http.StatusOK)

	switch format {
	case export.FormatNDJSON:
		return export.WriteNDJSON(res, t)
	case export.FormatXLSX:
		return export.WriteWorkbook(res, []workforce.Table{t})
	default:
		return export.WriteCSV(res, t)
	}
}

func (h *SeedHandler) handleProviderAssessments(c echo.Context) error {
	ds := h.seeder.Dataset()
	if ds == nil {
		return errorJSON(c, http.StatusConflict, ErrNoDataset.Error())
	}
	id := c.Param("id")
	provider, ok := ds.Provider(id)
	if !ok {
		return errorJSON(c, http.StatusNotFound, fmt.Sprintf("provider %q not found", id))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"provider":    provider,
		"assessments": ds.AssessmentsFor(id),
	})
}
