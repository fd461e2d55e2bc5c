package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
	"SRZones/internal/usecase"
	xhttp "SRZones/pkg/http"
	xlogger "SRZones/pkg/logger"
	"SRZones/pkg/util"
)

// ZonesEchoHandler serves stored zone calendars.
type ZonesEchoHandler struct {
	logger *xlogger.Logger
	query  *usecase.ZonesQuery
}

func NewZonesEchoHandler(logger *xlogger.Logger, query *usecase.ZonesQuery) *ZonesEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ZonesEchoHandler{logger: logger, query: query}
}

func (h *ZonesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/zones", h.Zones)
	g.GET("/calendar", h.Calendar)
	g.GET("/levels", h.Levels)
}

func (h *ZonesEchoHandler) Zones(c echo.Context) error {
	req := &models.ZonesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pair, err := models.ParsePair(req.Pair)
	if err != nil {
		return h.fail(c, "zones", err)
	}
	date, err := util.ParseDate(req.Date)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestFieldError("date", err.Error()))
	}

	zones, err := h.query.ZonesOn(c.Request().Context(), pair, date)
	if err != nil {
		return h.fail(c, "zones", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, models.ZonesResponse{
		Pair:  pair.String(),
		Date:  date.Format(models.DateLayout),
		Zones: zones,
	})
}

func (h *ZonesEchoHandler) Calendar(c echo.Context) error {
	pair, req, ok, err := h.readRange(c)
	if !ok {
		return err
	}
	days, err := h.query.CalendarRange(c.Request().Context(), pair, req.from, req.to)
	if err != nil {
		return h.fail(c, "calendar", err)
	}
	out := models.CalendarResponse{
		Pair: pair.String(),
		From: req.from.Format(models.DateLayout),
		To:   req.to.Format(models.DateLayout),
		Days: make([]models.DayDocument, 0, len(days)),
	}
	for _, d := range days {
		zones := d.Zones
		if zones == nil {
			zones = []float64{}
		}
		out.Days = append(out.Days, models.DayDocument{Date: d.Date.Format(models.DateLayout), Zones: zones})
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *ZonesEchoHandler) Levels(c echo.Context) error {
	pair, req, ok, err := h.readRange(c)
	if !ok {
		return err
	}
	levels, err := h.query.Levels(c.Request().Context(), pair, req.from, req.to)
	if err != nil {
		return h.fail(c, "levels", err)
	}
	out := models.LevelsResponse{
		Pair:   pair.String(),
		From:   req.from.Format(models.DateLayout),
		To:     req.to.Format(models.DateLayout),
		Levels: make([]models.LevelResponse, 0, len(levels)),
	}
	for _, lv := range levels {
		out.Levels = append(out.Levels, models.LevelResponse{
			Price: lv.Price,
			Start: lv.Start.Format(models.DateLayout),
			End:   lv.End.Format(models.DateLayout),
		})
	}
	return xhttp.SuccessResponse(c, out)
}

type dateRange struct {
	from, to time.Time
}

// readRange binds a RangeRequest. When ok is false the response has been
// written and err is what the handler returns.
func (h *ZonesEchoHandler) readRange(c echo.Context) (models.Pair, dateRange, bool, error) {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return models.Pair{}, dateRange{}, false, xhttp.BadRequestResponse(c, verr)
	}
	pair, err := models.ParsePair(req.Pair)
	if err != nil {
		return models.Pair{}, dateRange{}, false, h.fail(c, "range", err)
	}
	from, err := util.ParseDate(req.From)
	if err != nil {
		return models.Pair{}, dateRange{}, false, xhttp.AppErrorResponse(c, xhttp.BadRequestFieldError("from", err.Error()))
	}
	to, err := util.ParseDate(req.To)
	if err != nil {
		return models.Pair{}, dateRange{}, false, xhttp.AppErrorResponse(c, xhttp.BadRequestFieldError("to", err.Error()))
	}
	return pair, dateRange{from: from, to: to}, true, nil
}

// fail maps domain errors onto API errors.
func (h *ZonesEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, models.ErrInvalidPair):
		appErr = xhttp.BadRequestFieldError("pair", err.Error())
	case errors.Is(err, usecase.ErrInvalidRange):
		appErr = xhttp.BadRequestFieldError("from", "from must not be after to")
	case errors.Is(err, domrepo.ErrCalendarNotFound), errors.Is(err, usecase.ErrDateNotFound):
		appErr = xhttp.NotFoundErrorf("%s", err.Error())
	default:
		h.logger.Error("zones api error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
		appErr = xhttp.InternalError(http.StatusText(http.StatusInternalServerError)).WithError(err)
	}
	return xhttp.AppErrorResponse(c, appErr)
}
