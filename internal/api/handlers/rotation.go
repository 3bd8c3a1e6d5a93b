package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/irfndi/sector-rotation-go/internal/rotation"
	"github.com/irfndi/sector-rotation-go/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	dateLayout = "2006-01-02"

	// DefaultMaxUploadBytes caps watchlist uploads when no limit is configured.
	DefaultMaxUploadBytes int64 = 1 << 20
	defaultListLimit            = 20
)

// RotationService is the report API the handler serves.
type RotationService interface {
	BuildReport(ctx context.Context, req models.ReportRequest) (*models.RotationReport, error)
	GetReport(ctx context.Context, id string) (*models.RotationReport, error)
	ListReports(ctx context.Context, limit int) ([]models.ReportSummary, error)
	Heatmap(ctx context.Context, id string, from, to time.Time, sectors []string) (*models.HeatmapView, error)
}

type RotationHandler struct {
	service        RotationService
	maxUploadBytes int64
	logger         *logrus.Logger
}

type ReportListResponse struct {
	Reports []models.ReportSummary `json:"reports"`
	Count   int                    `json:"count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func NewRotationHandler(service RotationService, maxUploadBytes int64, logger *logrus.Logger) *RotationHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RotationHandler{service: service, maxUploadBytes: maxUploadBytes, logger: logger}
}

// GetReport builds a report for the tickers in the query string.
func (h *RotationHandler) GetReport(c *gin.Context) {
	tickers, err := utils.ParseTickerList(c.Query("tickers"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	req, err := parseReportWindow(c.Query("start"), c.Query("end"), c.Query("lookback"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	req.Tickers = tickers

	h.build(c, req)
}

// UploadWatchlist builds a report for the tickers in an uploaded CSV file.
func (h *RotationHandler) UploadWatchlist(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "watchlist file is too large"})
			return
		}
		h.writeError(c, utils.NewFieldError("file", "a CSV file upload is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, utils.NewFieldError("file", "could not read upload"))
		return
	}
	defer func() { _ = file.Close() }()

	tickers, err := ParseWatchlistCSV(file)
	if err != nil {
		h.writeError(c, err)
		return
	}

	req, err := parseReportWindow(c.PostForm("start"), c.PostForm("end"), c.PostForm("lookback"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	req.Tickers = tickers

	h.build(c, req)
}

func (h *RotationHandler) build(c *gin.Context, req models.ReportRequest) {
	report, err := h.service.BuildReport(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetStoredReport returns a persisted report.
func (h *RotationHandler) GetStoredReport(c *gin.Context) {
	report, err := h.service.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListReports returns the newest stored reports.
func (h *RotationHandler) ListReports(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(c, utils.NewFieldError("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	reports, err := h.service.ListReports(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReportListResponse{Reports: reports, Count: len(reports)})
}

// GetHeatmap returns the windowed intensity view of a stored report.
func (h *RotationHandler) GetHeatmap(c *gin.Context) {
	from, err := parseDate("from", c.Query("from"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	to, err := parseDate("to", c.Query("to"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var sectors []string
	for _, raw := range c.QueryArray("sectors") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sectors = append(sectors, s)
			}
		}
	}

	view, err := h.service.Heatmap(c.Request.Context(), c.Param("id"), from, to, sectors)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// writeError maps service errors onto HTTP statuses.
func (h *RotationHandler) writeError(c *gin.Context, err error) {
	var validation *utils.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validation.Message, Field: validation.Field})
	case utils.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, rotation.ErrEmptyDataset):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "no usable data"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out"})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Rotation request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func parseReportWindow(start, end, lookback string) (models.ReportRequest, error) {
	var req models.ReportRequest
	var err error
	if req.Start, err = parseDate("start", start); err != nil {
		return req, err
	}
	if req.End, err = parseDate("end", end); err != nil {
		return req, err
	}
	if lookback != "" {
		n, err := strconv.Atoi(lookback)
		if err != nil || n <= 0 {
			return req, utils.NewFieldError("lookback", "must be a positive integer")
		}
		req.LookbackPeriods = n
	}
	return req, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, utils.NewFieldError(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// ParseWatchlistCSV reads tickers from the "Ticker" column of a CSV file.
// Blank cells are skipped and duplicates removed.
func ParseWatchlistCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, utils.NewFieldError("file", "watchlist is empty")
	}
	if err != nil {
		return nil, utils.NewFieldError("file", "invalid CSV: %v", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), "ticker") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, utils.NewFieldError("file", "watchlist must have a Ticker column")
	}

	var raw []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, utils.NewFieldError("file", "invalid CSV: %v", err)
		}
		if col < len(record) {
			raw = append(raw, record[col])
		}
	}

	tickers := utils.NormalizeTickers(raw)
	if len(tickers) == 0 {
		return nil, utils.NewFieldError("file", "watchlist has no tickers")
	}
	if len(tickers) > utils.MaxTickers {
		return nil, utils.NewFieldError("file", "at most %d tickers are allowed, got %d", utils.MaxTickers, len(tickers))
	}
	return tickers, nil
}
