package reporthttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/weavetrack/weavetrack/internal/platform/httpx"
	"github.com/weavetrack/weavetrack/internal/reports"
	"github.com/weavetrack/weavetrack/internal/reports/export"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// ReportService defines the report contract used by the handler.
type ReportService interface {
	DesignWise(ctx context.Context, f reports.Filter) (reports.DesignWise, error)
	BeamSummary(ctx context.Context) (reports.BeamSummary, error)
	AllocationSummary(ctx context.Context) (reports.AllocationSummary, error)
	PartyWise(ctx context.Context, partyID int64) (reports.PartyWise, error)
	LotRegister(ctx context.Context, page, limit int) (reports.LotRegister, error)
}

// Handler serves report endpoints.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	now     func() time.Time
}

// NewHandler builds the report handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

type registerResponse struct {
	reports.LotRegister
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleDesignWise(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.QueryInt64(r, "order_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	partyID, err := httpx.QueryInt64(r, "party_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.DesignWise(r.Context(), reports.Filter{OrderID: orderID, PartyID: partyID})
	if err != nil {
		h.fail(w, "design-wise report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleBeamSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.BeamSummary(r.Context())
	if err != nil {
		h.fail(w, "beam summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleAllocationSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.AllocationSummary(r.Context())
	if err != nil {
		h.fail(w, "allocation summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handlePartyWise(w http.ResponseWriter, r *http.Request) {
	partyID, err := httpx.QueryInt64(r, "party_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.PartyWise(r.Context(), partyID)
	if err != nil {
		h.fail(w, "party-wise report", err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		buf := &bytes.Buffer{}
		if err := export.WritePartyWiseCSV(buf, report); err != nil {
			h.fail(w, "write party-wise csv", err)
			return
		}
		h.writeCSV(w, "partywise", buf)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleLotRegister(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "csv" {
		register, err := h.service.LotRegister(r.Context(), 1, 0)
		if err != nil {
			h.fail(w, "lot register", err)
			return
		}
		buf := &bytes.Buffer{}
		if err := export.WriteLotRegisterCSV(buf, register); err != nil {
			h.fail(w, "write lot register csv", err)
			return
		}
		h.writeCSV(w, "lot-register", buf)
		return
	}

	page, limit := shared.NormalizePage(httpx.QueryInt(r, "page", 1), httpx.QueryInt(r, "limit", shared.DefaultPerPage))
	register, err := h.service.LotRegister(r.Context(), page, limit)
	if err != nil {
		h.fail(w, "lot register", err)
		return
	}
	httpx.JSON(w, http.StatusOK, registerResponse{
		LotRegister: register,
		Pagination:  shared.NewPagination(page, limit, register.Total),
	})
}

func (h *Handler) writeCSV(w http.ResponseWriter, name string, buf *bytes.Buffer) {
	filename := fmt.Sprintf("%s-%s.csv", name, h.now().Format("2006-01-02"))
	contentType := mime.TypeByExtension(".csv")
	if contentType == "" {
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
