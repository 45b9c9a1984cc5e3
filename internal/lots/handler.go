package lots

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/weavetrack/weavetrack/internal/platform/httpx"
	"github.com/weavetrack/weavetrack/internal/shared"
)

const (
	dateLayout        = "2006-01-02"
	idempotencyHeader = "Idempotency-Key"
)

// Handler exposes lot endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers lot routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/for-order", h.createForOrder)
	r.Post("/for-design", h.createForDesign)
	r.Post("/by-pieces", h.createByPieces)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Delete("/", h.delete)
	})
}

type headerRequest struct {
	PartyID      int64  `json:"party_id" validate:"required,gt=0"`
	QualityID    int64  `json:"quality_id" validate:"required,gt=0"`
	LotNumber    string `json:"lot_number" validate:"required,max=64"`
	LotDate      string `json:"lot_date" validate:"omitempty,datetime=2006-01-02"`
	BillNumber   string `json:"bill_number" validate:"max=64"`
	ActualPieces *int   `json:"actual_pieces" validate:"omitempty,gte=0"`
	DeliveryDate string `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
	Status       Status `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED DELIVERED"`
	Notes        string `json:"notes" validate:"max=1000"`
}

type createRequest struct {
	headerRequest
	Allocations []AllocationRequest `json:"allocations" validate:"required,min=1,dive"`
}

type forOrderRequest struct {
	headerRequest
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
	Sets    int   `json:"sets" validate:"gte=0,lte=2147483647"`
}

type forDesignRequest struct {
	headerRequest
	OrderID      int64  `json:"order_id" validate:"required,gt=0"`
	DesignNumber string `json:"design_number" validate:"required"`
	Sets         int    `json:"sets" validate:"gte=0,lte=2147483647"`
}

type byPiecesRequest struct {
	headerRequest
	OrderID      int64  `json:"order_id" validate:"required,gt=0"`
	DesignNumber string `json:"design_number" validate:"required"`
	Pieces       int    `json:"pieces" validate:"required,gt=0,lte=2147483647"`
}

type updateRequest struct {
	BillNumber   *string `json:"bill_number" validate:"omitempty,max=64"`
	ActualPieces *int    `json:"actual_pieces" validate:"omitempty,gte=0"`
	DeliveryDate *string `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
	Status       *Status `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED DELIVERED"`
	Notes        *string `json:"notes" validate:"omitempty,max=1000"`
}

type listResponse struct {
	Data       []LotWithDetails  `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (req headerRequest) header(r *http.Request) (Header, error) {
	h := Header{
		PartyID:        req.PartyID,
		QualityID:      req.QualityID,
		LotNumber:      req.LotNumber,
		BillNumber:     req.BillNumber,
		ActualPieces:   req.ActualPieces,
		Status:         req.Status,
		Notes:          req.Notes,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	}
	if req.LotDate != "" {
		d, err := parseDate("lot_date", req.LotDate)
		if err != nil {
			return Header{}, err
		}
		h.LotDate = d
	}
	if req.DeliveryDate != "" {
		d, err := parseDate("delivery_date", req.DeliveryDate)
		if err != nil {
			return Header{}, err
		}
		h.DeliveryDate = &d
	}
	return h, nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, shared.NewValidationError(field, "must be a YYYY-MM-DD date")
	}
	return d, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := httpx.Validate(h.validator, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func lotID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "lot_id")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	hdr, err := req.header(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.CreateLot(r.Context(), CreateLotInput{Header: hdr, Allocations: req.Allocations})
	if err != nil {
		h.fail(w, "create lot", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
}

func (h *Handler) createForOrder(w http.ResponseWriter, r *http.Request) {
	var req forOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	hdr, err := req.header(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.CreateLotForOrder(r.Context(), hdr, req.OrderID, req.Sets)
	if err != nil {
		h.fail(w, "create lot for order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
}

func (h *Handler) createForDesign(w http.ResponseWriter, r *http.Request) {
	var req forDesignRequest
	if !h.decode(w, r, &req) {
		return
	}
	hdr, err := req.header(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.CreateLotForDesign(r.Context(), hdr, req.OrderID, req.DesignNumber, req.Sets)
	if err != nil {
		h.fail(w, "create lot for design", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
}

func (h *Handler) createByPieces(w http.ResponseWriter, r *http.Request) {
	var req byPiecesRequest
	if !h.decode(w, r, &req) {
		return
	}
	hdr, err := req.header(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.AllocatePieces(r.Context(), hdr, req.OrderID, req.DesignNumber, req.Pieces)
	if err != nil {
		h.fail(w, "allocate pieces", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	partyID, err := httpx.QueryInt64(r, "party_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters := ListFilters{
		PartyID: partyID,
		Status:  Status(r.URL.Query().Get("status")),
		Search:  r.URL.Query().Get("search"),
		Page:    httpx.QueryInt(r, "page", 1),
		Limit:   httpx.QueryInt(r, "limit", shared.DefaultPerPage),
	}
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, "list lots", err)
		return
	}
	page, limit := shared.NormalizePage(filters.Page, filters.Limit)
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(page, limit, total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := lotID(w, r)
	if !ok {
		return
	}
	lot, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get lot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := lotID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	patch := UpdateLotInput{
		BillNumber:   req.BillNumber,
		ActualPieces: req.ActualPieces,
		Status:       req.Status,
		Notes:        req.Notes,
	}
	if req.DeliveryDate != nil {
		d, err := parseDate("delivery_date", *req.DeliveryDate)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		patch.DeliveryDate = &d
	}
	lot, err := h.service.UpdateLot(r.Context(), id, patch)
	if err != nil {
		h.fail(w, "update lot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := lotID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteLot(r.Context(), id); err != nil {
		h.fail(w, "delete lot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
