package orders

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/weavetrack/weavetrack/internal/platform/httpx"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// Handler exposes order endpoints.
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

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/preview", h.preview)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.delete)
		r.Get("/designs", h.designs)
		r.Get("/beams", h.beams)
		r.Post("/designs/{design}/allocate", h.allocate)
	})
}

type previewRequest struct {
	Sets          int           `json:"sets" validate:"required,gt=0,lte=2147483647"`
	DesignNumbers []string      `json:"design_numbers" validate:"required,min=1,dive,required"`
	GroundColors  []GroundColor `json:"ground_colors" validate:"required,min=1,dive"`
}

type createRequest struct {
	PartyID       int64           `json:"party_id" validate:"required,gt=0"`
	QualityID     int64           `json:"quality_id" validate:"required,gt=0"`
	Sets          int             `json:"sets" validate:"required,gt=0,lte=2147483647"`
	Pick          int             `json:"pick" validate:"required,gt=0"`
	RatePerPiece  decimal.Decimal `json:"rate_per_piece"`
	OrderDate     string          `json:"order_date" validate:"omitempty,datetime=2006-01-02"`
	Notes         string          `json:"notes" validate:"max=1000"`
	Cuts          []string        `json:"cuts" validate:"required,min=1,dive,required"`
	DesignNumbers []string        `json:"design_numbers" validate:"required,min=1,dive,required"`
	GroundColors  []GroundColor   `json:"ground_colors" validate:"required,min=1,dive"`
}

type allocateRequest struct {
	Sets int `json:"sets" validate:"required,gt=0,lte=2147483647"`
}

type listResponse struct {
	Data       []OrderWithDetails `json:"data"`
	Pagination shared.Pagination  `json:"pagination"`
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

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "order_id")
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
	in := CreateOrderInput{
		PartyID:       req.PartyID,
		QualityID:     req.QualityID,
		Sets:          req.Sets,
		Pick:          req.Pick,
		RatePerPiece:  req.RatePerPiece,
		Notes:         req.Notes,
		Cuts:          req.Cuts,
		DesignNumbers: req.DesignNumbers,
		GroundColors:  req.GroundColors,
	}
	if req.OrderDate != "" {
		in.OrderDate, _ = time.Parse("2006-01-02", req.OrderDate)
	}
	order, err := h.service.CreateOrder(r.Context(), in)
	if err != nil {
		h.fail(w, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.Preview(r.Context(), BuildInput{Sets: req.Sets, DesignNumbers: req.DesignNumbers, GroundColors: req.GroundColors})
	if err != nil {
		h.fail(w, "preview order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	partyID, err := httpx.QueryInt64(r, "party_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	qualityID, err := httpx.QueryInt64(r, "quality_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters := ListFilters{
		PartyID:   partyID,
		QualityID: qualityID,
		Search:    r.URL.Query().Get("search"),
		Page:      httpx.QueryInt(r, "page", 1),
		Limit:     httpx.QueryInt(r, "limit", shared.DefaultPerPage),
	}
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, "list orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(filters.Page, filters.Limit, total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) designs(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	rows, err := h.service.DesignTracking(r.Context(), id, r.URL.Query().Get("design"))
	if err != nil {
		h.fail(w, "design tracking", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) beams(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	rows, err := h.service.BeamConfig(r.Context(), id, r.URL.Query().Get("design"))
	if err != nil {
		h.fail(w, "beam config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req allocateRequest
	if !h.decode(w, r, &req) {
		return
	}
	row, err := h.service.AllocateSets(r.Context(), id, chi.URLParam(r, "design"), req.Sets)
	if err != nil {
		h.fail(w, "allocate sets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}
