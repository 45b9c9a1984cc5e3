package masterdata

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/weavetrack/weavetrack/internal/platform/httpx"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// Handler serves master data over JSON.
type Handler struct {
	logger    *slog.Logger
	service   Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/parties", func(r chi.Router) {
		r.Get("/", h.listParties)
		r.Post("/", h.createParty)
		r.Get("/{id}", h.getParty)
		r.Delete("/{id}", h.delete(KindParty))
	})
	r.Route("/colors", func(r chi.Router) {
		r.Get("/", h.listColors)
		r.Post("/", h.createColor)
		r.Get("/{id}", h.getColor)
		r.Delete("/{id}", h.delete(KindColor))
	})
	r.Route("/qualities", func(r chi.Router) {
		r.Get("/", h.listQualities)
		r.Post("/", h.createQuality)
		r.Get("/{id}", h.getQuality)
		r.Delete("/{id}", h.delete(KindQuality))
	})
	r.Route("/cuts", func(r chi.Router) {
		r.Get("/", h.listCuts)
		r.Post("/", h.createCut)
		r.Get("/{id}", h.getCut)
		r.Delete("/{id}", h.delete(KindCut))
	})
}

type listResponse struct {
	Data       any               `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

type partyRequest struct {
	PartyName     string `json:"party_name" validate:"required,max=200"`
	ContactNumber string `json:"contact_number" validate:"required,max=20"`
	BrokerName    string `json:"broker_name" validate:"max=200"`
	GST           string `json:"gst" validate:"omitempty,len=15"`
	Address       string `json:"address" validate:"max=500"`
}

type colorRequest struct {
	ColorCode string `json:"color_code" validate:"required,max=20"`
	ColorName string `json:"color_name" validate:"required,max=100"`
}

type qualityRequest struct {
	QualityName   string `json:"quality_name" validate:"required,max=200"`
	FeederCount   int    `json:"feeder_count" validate:"required,gt=0"`
	Specification string `json:"specification" validate:"max=500"`
}

type cutRequest struct {
	CutValue string `json:"cut_value" validate:"required,max=50"`
}

func filtersFrom(r *http.Request) ListFilters {
	return ListFilters{
		Page:   httpx.QueryInt(r, "page", 1),
		Limit:  httpx.QueryInt(r, "limit", shared.DefaultPerPage),
		Search: r.URL.Query().Get("search"),
	}
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

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	f := filtersFrom(r)
	items, total, err := h.service.ListParties(r.Context(), f)
	if err != nil {
		h.fail(w, "list parties", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(f.Page, f.Limit, total)})
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if !h.decode(w, r, &req) {
		return
	}
	party, err := h.service.CreateParty(r.Context(), Party{
		PartyName:     req.PartyName,
		ContactNumber: req.ContactNumber,
		BrokerName:    req.BrokerName,
		GST:           req.GST,
		Address:       req.Address,
	})
	if err != nil {
		h.fail(w, "create party", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, party)
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	party, err := h.service.GetParty(r.Context(), id)
	if err != nil {
		h.fail(w, "get party", err)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}

func (h *Handler) listColors(w http.ResponseWriter, r *http.Request) {
	f := filtersFrom(r)
	items, total, err := h.service.ListColors(r.Context(), f)
	if err != nil {
		h.fail(w, "list colors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(f.Page, f.Limit, total)})
}

func (h *Handler) createColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !h.decode(w, r, &req) {
		return
	}
	color, err := h.service.CreateColor(r.Context(), Color{ColorCode: req.ColorCode, ColorName: req.ColorName})
	if err != nil {
		h.fail(w, "create color", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, color)
}

func (h *Handler) getColor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	color, err := h.service.GetColor(r.Context(), id)
	if err != nil {
		h.fail(w, "get color", err)
		return
	}
	httpx.JSON(w, http.StatusOK, color)
}

func (h *Handler) listQualities(w http.ResponseWriter, r *http.Request) {
	f := filtersFrom(r)
	items, total, err := h.service.ListQualities(r.Context(), f)
	if err != nil {
		h.fail(w, "list qualities", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(f.Page, f.Limit, total)})
}

func (h *Handler) createQuality(w http.ResponseWriter, r *http.Request) {
	var req qualityRequest
	if !h.decode(w, r, &req) {
		return
	}
	quality, err := h.service.CreateQuality(r.Context(), Quality{
		QualityName:   req.QualityName,
		FeederCount:   req.FeederCount,
		Specification: req.Specification,
	})
	if err != nil {
		h.fail(w, "create quality", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quality)
}

func (h *Handler) getQuality(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	quality, err := h.service.GetQuality(r.Context(), id)
	if err != nil {
		h.fail(w, "get quality", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quality)
}

func (h *Handler) listCuts(w http.ResponseWriter, r *http.Request) {
	f := filtersFrom(r)
	items, total, err := h.service.ListCuts(r.Context(), f)
	if err != nil {
		h.fail(w, "list cuts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(f.Page, f.Limit, total)})
}

func (h *Handler) createCut(w http.ResponseWriter, r *http.Request) {
	var req cutRequest
	if !h.decode(w, r, &req) {
		return
	}
	cut, err := h.service.CreateCut(r.Context(), Cut{CutValue: req.CutValue})
	if err != nil {
		h.fail(w, "create cut", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cut)
}

func (h *Handler) getCut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cut, err := h.service.GetCut(r.Context(), id)
	if err != nil {
		h.fail(w, "get cut", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cut)
}

func (h *Handler) delete(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := h.service.Delete(r.Context(), kind, id); err != nil {
			h.fail(w, "delete "+string(kind), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
