package rest

import (
	"encoding/json"
	"net/http"

	"resto-be/internal/apperr"
	"resto-be/internal/logger"
	"resto-be/internal/order"
	"resto-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultPageLimit = 20

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Open)
		r.Get("/", h.List)
		r.Get("/active", h.Active)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/pending", h.MarkPending)
		r.Post("/{id}/close", h.Close)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/transfer", h.Transfer)
	})
	r.Get("/order-details", h.ListDetails)
	r.Get("/order-details/{id}", h.GetDetail)
}

func (h *OrderHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openOrderRequest
	if !decode(w, r, "order.OpenOrder", &req) {
		return
	}

	o, err := h.svc.OpenOrder(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order.AdaptResponse(o))
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order.UpdateOrder")
	if !ok {
		return
	}
	var req updateOrderRequest
	if !decode(w, r, "order.UpdateOrder", &req) {
		return
	}

	o, err := h.svc.UpdateOrder(r.Context(), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.AdaptResponse(o))
}

func (h *OrderHandler) MarkPending(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order.MarkOrderAsPendingPayment")
	if !ok {
		return
	}

	res, err := h.svc.MarkOrderAsPendingPayment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pendingResponse{
		Order:         order.AdaptResponse(res.Order),
		TicketPrinted: res.TicketPrinted,
		PrintError:    res.PrintError,
	})
}

func (h *OrderHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order.CloseOrder")
	if !ok {
		return
	}
	var req closeOrderRequest
	if !decode(w, r, "order.CloseOrder", &req) {
		return
	}

	o, err := h.svc.CloseOrder(r.Context(), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.AdaptResponse(o))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order.CancelOrder")
	if !ok {
		return
	}

	o, err := h.svc.CancelOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.AdaptResponse(o))
}

func (h *OrderHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order.TransferOrder")
	if !ok {
		return
	}
	var req transferOrderRequest
	if !decode(w, r, "order.TransferOrder", &req) {
		return
	}

	o, err := h.svc.TransferOrder(r.Context(), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.AdaptResponse(o))
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order.DeleteOrder")
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order.GetOrderByID")
	if !ok {
		return
	}

	o, err := h.svc.GetOrderByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.AdaptResponse(o))
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r, "order.GetAllOrders")
	if !ok {
		return
	}

	orders, err := h.svc.GetAllOrders(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.AdaptResponses(orders))
}

func (h *OrderHandler) Active(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.GetOrdersForOpenOrPendingTables(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.AdaptResponses(orders))
}

func (h *OrderHandler) ListDetails(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r, "order.GetOrderDetails")
	if !ok {
		return
	}

	items, err := h.svc.GetOrderDetails(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]order.LineItemResponse, len(items))
	for i := range items {
		out[i] = order.AdaptLineItem(&items[i])
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order.OrderDetailsByID")
	if !ok {
		return
	}

	item, err := h.svc.OrderDetailsByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.AdaptLineItem(item))
}

// --- helpers ---

func pathID(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.BadInput(op, "%s", err.Error()))
		return 0, false
	}
	return id, true
}

func pageParams(w http.ResponseWriter, r *http.Request, op string) (order.Page, bool) {
	q := r.URL.Query()

	page, err := utils.ParseIntDefault(q.Get("page"), 1)
	if err != nil {
		writeError(w, r, apperr.BadInput(op, "page: %s", err.Error()))
		return order.Page{}, false
	}
	limit, err := utils.ParseIntDefault(q.Get("limit"), defaultPageLimit)
	if err != nil {
		writeError(w, r, apperr.BadInput(op, "limit: %s", err.Error()))
		return order.Page{}, false
	}
	return order.Page{Page: page, Limit: limit}, true
}

func decode(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, apperr.BadInput(op, "invalid request body: %s", err.Error()))
		return false
	}
	return true
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindBadInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(apperr.KindOf(err))
	if code >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("layer", "handler"),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	utils.WriteJSONError(w, apperr.PublicMessage(err), code)
}
