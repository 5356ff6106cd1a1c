package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/easternmills/millops/pkg/middleware"
	"github.com/easternmills/millops/pkg/storage"
)

type orderRequest struct {
	OrderNumber string `json:"order_number"`
	Buyer       string `json:"buyer"`
	Status      string `json:"status,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	orders, err := s.orders.ListOrders(r.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list orders")
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*storage.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetOrder(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	} else if err != nil {
		s.logger.WithError(err).Error("failed to fetch order")
		writeError(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderNumber == "" || req.Buyer == "" {
		writeError(w, http.StatusBadRequest, "order_number and buyer are required")
		return
	}

	status := req.Status
	if status == "" {
		status = "confirmed"
	}
	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
			return
		}
		dueDate = &parsed
	}
	var createdBy string
	if principal := middleware.GetPrincipal(r); principal != nil {
		createdBy = principal.SubjectID
	}

	order := &storage.Order{
		ID:          uuid.New().String(),
		OrderNumber: req.OrderNumber,
		Buyer:       req.Buyer,
		Status:      status,
		Quantity:    req.Quantity,
		DueDate:     dueDate,
		CreatedBy:   createdBy,
	}
	if err := s.orders.CreateOrder(r.Context(), order); err != nil {
		s.logger.WithError(err).Error("failed to create order")
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetOrder(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	} else if err != nil {
		s.logger.WithError(err).Error("failed to fetch order")
		writeError(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}

	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Buyer != "" {
		order.Buyer = req.Buyer
	}
	if req.Status != "" {
		order.Status = req.Status
	}
	if req.Quantity > 0 {
		order.Quantity = req.Quantity
	}
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
			return
		}
		order.DueDate = &parsed
	}

	if err := s.orders.UpdateOrder(r.Context(), order); err != nil {
		s.logger.WithError(err).Error("failed to update order")
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}
