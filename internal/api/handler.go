package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/marcosgomes068/espeto-bot/internal/chat"
	"github.com/marcosgomes068/espeto-bot/internal/events"
	"github.com/marcosgomes068/espeto-bot/internal/orders"
	"github.com/marcosgomes068/espeto-bot/internal/store"
	"github.com/marcosgomes068/espeto-bot/pkg/models"
)

// Handler serves the operator dashboard API. Reads go straight to the
// store; writes go through the lifecycle engine. Status-change
// notifications are dispatched after the engine call commits, so a failed
// send never rolls back the update.
type Handler struct {
	engine        *orders.Engine
	store         store.Store
	sink          chat.Sink
	messages      chat.Messages
	producer      *events.Producer
	logger        *logrus.Logger
	dashboardFile string
	startTime     time.Time
}

func NewHandler(engine *orders.Engine, st store.Store, sink chat.Sink, messages chat.Messages, producer *events.Producer, dashboardFile string, logger *logrus.Logger) *Handler {
	return &Handler{
		engine:        engine,
		store:         st,
		sink:          sink,
		messages:      messages,
		producer:      producer,
		logger:        logger,
		dashboardFile: dashboardFile,
		startTime:     time.Now(),
	}
}

// Register attaches the API routes to the router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/api/pedidos", h.ListOrders).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/pedido/status", h.UpdateStatus).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/pedido/{codigo}", h.GetOrder).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/stats", h.Stats).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/health", h.Health).Methods("GET", "OPTIONS")
	router.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list := h.store.List()
	h.logger.WithField("count", len(list)).Info("Retrieved order list")

	h.respondWithJSON(w, http.StatusOK, models.OrderListResponse{
		Success: true,
		Orders:  list,
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["codigo"]

	order, ok := h.store.FindByCode(code)
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "Pedido não encontrado")
		return
	}

	h.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Order:   order,
	})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode status update request")
		h.respondWithError(w, http.StatusBadRequest, "Corpo da requisição inválido")
		return
	}

	if req.Customer == "" || req.Status == "" || req.Code == "" {
		h.respondWithError(w, http.StatusBadRequest, "Número, status e código são obrigatórios")
		return
	}
	if !models.ValidStatus(req.Status) {
		h.respondWithError(w, http.StatusBadRequest, "Status inválido")
		return
	}

	order, err := h.engine.SetStatus(req.Customer, req.Code, req.Status)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"code":     req.Code,
			"customer": req.Customer,
			"status":   req.Status,
		}).Error("Failed to update order status")
		h.respondWithError(w, http.StatusNotFound, "Pedido não encontrado")
		return
	}

	// The notification is keyed by the status the operator sent; for
	// entregue the engine has already finalized and removed the order.
	if notice := h.messages.StatusNotification(req.Status); notice != "" {
		if err := h.sink.Send(req.Customer, notice); err != nil {
			h.logger.WithError(err).WithFields(logrus.Fields{
				"code":     req.Code,
				"customer": req.Customer,
			}).Error("Failed to send status notification")
		}
	}

	if err := h.producer.PublishStatusChanged(order); err != nil {
		h.logger.WithError(err).WithField("code", req.Code).Error("Failed to publish status event")
	}

	h.respondWithJSON(w, http.StatusOK, models.StatusUpdateResponse{
		Success:   true,
		Message:   "Status atualizado com sucesso",
		NewStatus: req.Status,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := models.Stats{
		ByStatus: make(map[models.Status]int),
	}
	hourAgo := time.Now().Add(-time.Hour)

	for _, order := range h.store.List() {
		stats.Total++
		stats.ByStatus[order.Status]++
		if order.CreatedAt.After(hourAgo) {
			stats.LastHour++
		}
	}

	h.respondWithJSON(w, http.StatusOK, models.StatsResponse{
		Success: true,
		Stats:   stats,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, models.HealthResponse{
		Status:       "ok",
		Timestamp:    time.Now().Format(time.RFC3339),
		ActiveOrders: h.store.Len(),
		Uptime:       time.Since(h.startTime).Seconds(),
	})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, h.dashboardFile)
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
