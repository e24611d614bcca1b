package models

import (
	"time"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusIniciado   Status = "iniciado"
	StatusConfirmado Status = "confirmado"
	StatusEmPreparo  Status = "em_preparo"
	StatusPronto     Status = "pronto"
	StatusEmEntrega  Status = "em_entrega"
	StatusEntregue   Status = "entregue"
	StatusCancelado  Status = "cancelado"
	StatusFinalizado Status = "finalizado"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusIniciado, StatusConfirmado, StatusEmPreparo, StatusPronto,
		StatusEmEntrega, StatusEntregue, StatusCancelado, StatusFinalizado:
		return true
	}
	return false
}

// Order is a customer's in-progress purchase request. The customer number
// keys the store, so a customer holds at most one live order at a time.
// RawText is the verbatim message that opened the order; the menu selection
// inside it is never parsed.
type Order struct {
	Code      string    `json:"codigo"`
	Customer  string    `json:"numero"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"timestamp"`
	RawText   string    `json:"mensagem"`
}

type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Order   *Order `json:"pedido,omitempty"`
}

type OrderListResponse struct {
	Success bool    `json:"success"`
	Orders  []Order `json:"pedidos"`
}

// StatusUpdateRequest is the operator dashboard's status-change payload.
// Code must match the stored order's code so a stale dashboard row cannot
// update a customer's newer order.
type StatusUpdateRequest struct {
	Customer string `json:"numero"`
	Status   Status `json:"status"`
	Code     string `json:"codigo"`
}

type StatusUpdateResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	NewStatus Status `json:"novoStatus,omitempty"`
}

// Stats aggregates the live order map for the dashboard.
type Stats struct {
	Total    int            `json:"total_pedidos"`
	ByStatus map[Status]int `json:"por_status"`
	LastHour int            `json:"ultima_hora"`
}

type StatsResponse struct {
	Success bool  `json:"success"`
	Stats   Stats `json:"stats"`
}

type HealthResponse struct {
	Status       string  `json:"status"`
	Timestamp    string  `json:"timestamp"`
	ActiveOrders int     `json:"pedidos_ativos"`
	Uptime       float64 `json:"uptime"`
}
