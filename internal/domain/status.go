package domain

import "strings"

// Priority is the planning priority tier derived from buffer penetration.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityVeryHigh Priority = "very_high"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityVeryLow  Priority = "very_low"
)

// Priorities lists every tier from most to least urgent.
var Priorities = []Priority{
	PriorityCritical,
	PriorityVeryHigh,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
	PriorityVeryLow,
}

var priorityLabels = map[Priority]string{
	PriorityCritical: "Critical",
	PriorityVeryHigh: "Very High",
	PriorityHigh:     "High",
	PriorityMedium:   "Medium",
	PriorityLow:      "Low",
	PriorityVeryLow:  "Very Low",
}

// Label returns the display label for a priority.
func (p Priority) Label() string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return "Unknown"
}

// ParsePriority accepts either the code or the label (case-insensitive).
func ParsePriority(s string) (Priority, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for p, label := range priorityLabels {
		if string(p) == key || strings.ToLower(label) == key {
			return p, true
		}
	}
	return "", false
}

// Urgency is the replenishment urgency tier.
type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyExpedite  Urgency = "expedite"
	UrgencyEmergency Urgency = "emergency"
)

// Escalate moves urgency one tier up. Emergency stays emergency.
func (u Urgency) Escalate() Urgency {
	switch u {
	case UrgencyNormal:
		return UrgencyExpedite
	default:
		return UrgencyEmergency
	}
}

// OrderStatus is the lifecycle state of a replenishment order.
type OrderStatus string

const (
	OrderStatusDraft    OrderStatus = "DRAFT"
	OrderStatusApproved OrderStatus = "APPROVED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft: {OrderStatusApproved, OrderStatusRejected},
}

// CanTransition reports whether an order may move from one status to another.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseOrderStatus returns the status for a label (case-insensitive).
func ParseOrderStatus(label string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(label))) {
	case OrderStatusDraft:
		return OrderStatusDraft, true
	case OrderStatusApproved:
		return OrderStatusApproved, true
	case OrderStatusRejected:
		return OrderStatusRejected, true
	}
	return "", false
}

type DelayRisk string

const (
	DelayRiskLow    DelayRisk = "low"
	DelayRiskMedium DelayRisk = "medium"
	DelayRiskHigh   DelayRisk = "high"
)

type VariabilityCategory string

const (
	VariabilityLow    VariabilityCategory = "low"
	VariabilityMedium VariabilityCategory = "medium"
	VariabilityHigh   VariabilityCategory = "high"
)

type LeadTimeCategory string

const (
	LeadTimeShort  LeadTimeCategory = "short"
	LeadTimeMedium LeadTimeCategory = "medium"
	LeadTimeLong   LeadTimeCategory = "long"
)

type DecouplingPointType string

const (
	DecouplingStrategic     DecouplingPointType = "strategic"
	DecouplingCustomerOrder DecouplingPointType = "customer_order"
	DecouplingStockPoint    DecouplingPointType = "stock_point"
	DecouplingIntermediate  DecouplingPointType = "intermediate"
)
