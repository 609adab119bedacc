package engine

import "github.com/andresuchdata/ddmrp/internal/domain"

// NetFlowCalculator qualifies demand and computes the net flow position.
type NetFlowCalculator struct {
	spikeDampening float64
}

func NewNetFlowCalculator(params Parameters) *NetFlowCalculator {
	return &NetFlowCalculator{spikeDampening: params.SpikeDampening}
}

// Calculate returns the net flow of item. Demand above the spike threshold is
// dampened so a single outsized order does not drain the buffer.
func (nc *NetFlowCalculator) Calculate(item domain.InventoryItem) domain.NetFlow {
	qualified := nc.QualifiedDemand(item.QualifiedDemand, item.OrderSpikeThreshold)
	return domain.NetFlow{
		OnHand:          item.OnHand,
		OnOrder:         item.OnOrder,
		QualifiedDemand: qualified,
		Position:        item.OnHand + item.OnOrder - qualified,
	}
}

// QualifiedDemand splits raw demand at threshold and dampens the spike part.
func (nc *NetFlowCalculator) QualifiedDemand(raw float64, threshold *float64) float64 {
	if threshold == nil || raw <= *threshold {
		return raw
	}
	regular := *threshold
	spike := raw - regular
	return regular + spike*nc.spikeDampening
}
