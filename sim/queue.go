package sim

// actionKind orders discontinuities that share a timestamp. Rate changes
// come first, then bolus jumps, then observations, so an observation sees
// every dose applied at its own instant.
type actionKind int

const (
	actionInfusionStop actionKind = iota
	actionInfusionStart
	actionBolus
	actionObservation
)

func (k actionKind) String() string {
	switch k {
	case actionInfusionStop:
		return "infusion-stop"
	case actionInfusionStart:
		return "infusion-start"
	case actionBolus:
		return "bolus"
	case actionObservation:
		return "observation"
	}
	return "unknown"
}

// action is a point on the integration timeline derived from a schedule event.
// amount is the effective bolus amount (after bioavailability) or the infusion rate.
type action struct {
	time        float64
	kind        actionKind
	seq         int
	compartment int
	amount      float64
	obs         Observation
}

// actionQueue implements heap.Interface.
// Ordering: time → kind → seq, which makes replay deterministic.
type actionQueue []*action

func (q actionQueue) Len() int { return len(q) }

func (q actionQueue) Less(i, j int) bool {
	ai, aj := q[i], q[j]
	if ai.time != aj.time {
		return ai.time < aj.time
	}
	if ai.kind != aj.kind {
		return ai.kind < aj.kind
	}
	return ai.seq < aj.seq
}

func (q actionQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *actionQueue) Push(x any) {
	*q = append(*q, x.(*action))
}

func (q *actionQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[0 : n-1]
	return item
}
