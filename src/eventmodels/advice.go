package eventmodels

import (
	"fmt"
	"time"
)

type AdviceAction string

const (
	AdviceOpen  AdviceAction = "open"
	AdviceClose AdviceAction = "close"
	AdviceHold  AdviceAction = "hold"
)

// Advice is the decision signal produced by a trading advisor. Each issued
// advice is consumed exactly once by the paper trader.
type Advice struct {
	Action    AdviceAction `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
	// Weight is the recommended portfolio weighting in [0, 1]. Nil means
	// "all in" for open and "all out" for close.
	Weight *float64 `json:"weight,omitempty"`
}

func (a Advice) Validate() error {
	switch a.Action {
	case AdviceOpen, AdviceClose, AdviceHold:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAdviceAction, a.Action)
	}

	if a.Timestamp.IsZero() {
		return ErrNoTimestamp
	}

	if a.Weight != nil && (*a.Weight <= 0 || *a.Weight > 1) {
		return fmt.Errorf("%w: %v", ErrInvalidAdviceWeight, *a.Weight)
	}

	return nil
}
