package model

import (
	"strings"
	"time"
)

// ExecutionState is a step of the per-output generation lifecycle.
type ExecutionState string

const (
	ExecutionIdle       ExecutionState = "IDLE"
	ExecutionRequested  ExecutionState = "REQUESTED"
	ExecutionInProgress ExecutionState = "IN_PROGRESS"
	ExecutionCompleted  ExecutionState = "COMPLETED"
	ExecutionFailed     ExecutionState = "FAILED"
)

// Terminal reports whether s ends a generation attempt.
func (s ExecutionState) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

// ExecutionStatus is the lifecycle record for one output type.
type ExecutionStatus struct {
	Type      OutputType     `json:"type"`
	State     ExecutionState `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}

// Tier is a user entitlement tier.
type Tier string

const (
	TierFree     Tier = "FREE"
	TierStandard Tier = "STANDARD"
	TierPro      Tier = "PRO"
)

// ParseTier accepts any casing of a tier name.
func ParseTier(s string) (Tier, bool) {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierFree:
		return TierFree, true
	case TierStandard:
		return TierStandard, true
	case TierPro:
		return TierPro, true
	default:
		return "", false
	}
}

// OutputEligibility is the derived admission verdict for one output type.
type OutputEligibility struct {
	Type         OutputType `json:"type"`
	Eligible     bool       `json:"eligible"`
	Reason       string     `json:"reason"`
	RequiredTier Tier       `json:"required_tier,omitempty"`
}
