// Package eligibility decides whether an output type may be generated now.
// Two independent checks apply: content sufficiency (is the baseline good
// enough) and entitlement (does the caller's tier include the output).
// Both are pure functions of their inputs.
package eligibility

import (
	"fmt"

	"github.com/ashita-ai/kasane/internal/model"
)

// Requirement is the content a type needs before it can be generated.
type Requirement struct {
	MinBaselineLength     int
	RequiresEvidenceVault bool
}

var requirements = map[model.OutputType]Requirement{
	model.OutputNotes:       {MinBaselineLength: 100},
	model.OutputReport:      {MinBaselineLength: 300},
	model.OutputAudioReport: {MinBaselineLength: 300},
	model.OutputInfographic: {MinBaselineLength: 400},
	model.OutputPodcast:     {MinBaselineLength: 500},
	model.OutputSlideDeck:   {MinBaselineLength: 500},
}

// RequirementFor returns the content requirement for t.
func RequirementFor(t model.OutputType) (Requirement, bool) {
	r, ok := requirements[t]
	return r, ok
}

// Capability is something a tier grants.
type Capability string

const (
	CapNotes                Capability = "NOTES"
	CapReport               Capability = "REPORT"
	CapAudioReport          Capability = "AUDIO_REPORT"
	CapInfographic          Capability = "INFOGRAPHIC"
	CapPodcast              Capability = "PODCAST"
	CapSlideDeck            Capability = "SLIDEDECK"
	CapUnlimitedGenerations Capability = "UNLIMITED_GENERATIONS"
)

var tierCapabilities = map[model.Tier][]Capability{
	model.TierFree:     {CapNotes, CapReport},
	model.TierStandard: {CapNotes, CapReport, CapAudioReport, CapInfographic},
	model.TierPro: {
		CapNotes, CapReport, CapAudioReport, CapInfographic,
		CapPodcast, CapSlideDeck, CapUnlimitedGenerations,
	},
}

// HasCapability reports whether tier grants c.
func HasCapability(tier model.Tier, c Capability) bool {
	for _, have := range tierCapabilities[tier] {
		if have == c {
			return true
		}
	}
	return false
}

// RequiredTier is the lowest tier that grants t.
func RequiredTier(t model.OutputType) model.Tier {
	switch t {
	case model.OutputPodcast, model.OutputSlideDeck:
		return model.TierPro
	case model.OutputAudioReport, model.OutputInfographic:
		return model.TierStandard
	default:
		return model.TierFree
	}
}

// Sufficiency checks the baseline and system state against t's requirement.
func Sufficiency(t model.OutputType, state model.ReadinessState, baselineLen int, vault model.VaultState) model.OutputEligibility {
	deny := func(reason string) model.OutputEligibility {
		return model.OutputEligibility{Type: t, Eligible: false, Reason: reason}
	}

	req, ok := requirements[t]
	if !ok {
		return deny("Unknown output type")
	}
	switch state {
	case model.ReadinessBlocked:
		return deny("System is blocked. Configure environment variables to proceed.")
	case model.ReadinessUninitialized:
		return deny("System initializing. Please wait.")
	case model.ReadinessIncomplete:
		return deny("Baseline content insufficient. Provide more comprehensive content.")
	}
	if baselineLen < req.MinBaselineLength {
		return deny(fmt.Sprintf("Baseline too short. Requires at least %d characters.", req.MinBaselineLength))
	}
	if req.RequiresEvidenceVault && vault == model.VaultEmpty {
		return deny("Evidence vault is empty. Generate content first.")
	}
	return model.OutputEligibility{Type: t, Eligible: true, Reason: "Ready to generate"}
}

// Entitlement checks whether tier includes t. Dev mode always passes but
// does not bypass Sufficiency.
func Entitlement(t model.OutputType, tier model.Tier, devMode bool) model.OutputEligibility {
	if devMode {
		return model.OutputEligibility{Type: t, Eligible: true, Reason: "Dev mode override"}
	}
	if !HasCapability(tier, Capability(t)) {
		required := RequiredTier(t)
		return model.OutputEligibility{
			Type:         t,
			Eligible:     false,
			Reason:       fmt.Sprintf("This output requires %s tier entitlement", required),
			RequiredTier: required,
		}
	}
	return model.OutputEligibility{Type: t, Eligible: true, Reason: "Entitlement satisfied"}
}

// Gate combines both checks for one caller.
type Gate struct {
	Tier    model.Tier
	DevMode bool
}

// Check applies sufficiency, then entitlement. The first failure wins.
func (g Gate) Check(t model.OutputType, snap model.ReadinessSnapshot, baselineLen int) model.OutputEligibility {
	if s := Sufficiency(t, snap.State, baselineLen, snap.EvidenceVault.State); !s.Eligible {
		return s
	}
	return Entitlement(t, g.Tier, g.DevMode)
}

// Evaluate returns the eligibility of every output type.
func (g Gate) Evaluate(snap model.ReadinessSnapshot, baselineLen int) []model.OutputEligibility {
	out := make([]model.OutputEligibility, 0, len(model.OutputTypes))
	for _, t := range model.OutputTypes {
		out = append(out, g.Check(t, snap, baselineLen))
	}
	return out
}
