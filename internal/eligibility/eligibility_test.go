package eligibility_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/kasane/internal/eligibility"
	"github.com/ashita-ai/kasane/internal/model"
)

func TestSufficiency_BoundaryAt500(t *testing.T) {
	for _, typ := range []model.OutputType{model.OutputPodcast, model.OutputSlideDeck} {
		under := eligibility.Sufficiency(typ, model.ReadinessReady, 499, model.VaultEmpty)
		assert.False(t, under.Eligible)
		assert.Equal(t, "Baseline too short. Requires at least 500 characters.", under.Reason)

		at := eligibility.Sufficiency(typ, model.ReadinessReady, 500, model.VaultEmpty)
		assert.True(t, at.Eligible)
		assert.Equal(t, "Ready to generate", at.Reason)
	}
}

func TestSufficiency_MinimumLengths(t *testing.T) {
	cases := map[model.OutputType]int{
		model.OutputNotes:       100,
		model.OutputReport:      300,
		model.OutputAudioReport: 300,
		model.OutputInfographic: 400,
		model.OutputPodcast:     500,
		model.OutputSlideDeck:   500,
	}
	for typ, minLen := range cases {
		req, ok := eligibility.RequirementFor(typ)
		assert.True(t, ok)
		assert.Equal(t, minLen, req.MinBaselineLength, typ)
		assert.False(t, req.RequiresEvidenceVault, typ)

		assert.False(t, eligibility.Sufficiency(typ, model.ReadinessReady, minLen-1, model.VaultEmpty).Eligible, typ)
		assert.True(t, eligibility.Sufficiency(typ, model.ReadinessReady, minLen, model.VaultEmpty).Eligible, typ)
	}
}

func TestSufficiency_StateReasons(t *testing.T) {
	cases := map[model.ReadinessState]string{
		model.ReadinessBlocked:       "System is blocked. Configure environment variables to proceed.",
		model.ReadinessUninitialized: "System initializing. Please wait.",
		model.ReadinessIncomplete:    "Baseline content insufficient. Provide more comprehensive content.",
	}
	for state, reason := range cases {
		got := eligibility.Sufficiency(model.OutputNotes, state, 10_000, model.VaultPopulated)
		assert.False(t, got.Eligible)
		assert.Equal(t, reason, got.Reason)
	}
}

func TestSufficiency_UnknownType(t *testing.T) {
	got := eligibility.Sufficiency("BASELINE", model.ReadinessReady, 10_000, model.VaultEmpty)
	assert.False(t, got.Eligible)
	assert.Equal(t, "Unknown output type", got.Reason)
}

func TestEntitlement(t *testing.T) {
	got := eligibility.Entitlement(model.OutputPodcast, model.TierFree, false)
	assert.False(t, got.Eligible)
	assert.Equal(t, "This output requires PRO tier entitlement", got.Reason)
	assert.Equal(t, model.TierPro, got.RequiredTier)

	got = eligibility.Entitlement(model.OutputInfographic, model.TierFree, false)
	assert.False(t, got.Eligible)
	assert.Equal(t, "This output requires STANDARD tier entitlement", got.Reason)
	assert.Equal(t, model.TierStandard, got.RequiredTier)

	got = eligibility.Entitlement(model.OutputInfographic, model.TierStandard, false)
	assert.True(t, got.Eligible)
	assert.Equal(t, "Entitlement satisfied", got.Reason)

	got = eligibility.Entitlement(model.OutputSlideDeck, model.TierFree, true)
	assert.True(t, got.Eligible)
	assert.Equal(t, "Dev mode override", got.Reason)
}

func TestHasCapability_Unlimited(t *testing.T) {
	assert.True(t, eligibility.HasCapability(model.TierPro, eligibility.CapUnlimitedGenerations))
	assert.False(t, eligibility.HasCapability(model.TierStandard, eligibility.CapUnlimitedGenerations))
	assert.False(t, eligibility.HasCapability(model.TierFree, eligibility.CapUnlimitedGenerations))
}

func TestGate_DevModeDoesNotBypassSufficiency(t *testing.T) {
	g := eligibility.Gate{Tier: model.TierFree, DevMode: true}
	snap := model.ReadinessSnapshot{State: model.ReadinessReady}

	got := g.Check(model.OutputPodcast, snap, 120)
	assert.False(t, got.Eligible)
	assert.Equal(t, "Baseline too short. Requires at least 500 characters.", got.Reason)

	got = g.Check(model.OutputPodcast, snap, 600)
	assert.True(t, got.Eligible)
	assert.Equal(t, "Dev mode override", got.Reason)
}

func TestGate_EvaluateCoversAllTypes(t *testing.T) {
	g := eligibility.Gate{Tier: model.TierStandard}
	snap := model.ReadinessSnapshot{State: model.ReadinessReady}

	all := g.Evaluate(snap, 450)
	assert.Len(t, all, len(model.OutputTypes))

	byType := map[model.OutputType]model.OutputEligibility{}
	for _, e := range all {
		byType[e.Type] = e
	}
	assert.True(t, byType[model.OutputNotes].Eligible)
	assert.True(t, byType[model.OutputReport].Eligible)
	assert.True(t, byType[model.OutputAudioReport].Eligible)
	assert.True(t, byType[model.OutputInfographic].Eligible)
	// Sufficiency fails first for the 500-char types.
	assert.Equal(t, "Baseline too short. Requires at least 500 characters.", byType[model.OutputPodcast].Reason)
	assert.Empty(t, byType[model.OutputPodcast].RequiredTier)
}

func TestGate_PureFunction(t *testing.T) {
	g := eligibility.Gate{Tier: model.TierPro}
	snap := model.ReadinessSnapshot{State: model.ReadinessReady}
	assert.Equal(t, g.Evaluate(snap, 700), g.Evaluate(snap, 700))
}
