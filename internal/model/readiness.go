package model

import "time"

// ReadinessState is the aggregate "can we generate now" signal.
type ReadinessState string

const (
	ReadinessBlocked       ReadinessState = "BLOCKED"
	ReadinessUninitialized ReadinessState = "UNINITIALIZED"
	ReadinessIncomplete    ReadinessState = "INCOMPLETE"
	ReadinessReady         ReadinessState = "READY"
)

// Action is the recommended next step for the operator.
type Action string

const (
	ActionInitializeBaseline   Action = "INITIALIZE_BASELINE"
	ActionImproveBaseline      Action = "IMPROVE_BASELINE"
	ActionSelectOutputType     Action = "SELECT_OUTPUT_TYPE"
	ActionGenerateContent      Action = "GENERATE_CONTENT"
	ActionReviewOutputs        Action = "REVIEW_OUTPUTS"
	ActionConfigureEnvironment Action = "CONFIGURE_ENVIRONMENT"
	ActionRedeployApplication  Action = "REDEPLOY_APPLICATION"
)

// VaultState summarizes artifact presence.
type VaultState string

const (
	VaultEmpty     VaultState = "empty"
	VaultSeeded    VaultState = "seeded"
	VaultPopulated VaultState = "populated"
)

// EnvironmentStatus reports whether required configuration is present.
type EnvironmentStatus struct {
	Ready       bool     `json:"ready"`
	MissingVars []string `json:"missing_vars"`
}

// BaselinePresence reports whether a baseline exists and carries content.
type BaselinePresence struct {
	HasBaseline bool `json:"has_baseline"`
	HasScenario bool `json:"has_scenario"`
}

// ProviderReadiness reports whether any generative provider has been called.
type ProviderReadiness struct {
	Invoked bool `json:"invoked"`
	Idle    bool `json:"idle"`
}

// EvidenceVault summarizes the vault.
type EvidenceVault struct {
	State      VaultState `json:"state"`
	ItemsCount int        `json:"items_count"`
}

// ReadinessSnapshot is recomputed from scratch on every relevant change.
type ReadinessSnapshot struct {
	State             ReadinessState    `json:"state"`
	Environment       EnvironmentStatus `json:"environment"`
	BaselinePresence  BaselinePresence  `json:"baseline_presence"`
	ProviderReadiness ProviderReadiness `json:"provider_readiness"`
	EvidenceVault     EvidenceVault     `json:"evidence_vault"`
	Message           string            `json:"message"`
	Action            Action            `json:"action"`
	ActionGuidance    string            `json:"action_guidance"`
	Timestamp         time.Time         `json:"timestamp"`
}
