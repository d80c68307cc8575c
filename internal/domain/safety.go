package domain

type SafetyModelID string

const (
	SafetyModelDefault    SafetyModelID = "default"
	SafetyModelDeveloper  SafetyModelID = "developer"
	SafetyModelCommunity  SafetyModelID = "community"
	SafetyModelEnterprise SafetyModelID = "enterprise"
)

func (id SafetyModelID) Known() bool {
	_, ok := builtinSafetyModels[id]
	return ok
}

type SafetyLevel string

const (
	SafetyLevelLow     SafetyLevel = "low"
	SafetyLevelMedium  SafetyLevel = "medium"
	SafetyLevelHigh    SafetyLevel = "high"
	SafetyLevelMaximum SafetyLevel = "maximum"
)

// SafetyModel is a declarative rule set the gate applies to prompts and
// responses. BlockedTerms reject the turn; RedactedTerms are masked on the way
// out instead of rejecting.
type SafetyModel struct {
	ID            SafetyModelID
	Name          string
	Level         SafetyLevel
	MaxPromptLen  int
	BlockedTerms  []string
	RedactedTerms []string
}

var builtinSafetyModels = map[SafetyModelID]SafetyModel{
	SafetyModelDefault: {
		ID:           SafetyModelDefault,
		Name:         "Default Safety",
		Level:        SafetyLevelMedium,
		MaxPromptLen: 32_000,
		BlockedTerms: []string{"credit card number", "social security number"},
	},
	SafetyModelDeveloper: {
		ID:           SafetyModelDeveloper,
		Name:         "Developer Mode",
		Level:        SafetyLevelLow,
		MaxPromptLen: 64_000,
	},
	SafetyModelCommunity: {
		ID:            SafetyModelCommunity,
		Name:          "Community Rated",
		Level:         SafetyLevelHigh,
		MaxPromptLen:  24_000,
		BlockedTerms:  []string{"credit card number", "social security number", "password dump"},
		RedactedTerms: []string{"api key"},
	},
	SafetyModelEnterprise: {
		ID:            SafetyModelEnterprise,
		Name:          "Enterprise Security",
		Level:         SafetyLevelMaximum,
		MaxPromptLen:  16_000,
		BlockedTerms:  []string{"credit card number", "social security number", "password dump", "internal only"},
		RedactedTerms: []string{"api key", "bearer token"},
	},
}

func SafetyModelByID(id SafetyModelID) (SafetyModel, bool) {
	model, ok := builtinSafetyModels[id]
	return model, ok
}

func BuiltinSafetyModels() []SafetyModel {
	return []SafetyModel{
		builtinSafetyModels[SafetyModelDefault],
		builtinSafetyModels[SafetyModelDeveloper],
		builtinSafetyModels[SafetyModelCommunity],
		builtinSafetyModels[SafetyModelEnterprise],
	}
}

// ScopeID names a category of contextual data a backend may or may not access.
type ScopeID string

const (
	ScopeConversation ScopeID = "conversation"
	ScopeDocuments    ScopeID = "documents"
	ScopeImages       ScopeID = "images"
	ScopeAudio        ScopeID = "audio"
	ScopeVideo        ScopeID = "video"
	ScopeExternal     ScopeID = "external"
)

func KnownScopes() []ScopeID {
	return []ScopeID{
		ScopeConversation,
		ScopeDocuments,
		ScopeImages,
		ScopeAudio,
		ScopeVideo,
		ScopeExternal,
	}
}

func (s ScopeID) Known() bool {
	for _, known := range KnownScopes() {
		if s == known {
			return true
		}
	}
	return false
}

// ScopeConfig maps scope ids to enabled flags. A disabled scope must not be
// included in context sent to any backend.
type ScopeConfig map[ScopeID]bool

func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{
		ScopeConversation: true,
		ScopeDocuments:    true,
		ScopeImages:       false,
		ScopeAudio:        false,
		ScopeVideo:        false,
		ScopeExternal:     true,
	}
}

func (c ScopeConfig) Enabled(scope ScopeID) bool {
	enabled, ok := c[scope]
	if !ok {
		return false
	}
	return enabled
}

func (c ScopeConfig) Clone() ScopeConfig {
	clone := make(ScopeConfig, len(c))
	for scope, enabled := range c {
		clone[scope] = enabled
	}
	return clone
}
