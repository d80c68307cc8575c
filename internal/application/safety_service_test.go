package application

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func defaultAccount() domain.Account {
	account := domain.Account{ID: "acct", Name: "Acct"}
	account.ApplyDefaults()
	return account
}

func TestSafetyServicePreCheckStripsDisabledScopes(t *testing.T) {
	t.Parallel()

	account := defaultAccount()
	// images and audio are disabled by default; external is enabled.
	prompt := domain.PromptContext{
		Message: "describe these",
		Segments: []domain.ContextSegment{
			{Scope: domain.ScopeDocuments, Content: "doc text"},
			{Scope: domain.ScopeImages, Content: "image caption"},
			{Scope: domain.ScopeAudio, Content: "audio transcript"},
			{Scope: domain.ScopeExternal, Content: "web snippet"},
		},
	}

	filtered, err := NewSafetyService().PreCheck(account, prompt)
	require.NoError(t, err)
	require.Len(t, filtered.Segments, 2)
	assert.Equal(t, domain.ScopeDocuments, filtered.Segments[0].Scope)
	assert.Equal(t, domain.ScopeExternal, filtered.Segments[1].Scope)
}

func TestSafetyServicePreCheckBlockedTermRejects(t *testing.T) {
	t.Parallel()

	prompt := domain.PromptContext{Message: "here is my Credit Card Number: 4111"}

	_, err := NewSafetyService().PreCheck(defaultAccount(), prompt)
	require.ErrorIs(t, err, domain.ErrSafetyRejected)
}

func TestSafetyServicePreCheckBlockedTermInDisabledScopePasses(t *testing.T) {
	t.Parallel()

	// The blocked term lives in a disabled scope, so it is stripped before
	// the term scan and never rejects the turn.
	prompt := domain.PromptContext{
		Message: "summarize the attachment",
		Segments: []domain.ContextSegment{
			{Scope: domain.ScopeImages, Content: "credit card number 4111"},
		},
	}

	filtered, err := NewSafetyService().PreCheck(defaultAccount(), prompt)
	require.NoError(t, err)
	assert.Empty(t, filtered.Segments)
}

func TestSafetyServicePreCheckLengthLimit(t *testing.T) {
	t.Parallel()

	account := defaultAccount()
	account.SafetyModel = domain.SafetyModelEnterprise

	prompt := domain.PromptContext{Message: strings.Repeat("a", 16_001)}

	_, err := NewSafetyService().PreCheck(account, prompt)
	require.ErrorIs(t, err, domain.ErrSafetyRejected)
}

func TestSafetyServicePreCheckUnknownModel(t *testing.T) {
	t.Parallel()

	account := defaultAccount()
	account.SafetyModel = "bespoke"

	_, err := NewSafetyService().PreCheck(account, domain.PromptContext{Message: "hi"})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestSafetyServicePostCheckRedactsTerms(t *testing.T) {
	t.Parallel()

	account := defaultAccount()
	account.SafetyModel = domain.SafetyModelEnterprise

	redacted, err := NewSafetyService().PostCheck(account, "use the API Key abc and the Bearer Token xyz")
	require.NoError(t, err)
	assert.Equal(t, "use the [redacted] abc and the [redacted] xyz", redacted)
}

func TestSafetyServicePostCheckRedactsAfterMultiByteRunes(t *testing.T) {
	t.Parallel()

	account := defaultAccount()
	account.SafetyModel = domain.SafetyModelEnterprise

	svc := NewSafetyService()

	// İ (U+0130) lowercases to a shorter byte sequence; the mask must still
	// land exactly on the term, with nothing leaked around it.
	redacted, err := svc.PostCheck(account, "İstanbul İşlem api key abc")
	require.NoError(t, err)
	assert.Equal(t, "İstanbul İşlem [redacted] abc", redacted)
	assert.True(t, utf8.ValidString(redacted))

	// Ⱥ (U+023A) lowercases to a longer byte sequence.
	redacted, err = svc.PostCheck(account, "ȺȺȺȺȺȺ api key")
	require.NoError(t, err)
	assert.Equal(t, "ȺȺȺȺȺȺ [redacted]", redacted)

	redacted, err = svc.PostCheck(account, "prefix API Key suffix")
	require.NoError(t, err)
	assert.Equal(t, "prefix [redacted] suffix", redacted)
}

func TestSafetyServicePostCheckBlockedTermRejects(t *testing.T) {
	t.Parallel()

	account := defaultAccount()
	account.SafetyModel = domain.SafetyModelEnterprise

	_, err := NewSafetyService().PostCheck(account, "this document is INTERNAL ONLY")
	require.ErrorIs(t, err, domain.ErrSafetyRejected)
}

func TestSafetyServiceDeveloperModelIsPermissive(t *testing.T) {
	t.Parallel()

	account := defaultAccount()
	account.SafetyModel = domain.SafetyModelDeveloper

	filtered, err := NewSafetyService().PreCheck(account, domain.PromptContext{Message: "credit card number formats"})
	require.NoError(t, err)
	assert.Equal(t, "credit card number formats", filtered.Message)

	out, err := NewSafetyService().PostCheck(account, "api key handling guide")
	require.NoError(t, err)
	assert.Equal(t, "api key handling guide", out)
}
