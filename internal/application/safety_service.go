package application

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

// SafetyService applies the account's active safety model and visibility-scope
// configuration before dispatch and before persistence.
type SafetyService struct{}

func NewSafetyService() *SafetyService {
	return &SafetyService{}
}

// PreCheck strips segments sourced from disabled scopes, then applies the
// safety model's prompt rules to what remains. The returned context is the
// only thing allowed to reach a backend.
func (s *SafetyService) PreCheck(account domain.Account, prompt domain.PromptContext) (domain.PromptContext, error) {
	model, ok := domain.SafetyModelByID(account.SafetyModel)
	if !ok {
		return domain.PromptContext{}, fmt.Errorf("safety model %q: %w", account.SafetyModel, domain.ErrInvalidConfiguration)
	}

	filtered := prompt.WithScopes(account.Scopes)

	length := len(filtered.Message)
	for _, segment := range filtered.Segments {
		length += len(segment.Content)
	}
	if model.MaxPromptLen > 0 && length > model.MaxPromptLen {
		return domain.PromptContext{}, fmt.Errorf("prompt length %d exceeds %d: %w", length, model.MaxPromptLen, domain.ErrSafetyRejected)
	}

	if term := firstBlockedTerm(model, filtered.Message); term != "" {
		return domain.PromptContext{}, fmt.Errorf("blocked term %q in message: %w", term, domain.ErrSafetyRejected)
	}
	for _, segment := range filtered.Segments {
		if term := firstBlockedTerm(model, segment.Content); term != "" {
			return domain.PromptContext{}, fmt.Errorf("blocked term %q in %s context: %w", term, segment.Scope, domain.ErrSafetyRejected)
		}
	}

	return filtered, nil
}

// PostCheck applies the model's response rules and returns the redacted text.
func (s *SafetyService) PostCheck(account domain.Account, response string) (string, error) {
	model, ok := domain.SafetyModelByID(account.SafetyModel)
	if !ok {
		return "", fmt.Errorf("safety model %q: %w", account.SafetyModel, domain.ErrInvalidConfiguration)
	}

	if term := firstBlockedTerm(model, response); term != "" {
		return "", fmt.Errorf("blocked term %q in response: %w", term, domain.ErrSafetyRejected)
	}

	redacted := response
	for _, term := range model.RedactedTerms {
		redacted = redactFold(redacted, term)
	}

	return redacted, nil
}

func firstBlockedTerm(model domain.SafetyModel, text string) string {
	lowered := strings.ToLower(text)
	for _, term := range model.BlockedTerms {
		if strings.Contains(lowered, strings.ToLower(term)) {
			return term
		}
	}
	return ""
}

// redactFold masks every case-insensitive occurrence of term. Matching walks
// runes in the original text; case mappings like İ→i change byte length, so
// offsets into a lowered copy cannot be reused here.
func redactFold(text, term string) string {
	if term == "" {
		return text
	}

	var out strings.Builder
	for i := 0; i < len(text); {
		if width, ok := foldPrefix(text[i:], term); ok {
			out.WriteString("[redacted]")
			i += width
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		out.WriteString(text[i : i+size])
		i += size
	}

	return out.String()
}

// foldPrefix reports whether s starts with a case-insensitive match of term,
// and how many bytes of s the match spans.
func foldPrefix(s, term string) (int, bool) {
	width := 0
	for _, termRune := range term {
		r, size := utf8.DecodeRuneInString(s[width:])
		if size == 0 || unicode.ToLower(r) != unicode.ToLower(termRune) {
			return 0, false
		}
		width += size
	}
	return width, true
}
