package domain

// ContextSegment is one piece of context attached to a prompt, labelled with
// the visibility scope it was sourced from.
type ContextSegment struct {
	Scope   ScopeID
	Content string
}

// PromptContext is what the session manager hands to a backend adapter: the
// user message plus whatever scoped context survived the safety gate.
type PromptContext struct {
	Message  string
	Segments []ContextSegment
}

// WithScopes returns a copy keeping only segments whose scope is enabled.
func (p PromptContext) WithScopes(config ScopeConfig) PromptContext {
	filtered := PromptContext{Message: p.Message}
	for _, segment := range p.Segments {
		if !config.Enabled(segment.Scope) {
			continue
		}
		filtered.Segments = append(filtered.Segments, segment)
	}
	return filtered
}

// BackendResponse is the adapter-level result of one backend invocation.
type BackendResponse struct {
	Content    string
	TokensUsed int64
}
