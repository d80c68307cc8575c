package application

import "github.com/bnema/prometheus-orchestrator/internal/domain"

// TokenEstimator predicts the cost of a prompt before dispatch, for ledger
// pre-authorization. Estimates only gate spending; the ledger commits the
// actual cost reported by the backend.
type TokenEstimator interface {
	Estimate(prompt domain.PromptContext) int64
}

// CharEstimator approximates tokens with a characters-per-token ratio. Rough,
// but only used to size reservations, never for billing.
type CharEstimator struct {
	CharsPerToken int // defaults to 4 if zero
	// ReplyAllowance is added on top of the prompt estimate to cover the
	// response the backend will generate.
	ReplyAllowance int64
}

const segmentOverheadTokens = 4

func (e CharEstimator) ratio() int {
	if e.CharsPerToken <= 0 {
		return 4
	}
	return e.CharsPerToken
}

func (e CharEstimator) allowance() int64 {
	if e.ReplyAllowance <= 0 {
		return 256
	}
	return e.ReplyAllowance
}

func (e CharEstimator) Estimate(prompt domain.PromptContext) int64 {
	total := int64(segmentOverheadTokens + len(prompt.Message)/e.ratio())
	for _, segment := range prompt.Segments {
		total += int64(segmentOverheadTokens + len(segment.Content)/e.ratio())
	}

	return total + e.allowance()
}
