package generate

import "video-scribe-go/internal/types"

// TierSpec is one row of the model capacity table.
type TierSpec struct {
	BaseModel     string
	BaseCharLimit int
	ExpandedModel string
}

// TierTable maps a requested tier to its capacity row. It is static
// configuration consulted by pure functions, never mutated at runtime.
type TierTable map[types.ModelTier]TierSpec

// SelectModel picks the concrete backend model for a prompt. Prompts longer
// than the tier's base char limit use the expanded-context variant; a prompt
// of exactly the limit still fits the base model. There is no fallback
// across tiers.
func (t TierTable) SelectModel(tier types.ModelTier, promptLen int) (string, error) {
	spec, ok := t[tier]
	if !ok {
		return "", types.ErrUnknownTier
	}
	if promptLen > spec.BaseCharLimit {
		return spec.ExpandedModel, nil
	}
	return spec.BaseModel, nil
}
