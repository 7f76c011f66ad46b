package model

import "strings"

// Tone is the caller-selected style modifier for generated replies.
type Tone string

const (
	ToneUnspecified Tone = ""
	ToneFormal      Tone = "FORMAL"
	ToneConcise     Tone = "CONCISE"
	ToneFriendly    Tone = "FRIENDLY"
)

// ParseTone accepts tone names case-insensitively. Unknown values map to
// ToneUnspecified so callers fall back to their default.
func ParseTone(s string) Tone {
	switch Tone(strings.ToUpper(strings.TrimSpace(s))) {
	case ToneFormal:
		return ToneFormal
	case ToneConcise:
		return ToneConcise
	case ToneFriendly:
		return ToneFriendly
	default:
		return ToneUnspecified
	}
}

// OrDefault returns t, or def when t is unspecified.
func (t Tone) OrDefault(def Tone) Tone {
	if t == ToneUnspecified {
		return def
	}
	return t
}
