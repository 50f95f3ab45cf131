package config

import "math"

// Bounds applied by Sanitize.
const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinVolume      = 0.0
	MaxVolume      = 1.0
	MinRate        = 20
	MaxRate        = 500
)

// RuntimeConfig holds the per-process knobs shared by every turn.
// It is a value type; build it once with Sanitize and pass copies around.
type RuntimeConfig struct {
	Temperature float64
	Volume      float64
	Rate        int
	VoiceID     string
	Ability     string
	SessionID   string
	ModelRef    string
}

// Sanitize narrows raw user knobs into their valid ranges. It never fails:
// out-of-range values are clamped and NaN collapses to the lower bound.
// The voice id is passed through; whether it exists is a synthesis concern.
func Sanitize(rawTemperature, rawVolume float64, rawRate int, rawVoiceID string) RuntimeConfig {
	return RuntimeConfig{
		Temperature: clampFloat(rawTemperature, MinTemperature, MaxTemperature),
		Volume:      clampFloat(rawVolume, MinVolume, MaxVolume),
		Rate:        clampInt(rawRate, MinRate, MaxRate),
		VoiceID:     rawVoiceID,
	}
}

// WithSession returns a copy carrying the persona, session and model reference.
func (c RuntimeConfig) WithSession(ability, sessionID, modelRef string) RuntimeConfig {
	c.Ability = ability
	c.SessionID = sessionID
	c.ModelRef = modelRef
	return c
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
