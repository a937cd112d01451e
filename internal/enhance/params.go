package enhance

import "fmt"

// Parameter bounds accepted by the enhancement service.
const (
	MinSpeedFactor  = 0.5
	MaxSpeedFactor  = 1.0
	MinVolumeFactor = 1.0
	MaxVolumeFactor = 2.0
)

// Params are the enhancement parameters sent with a submission.
type Params struct {
	SpeedFactor    float64 `json:"speed_factor"`
	VolumeFactor   float64 `json:"volume_factor"`
	RemoveNoise    bool    `json:"remove_noise"`
	EnhanceClarity bool    `json:"enhance_clarity"`
}

// DefaultParams returns neutral speed and volume with both processing
// toggles enabled.
func DefaultParams() Params {
	return Params{
		SpeedFactor:    1.0,
		VolumeFactor:   1.0,
		RemoveNoise:    true,
		EnhanceClarity: true,
	}
}

// Validate checks that both factors are within the service's accepted ranges.
func (p Params) Validate() error {
	if p.SpeedFactor < MinSpeedFactor || p.SpeedFactor > MaxSpeedFactor {
		return fmt.Errorf("speed_factor must be in [%.1f, %.1f], got %.2f",
			MinSpeedFactor, MaxSpeedFactor, p.SpeedFactor)
	}
	if p.VolumeFactor < MinVolumeFactor || p.VolumeFactor > MaxVolumeFactor {
		return fmt.Errorf("volume_factor must be in [%.1f, %.1f], got %.2f",
			MinVolumeFactor, MaxVolumeFactor, p.VolumeFactor)
	}
	return nil
}

// Clamped returns a copy with both factors forced into range.
func (p Params) Clamped() Params {
	if p.SpeedFactor < MinSpeedFactor {
		p.SpeedFactor = MinSpeedFactor
	}
	if p.SpeedFactor > MaxSpeedFactor {
		p.SpeedFactor = MaxSpeedFactor
	}
	if p.VolumeFactor < MinVolumeFactor {
		p.VolumeFactor = MinVolumeFactor
	}
	if p.VolumeFactor > MaxVolumeFactor {
		p.VolumeFactor = MaxVolumeFactor
	}
	return p
}
