package pipeline

// Config contains all build parameters for a single pipeline invocation.
//
// The caller resolves it once (file > environment > built-in default) and
// passes it in by value; the pipeline never reads ambient state.
type Config struct {
	// Target canvas size. Zero means "use the native size of frame 0".
	TargetWidth  int
	TargetHeight int

	// Delay between animation frames, in milliseconds.
	FrameDelayMs int

	// Stabilize enables the translational motion estimator.
	Stabilize bool

	// MaxShiftPx bounds the motion search radius at work resolution.
	MaxShiftPx int

	// CropPercent is the intentional inward trim relative to min(W, H).
	CropPercent float64

	// AutoBorderDetect enables the cross-frame border crop.
	AutoBorderDetect bool

	// Content pixel thresholds for border detection.
	AlphaThreshold int
	BlackThreshold int

	// AutoBorderMarginPx shrinks the detected content box on all sides.
	AutoBorderMarginPx int
}

// Default values and clamp limits for every config key.
const (
	DefaultFrameDelayMs = 120
	DefaultMaxShiftPx   = 6
	DefaultCropPercent  = 0.05
	DefaultThreshold    = 8

	maxShiftLimit   = 50
	maxCropPercent  = 0.30
	maxBorderMargin = 20
	maxThreshold    = 255
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		FrameDelayMs:     DefaultFrameDelayMs,
		Stabilize:        true,
		MaxShiftPx:       DefaultMaxShiftPx,
		CropPercent:      DefaultCropPercent,
		AutoBorderDetect: true,
		AlphaThreshold:   DefaultThreshold,
		BlackThreshold:   DefaultThreshold,
	}
}

// normalized clamps every field into its valid range and fills defaults for
// fields whose zero value is not a valid setting.
func (c Config) normalized() Config {
	if c.FrameDelayMs <= 0 {
		c.FrameDelayMs = DefaultFrameDelayMs
	}
	c.MaxShiftPx = clampInt(c.MaxShiftPx, 0, maxShiftLimit)
	if c.CropPercent < 0 {
		c.CropPercent = 0
	} else if c.CropPercent > maxCropPercent {
		c.CropPercent = maxCropPercent
	}
	c.AlphaThreshold = clampInt(c.AlphaThreshold, 0, maxThreshold)
	c.BlackThreshold = clampInt(c.BlackThreshold, 0, maxThreshold)
	c.AutoBorderMarginPx = clampInt(c.AutoBorderMarginPx, 0, maxBorderMargin)
	if c.TargetWidth < 0 {
		c.TargetWidth = 0
	}
	if c.TargetHeight < 0 {
		c.TargetHeight = 0
	}
	return c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
