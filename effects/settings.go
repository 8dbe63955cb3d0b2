package effects

import (
	"postfx-gl/libgpu"

	"github.com/go-gl/mathgl/mgl32"
)

type BloomSettings struct {
	// IgnoreRenderScale sizes the pyramid from the camera instead of the scaled buffer.
	IgnoreRenderScale bool      `json:"ignoreRenderScale"`
	MaxIterations     int       `json:"maxIterations"`
	DownscaleLimit    int       `json:"downscaleLimit"`
	BicubicUpsampling bool      `json:"bicubicUpsampling"`
	Threshold         float32   `json:"threshold"`
	ThresholdKnee     float32   `json:"thresholdKnee"`
	Intensity         float32   `json:"intensity"`
	FadeFireflies     bool      `json:"fadeFireflies"`
	Mode              BloomMode `json:"mode"`
	Scatter           float32   `json:"scatter"`
}

type ColorAdjustmentSettings struct {
	// PostExposure is in stops.
	PostExposure float32 `json:"postExposure"`
	// Contrast and Saturation are percentages in -100..100.
	Contrast    float32    `json:"contrast"`
	ColorFilter mgl32.Vec4 `json:"colorFilter"`
	// HueShift is in degrees in -180..180.
	HueShift   float32 `json:"hueShift"`
	Saturation float32 `json:"saturation"`
}

type WhiteBalanceSettings struct {
	Temperature float32 `json:"temperature"`
	Tint        float32 `json:"tint"`
}

type SplitToningSettings struct {
	Shadows    mgl32.Vec4 `json:"shadows"`
	Highlights mgl32.Vec4 `json:"highlights"`
	Balance    float32    `json:"balance"`
}

type ChannelMixerSettings struct {
	Red   mgl32.Vec3 `json:"red"`
	Green mgl32.Vec3 `json:"green"`
	Blue  mgl32.Vec3 `json:"blue"`
}

type ShadowsMidtonesHighlightsSettings struct {
	Shadows         mgl32.Vec4 `json:"shadows"`
	Midtones        mgl32.Vec4 `json:"midtones"`
	Highlights      mgl32.Vec4 `json:"highlights"`
	ShadowsStart    float32    `json:"shadowsStart"`
	ShadowsEnd      float32    `json:"shadowsEnd"`
	HighlightsStart float32    `json:"highlightsStart"`
	HighlightsEnd   float32    `json:"highlightsEnd"`
}

type ToneMappingSettings struct {
	Mode ToneMappingMode `json:"mode"`
}

type OutlineSettings struct {
	Enabled                   bool       `json:"enabled"`
	Color                     mgl32.Vec4 `json:"color"`
	Scale                     float32    `json:"scale"`
	DepthThreshold            float32    `json:"depthThreshold"`
	NormalThreshold           float32    `json:"normalThreshold"`
	DepthNormalThreshold      float32    `json:"depthNormalThreshold"`
	DepthNormalThresholdScale float32    `json:"depthNormalThresholdScale"`
	ColorThreshold            float32    `json:"colorThreshold"`
}

// Settings is the read only snapshot a Stack renders with.
type Settings struct {
	Bloom                     BloomSettings                     `json:"bloom"`
	ColorAdjustment           ColorAdjustmentSettings           `json:"colorAdjustment"`
	WhiteBalance              WhiteBalanceSettings              `json:"whiteBalance"`
	SplitToning               SplitToningSettings               `json:"splitToning"`
	ChannelMixer              ChannelMixerSettings              `json:"channelMixer"`
	ShadowsMidtonesHighlights ShadowsMidtonesHighlightsSettings `json:"shadowsMidtonesHighlights"`
	ToneMapping               ToneMappingSettings               `json:"toneMapping"`
	Outline                   OutlineSettings                   `json:"outline"`
}

func DefaultSettings() Settings {
	white := mgl32.Vec4{1, 1, 1, 1}
	gray := mgl32.Vec4{0.5, 0.5, 0.5, 1}
	return Settings{
		Bloom: BloomSettings{
			MaxIterations:  5,
			DownscaleLimit: 2,
			Threshold:      0.5,
			ThresholdKnee:  0.5,
			Intensity:      1,
			Mode:           BloomScattering,
			Scatter:        0.7,
		},
		ColorAdjustment: ColorAdjustmentSettings{
			ColorFilter: white,
		},
		SplitToning: SplitToningSettings{
			Shadows:    gray,
			Highlights: gray,
		},
		ChannelMixer: ChannelMixerSettings{
			Red:   mgl32.Vec3{1, 0, 0},
			Green: mgl32.Vec3{0, 1, 0},
			Blue:  mgl32.Vec3{0, 0, 1},
		},
		ShadowsMidtonesHighlights: ShadowsMidtonesHighlightsSettings{
			Shadows:         white,
			Midtones:        white,
			Highlights:      white,
			ShadowsEnd:      0.3,
			HighlightsStart: 0.55,
			HighlightsEnd:   1,
		},
		ToneMapping: ToneMappingSettings{
			Mode: ToneMappingACES,
		},
		Outline: OutlineSettings{
			Color:                     mgl32.Vec4{0, 0, 0, 1},
			Scale:                     1,
			DepthThreshold:            0.2,
			NormalThreshold:           0.4,
			DepthNormalThreshold:      0.5,
			DepthNormalThresholdScale: 7,
			ColorThreshold:            0.2,
		},
	}
}

type FXAA struct {
	Enabled           bool        `json:"enabled"`
	FixedThreshold    float32     `json:"fixedThreshold"`
	RelativeThreshold float32     `json:"relativeThreshold"`
	SubpixelBlending  float32     `json:"subpixelBlending"`
	Quality           FXAAQuality `json:"quality"`
}

// Camera is the part of a camera the compositor reads.
type Camera struct {
	Kind CameraKind
	// PixelRect is the camera's final viewport in the output target.
	PixelRect  libgpu.Rect
	Projection mgl32.Mat4
}

// FrameConfig is the per frame buffer configuration of one camera.
type FrameConfig struct {
	// BufferSize is the working resolution, which differs from the camera size under render scale.
	BufferSize    libgpu.Size
	UseHDR        bool
	LUTResolution int
	FinalBlend    libgpu.BlendMode
	Rescaling     BicubicRescalingMode
	FXAA          FXAA
	KeepAlpha     bool
}
