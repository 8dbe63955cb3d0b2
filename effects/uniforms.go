package effects

import "postfx-gl/libgpu"

type uniform int

const (
	uSource uniform = iota
	uSource2
	uBloomBicubicUpsampling
	uBloomThreshold
	uBloomIntensity
	uColorAdjustments
	uColorFilter
	uWhiteBalance
	uSplitToningShadows
	uSplitToningHighlights
	uChannelMixerRed
	uChannelMixerGreen
	uChannelMixerBlue
	uSMHShadows
	uSMHMidtones
	uSMHHighlights
	uSMHRange
	uColorGradingLUT
	uColorGradingLUTParams
	uColorGradingLUTInLogC
	uFinalSrcBlend
	uFinalDstBlend
	uCopyBicubic
	uFXAAConfig
	uOutlineColor
	uOutlineParams
	uOutlineThresholdParams
	uOutlineDepthNormalThresholdScale
	uniformCount
)

var uniformNames = [uniformCount]string{
	"u_postfx_source",
	"u_postfx_source2",
	"u_bloom_bicubic_upsampling",
	"u_bloom_threshold",
	"u_bloom_intensity",
	"u_color_adjustments",
	"u_color_filter",
	"u_white_balance",
	"u_split_toning_shadows",
	"u_split_toning_highlights",
	"u_channel_mixer_red",
	"u_channel_mixer_green",
	"u_channel_mixer_blue",
	"u_smh_shadows",
	"u_smh_midtones",
	"u_smh_highlights",
	"u_smh_range",
	"u_color_grading_lut",
	"u_color_grading_lut_params",
	"u_color_grading_lut_in_log_c",
	"u_final_src_blend",
	"u_final_dst_blend",
	"u_copy_bicubic",
	"u_fxaa_config",
	"u_outline_color",
	"u_outline_params",
	"u_outline_threshold_params",
	"u_outline_depth_normal_threshold_scale",
}

const (
	KeywordFXAAQualityLow    = "FXAA_QUALITY_LOW"
	KeywordFXAAQualityMedium = "FXAA_QUALITY_MEDIUM"
)

type uniformTable [uniformCount]libgpu.Binding

func declareUniforms(device libgpu.Device) *uniformTable {
	var table uniformTable
	for u := uniform(0); u < uniformCount; u++ {
		table[u] = device.Declare(uniformNames[u])
	}
	return &table
}
