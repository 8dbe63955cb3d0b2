package effects

import (
	"fmt"

	"postfx-gl/libgpu"
)

// Library is the program library holding the post processing passes, indexed by Pass.
const Library = "postfx"

// Pass indexes a fragment program in Library. The order is part of the program library
// layout and must not change.
type Pass int

const (
	PassCopy Pass = iota
	PassBloomHorizontal
	PassBloomVertical
	PassBloomCombineAdditive
	PassBloomCombineScatter
	PassBloomScatterFinal
	PassBloomPrefilter
	PassBloomPrefilterFireflies
	PassColorGradingNone
	PassColorGradingReinhard
	PassColorGradingNeutral
	PassColorGradingACES
	PassFinalColorGrading
	PassRescale
	PassFXAA
	PassColorGradingWithLuma
	PassFXAAWithLuma
	PassOutline
	PassCount
)

var passNames = [PassCount]string{
	"Copy",
	"BloomHorizontal",
	"BloomVertical",
	"BloomCombineAdditive",
	"BloomCombineScatter",
	"BloomScatterFinal",
	"BloomPrefilter",
	"BloomPrefilterFireflies",
	"ColorGradingNone",
	"ColorGradingReinhard",
	"ColorGradingNeutral",
	"ColorGradingACES",
	"FinalColorGrading",
	"Rescale",
	"FXAA",
	"ColorGradingWithLuma",
	"FXAAWithLuma",
	"Outline",
}

func (p Pass) String() string {
	if p >= 0 && p < PassCount {
		return passNames[p]
	}
	return fmt.Sprintf("Pass(%d)", int(p))
}

func (p Pass) Program() libgpu.Program {
	return libgpu.Program{Library: Library, Index: int(p), Name: p.String()}
}

// PassNames lists the pass names in index order, as a program library loader expects them.
func PassNames() []string {
	return passNames[:]
}

// PassForToneMappingMode returns the LUT baking pass for a tone mapping mode.
func PassForToneMappingMode(mode ToneMappingMode) Pass {
	switch mode {
	case ToneMappingNone:
		return PassColorGradingNone
	case ToneMappingReinhard:
		return PassColorGradingReinhard
	case ToneMappingNeutral:
		return PassColorGradingNeutral
	case ToneMappingACES:
		return PassColorGradingACES
	}
	panic(fmt.Sprintf("invalid tone mapping mode %d", mode))
}
