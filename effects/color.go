package effects

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// GammaToLinear converts one sRGB encoded value to linear.
func GammaToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math32.Pow((v+0.055)/1.055, 2.4)
}

// LinearToGamma converts one linear value to sRGB encoding.
func LinearToGamma(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math32.Pow(v, 1/2.4) - 0.055
}

// ColorToLinear converts the color channels and keeps alpha.
func ColorToLinear(c mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{GammaToLinear(c[0]), GammaToLinear(c[1]), GammaToLinear(c[2]), c[3]}
}

func ColorToGamma(c mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{LinearToGamma(c[0]), LinearToGamma(c[1]), LinearToGamma(c[2]), c[3]}
}

// ThresholdKnee packs the bloom threshold curve: (t, t*knee - t, 2*t*knee, 0.25/(t*knee + 1e-5))
// with t the linear threshold. The last component stays finite for t = 0.
func ThresholdKnee(threshold, knee float32) mgl32.Vec4 {
	var v mgl32.Vec4
	v[0] = GammaToLinear(threshold)
	v[1] = -v[0] + v[0]*knee
	v[2] = 2 * v[0] * knee
	v[3] = 0.25 / (v[1] + v[0] + 0.00001)
	return v
}

// ColorBalanceToLMSCoeffs converts a white balance temperature and tint, both in -100..100,
// to the LMS space scale factors that move the D65 white point accordingly.
func ColorBalanceToLMSCoeffs(temperature, tint float32) mgl32.Vec3 {
	t1 := temperature / 65
	t2 := tint / 65

	// CIE xy chromaticity of the shifted white point
	var x float32
	if t1 < 0 {
		x = 0.31271 - t1*0.1
	} else {
		x = 0.31271 - t1*0.05
	}
	y := 2.87*x - 3*x*x - 0.27509507 + t2*0.05

	w1 := mgl32.Vec3{0.949237, 1.03542, 1.08728}
	w2 := cieXyToLMS(x, y)
	return mgl32.Vec3{w1[0] / w2[0], w1[1] / w2[1], w1[2] / w2[2]}
}

func cieXyToLMS(x, y float32) mgl32.Vec3 {
	Y := float32(1)
	X := Y * x / y
	Z := Y * (1 - x - y) / y

	return mgl32.Vec3{
		0.7328*X + 0.4296*Y - 0.1624*Z,
		-0.7036*X + 1.6975*Y + 0.0061*Z,
		0.0030*X + 0.0136*Y + 0.9834*Z,
	}
}
