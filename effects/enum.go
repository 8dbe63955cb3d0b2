package effects

import (
	"fmt"
	"strings"
)

func enumName(names []string, v int, kind string) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

func marshalEnum(names []string, v int, kind string) ([]byte, error) {
	if v < 0 || v >= len(names) {
		return nil, fmt.Errorf("invalid %s %d", kind, v)
	}
	return []byte(names[v]), nil
}

func unmarshalEnum(names []string, text []byte, kind string) (int, error) {
	s := strings.ToLower(string(text))
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q, expected one of %s", kind, text, strings.Join(names, ", "))
}

type ToneMappingMode uint8

const (
	ToneMappingNone ToneMappingMode = iota
	ToneMappingReinhard
	ToneMappingNeutral
	ToneMappingACES
	toneMappingCount
)

var toneMappingNames = []string{"none", "reinhard", "neutral", "aces"}

func (m ToneMappingMode) String() string { return enumName(toneMappingNames, int(m), "ToneMappingMode") }
func (m ToneMappingMode) Valid() bool { return m < toneMappingCount }
func (m ToneMappingMode) MarshalText() ([]byte, error) {
	return marshalEnum(toneMappingNames, int(m), "tone mapping mode")
}
func (m *ToneMappingMode) UnmarshalText(text []byte) error {
	v, err := unmarshalEnum(toneMappingNames, text, "tone mapping mode")
	if err != nil {
		return err
	}
	*m = ToneMappingMode(v)
	return nil
}

type BloomMode uint8

const (
	BloomAdditive BloomMode = iota
	BloomScattering
	BloomSingleScatter
	bloomModeCount
)

var bloomModeNames = []string{"additive", "scattering", "single-scatter"}

func (m BloomMode) String() string { return enumName(bloomModeNames, int(m), "BloomMode") }
func (m BloomMode) Valid() bool { return m < bloomModeCount }
func (m BloomMode) MarshalText() ([]byte, error) {
	return marshalEnum(bloomModeNames, int(m), "bloom mode")
}
func (m *BloomMode) UnmarshalText(text []byte) error {
	v, err := unmarshalEnum(bloomModeNames, text, "bloom mode")
	if err != nil {
		return err
	}
	*m = BloomMode(v)
	return nil
}

type FXAAQuality uint8

const (
	FXAAQualityLow FXAAQuality = iota
	FXAAQualityMedium
	FXAAQualityHigh
	fxaaQualityCount
)

var fxaaQualityNames = []string{"low", "medium", "high"}

func (q FXAAQuality) String() string { return enumName(fxaaQualityNames, int(q), "FXAAQuality") }
func (q FXAAQuality) Valid() bool { return q < fxaaQualityCount }
func (q FXAAQuality) MarshalText() ([]byte, error) {
	return marshalEnum(fxaaQualityNames, int(q), "fxaa quality")
}
func (q *FXAAQuality) UnmarshalText(text []byte) error {
	v, err := unmarshalEnum(fxaaQualityNames, text, "fxaa quality")
	if err != nil {
		return err
	}
	*q = FXAAQuality(v)
	return nil
}

type BicubicRescalingMode uint8

const (
	RescalingOff BicubicRescalingMode = iota
	RescalingUpOnly
	RescalingUpAndDown
	rescalingCount
)

var rescalingNames = []string{"off", "up-only", "up-and-down"}

func (m BicubicRescalingMode) String() string {
	return enumName(rescalingNames, int(m), "BicubicRescalingMode")
}
func (m BicubicRescalingMode) Valid() bool { return m < rescalingCount }
func (m BicubicRescalingMode) MarshalText() ([]byte, error) {
	return marshalEnum(rescalingNames, int(m), "rescaling mode")
}
func (m *BicubicRescalingMode) UnmarshalText(text []byte) error {
	v, err := unmarshalEnum(rescalingNames, text, "rescaling mode")
	if err != nil {
		return err
	}
	*m = BicubicRescalingMode(v)
	return nil
}

type CameraKind uint8

const (
	CameraGame CameraKind = iota
	CameraSceneView
	CameraPreview
	CameraReflection
	cameraKindCount
)

var cameraKindNames = []string{"game", "scene-view", "preview", "reflection"}

func (k CameraKind) String() string { return enumName(cameraKindNames, int(k), "CameraKind") }
func (k CameraKind) Valid() bool { return k < cameraKindCount }
func (k CameraKind) MarshalText() ([]byte, error) {
	return marshalEnum(cameraKindNames, int(k), "camera kind")
}
func (k *CameraKind) UnmarshalText(text []byte) error {
	v, err := unmarshalEnum(cameraKindNames, text, "camera kind")
	if err != nil {
		return err
	}
	*k = CameraKind(v)
	return nil
}
