package main

import (
	"bytes"
	"strings"
	"testing"

	"postfx-gl/config"

	"github.com/hashicorp/go-hclog"
)

func setupGlobals() {
	logger = hclog.NewNullLogger()
	profile = config.Default()
}

func TestRunRecord(t *testing.T) {
	setupGlobals()

	specs := []struct {
		args     recordArgs
		contains []string
	}{
		{
			args:     recordArgs{frames: 2, width: 640, height: 360, camera: "game"},
			contains: []string{"FRAME", "DRAWS"},
		},
		{
			args:     recordArgs{frames: 1, width: 640, height: 360, camera: "scene-view", table: true},
			contains: []string{"camera-target", "record/source"},
		},
		{
			args:     recordArgs{frames: 3, width: 320, height: 200, camera: "preview", atmosphere: true, sunElevation: 30},
			contains: []string{"DISPATCHES"},
		},
	}

	for i, spec := range specs {
		var out bytes.Buffer
		if err := runRecord(&out, spec.args); err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", i, err)
		}
		for _, s := range spec.contains {
			if !strings.Contains(out.String(), s) {
				t.Errorf("[spec %d] expected output to contain %q; got:\n%s", i, s, out.String())
			}
		}
	}
}

func TestRunRecordInvalidCamera(t *testing.T) {
	setupGlobals()

	specs := []recordArgs{
		{frames: 1, width: 640, height: 360, camera: "fisheye"},
		{frames: 1, width: 0, height: 360, camera: "game"},
		{frames: 1, width: 640, height: -1, camera: "game"},
	}

	for i, spec := range specs {
		var out bytes.Buffer
		if err := runRecord(&out, spec); err == nil {
			t.Errorf("[spec %d] expected an error", i)
		}
	}
}

func TestSunForward(t *testing.T) {
	specs := []struct {
		elevation float32
		want      [3]float32
	}{
		{90, [3]float32{0, -1, 0}},
		{0, [3]float32{0, 0, -1}},
	}

	for i, spec := range specs {
		got := sunForward(spec.elevation)
		for c := range got {
			if d := got[c] - spec.want[c]; d > 1e-5 || d < -1e-5 {
				t.Errorf("[spec %d] expected %v; got %v", i, spec.want, got)
				break
			}
		}
	}
}

func TestParseDeviceType(t *testing.T) {
	for _, name := range []string{"cpu", "gpu", "accelerator"} {
		if _, err := parseDeviceType(name); err != nil {
			t.Errorf("expected %q to parse; got %v", name, err)
		}
	}
	if _, err := parseDeviceType("fpga"); err == nil {
		t.Error("expected an error for an unknown device type")
	}
}
