package main

import (
	"math"
	"strings"
	"testing"

	"github.com/detgeom/detgeom/internal/detector"
	"github.com/detgeom/detgeom/internal/testutil"
)

func TestParseQuads(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    [4][2]float64
		wantErr string
	}{
		{
			name: "agipd example positions",
			arg:  "-525,625;-550,-10;520,-160;542.5,475",
			want: [4][2]float64{{-525, 625}, {-550, -10}, {520, -160}, {542.5, 475}},
		},
		{
			name: "spaces around components",
			arg:  "1, 2; 3,4 ;5,6;7,8",
			want: [4][2]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}},
		},
		{
			name:    "too few quadrants",
			arg:     "1,2;3,4;5,6",
			wantErr: "want 4 quadrant positions",
		},
		{
			name:    "missing component",
			arg:     "1,2;3,4;5,6;7",
			wantErr: "quadrant 3",
		},
		{
			name:    "bad float",
			arg:     "1,2;3,4;5,six;7,8",
			wantErr: "invalid float 'six'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseQuads(tc.arg)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("parseQuads(%q) error = %v, want %q", tc.arg, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseQuads(%q) error: %v", tc.arg, err)
			}
			if got != tc.want {
				t.Errorf("parseQuads(%q) = %v, want %v", tc.arg, got, tc.want)
			}
		})
	}
}

func TestBuildGeometryDefaults(t *testing.T) {
	// NaN gaps fall back to the family's canonical values.
	got, err := buildGeometry("agipd1m", "", math.NaN(), math.NaN())
	if err != nil {
		t.Fatalf("buildGeometry error: %v", err)
	}

	want, err := detector.AGIPD1MFromQuadPositions(defaultQuads["agipd1m"],
		detector.AGIPD1MDefaultASICGap, detector.AGIPD1MDefaultPanelGap)
	if err != nil {
		t.Fatalf("reference geometry error: %v", err)
	}

	for _, tile := range []int{0, 7} {
		if g, w := got.Fragment(0, tile), want.Fragment(0, tile); g != w {
			t.Errorf("tile %d = %+v, want %+v", tile, g, w)
		}
	}
}

func TestBuildGeometryExplicitArguments(t *testing.T) {
	g, err := buildGeometry("lpd1m", "0,0;0,0;0,0;0,0", 4, 4)
	if err != nil {
		t.Fatalf("buildGeometry error: %v", err)
	}
	if name := g.Spec().Name; name != "LPD-1M" {
		t.Errorf("spec name = %q, want LPD-1M", name)
	}

	_, err = buildGeometry("epix", "", math.NaN(), math.NaN())
	if err == nil || !strings.Contains(err.Error(), "unknown detector") {
		t.Fatalf("buildGeometry(epix) error = %v, want unknown detector", err)
	}

	_, err = buildGeometry("agipd1m", "1,2;3,4", math.NaN(), math.NaN())
	if err == nil {
		t.Fatal("buildGeometry with malformed quads succeeded")
	}
}

func TestDemoFrameLabelsModules(t *testing.T) {
	g, err := buildGeometry("agipd1m", "", math.NaN(), math.NaN())
	if err != nil {
		t.Fatalf("buildGeometry error: %v", err)
	}

	data := demoFrame(g)
	rs := g.Spec().RawShape()
	testutil.AssertShape(t, data.Shape(), rs[:])
	if v := data.At(0, 0, 0); v != 0 {
		t.Errorf("module 0 value = %v, want 0", v)
	}
	if v := data.At(15, 511, 127); v != 15 {
		t.Errorf("module 15 value = %v, want 15", v)
	}
}

func TestDefaultFlagValues(t *testing.T) {
	if *family != "agipd1m" {
		t.Errorf("detector default = %q, want agipd1m", *family)
	}
	if *axisUnits != "px" {
		t.Errorf("axis-units default = %q, want px", *axisUnits)
	}
	if !math.IsNaN(*asicGap) || !math.IsNaN(*panelGap) {
		t.Errorf("gap defaults = %v, %v, want NaN sentinels", *asicGap, *panelGap)
	}
}
