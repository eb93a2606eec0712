package models

import (
	"strings"
	"testing"
)

func bannerStep(text string) OverlayStep {
	return OverlayStep{Kind: StepBanner, Banner: &Banner{Text: text, FontSize: 80}}
}

func placementStep(y float64) OverlayStep {
	return OverlayStep{Kind: StepPlacement, Placement: &Placement{Gravity: "north_west", X: 0.05, Y: y}}
}

func TestOverlaySpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		steps   []OverlayStep
		wantErr string
	}{
		{name: "empty", steps: nil},
		{name: "one pair", steps: []OverlayStep{bannerStep("a"), placementStep(0.1)}},
		{name: "three pairs", steps: []OverlayStep{
			bannerStep("a"), placementStep(0.1),
			bannerStep("b"), placementStep(0.2),
			bannerStep("c"), placementStep(0.3),
		}},
		{name: "odd length", steps: []OverlayStep{bannerStep("a")}, wantErr: "pairs"},
		{name: "starts with placement", steps: []OverlayStep{placementStep(0.1), bannerStep("a")}, wantErr: "step 0"},
		{name: "two banners", steps: []OverlayStep{bannerStep("a"), bannerStep("b")}, wantErr: "step 1"},
		{name: "kind without payload", steps: []OverlayStep{{Kind: StepBanner}, placementStep(0.1)}, wantErr: "payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := OverlaySpec{Steps: tt.steps}.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOverlaySpecLayers(t *testing.T) {
	spec := OverlaySpec{Steps: []OverlayStep{
		bannerStep("Title"), placementStep(0.06),
		bannerStep("Artist"), placementStep(0.20),
	}}

	layers := spec.Layers()
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[1].Banner.Text != "Artist" || layers[1].Placement.Y != 0.20 {
		t.Errorf("unexpected second layer %+v", layers[1])
	}
	if (OverlaySpec{}).Empty() != true || spec.Empty() {
		t.Error("Empty reports wrong value")
	}
}
