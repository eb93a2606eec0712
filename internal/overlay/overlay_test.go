package overlay

import (
	"reflect"
	"testing"

	"audiowave/internal/models"
)

func str(s string) *string { return &s }

func TestBuildDefaults(t *testing.T) {
	spec := NewBuilder().Build(nil, nil)

	if err := spec.Validate(); err != nil {
		t.Fatalf("invalid spec: %v", err)
	}
	layers := spec.Layers()
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[0].Banner.Text != DefaultTitle {
		t.Errorf("expected title %q, got %q", DefaultTitle, layers[0].Banner.Text)
	}
	if layers[1].Banner.Text != DefaultArtist {
		t.Errorf("expected artist %q, got %q", DefaultArtist, layers[1].Banner.Text)
	}
}

func TestBuildUsesTags(t *testing.T) {
	spec := NewBuilder().Build(str("Test"), str("Band"))
	layers := spec.Layers()

	if layers[0].Banner.Text != "Test" || layers[1].Banner.Text != "Band" {
		t.Fatalf("unexpected texts %q, %q", layers[0].Banner.Text, layers[1].Banner.Text)
	}
}

func TestBuildBlankTagFallsBack(t *testing.T) {
	spec := NewBuilder().Build(str("  "), str("Band"))
	if got := spec.Layers()[0].Banner.Text; got != DefaultTitle {
		t.Errorf("expected blank title to fall back, got %q", got)
	}
}

func TestBuildClassicLayout(t *testing.T) {
	spec := NewBuilder().Build(str("T"), str("A"))

	want := []models.OverlayStep{
		{Kind: models.StepBanner, Banner: &models.Banner{
			Background: "#1DB954", Color: "#191414", FontFamily: "Arial", FontSize: 100,
			FontWeight: "bold", FontStyle: "italic", Text: "T",
		}},
		{Kind: models.StepPlacement, Placement: &models.Placement{Gravity: "north_west", X: 0.05, Y: 0.06}},
		{Kind: models.StepBanner, Banner: &models.Banner{
			Background: "#1DB954", Color: "#191414", FontFamily: "Arial", FontSize: 80,
			FontWeight: "bold", FontStyle: "italic", Text: "A",
		}},
		{Kind: models.StepPlacement, Placement: &models.Placement{Gravity: "north_west", X: 0.05, Y: 0.20}},
	}

	if !reflect.DeepEqual(spec.Steps, want) {
		t.Errorf("unexpected steps:\n got %+v\nwant %+v", spec.Steps, want)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder()
	if !reflect.DeepEqual(b.Build(str("x"), nil), b.Build(str("x"), nil)) {
		t.Error("expected identical specs for identical input")
	}
}

func TestBuildTextsSupportsNPairs(t *testing.T) {
	spec := NewBuilder().BuildTexts("one", "two", "three")
	if err := spec.Validate(); err != nil {
		t.Fatalf("invalid spec: %v", err)
	}
	layers := spec.Layers()
	if len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(layers))
	}
	if layers[2].Placement.Y != 0.34 {
		t.Errorf("expected third band at 0.34, got %v", layers[2].Placement.Y)
	}
	if len(BuildLayers(nil).Steps) != 0 {
		t.Error("expected no steps for no layers")
	}
}

func TestPresetRestyle(t *testing.T) {
	mono, ok := Preset(" MONO ")
	if !ok {
		t.Fatal("expected mono preset")
	}
	spec := Builder{Style: mono, Layout: DefaultLayout}.Build(nil, nil)
	if got := spec.Layers()[0].Banner.Background; got != "#000000" {
		t.Errorf("expected mono background, got %q", got)
	}
	if _, ok := Preset("neon"); ok {
		t.Error("expected unknown preset to be missing")
	}
}
