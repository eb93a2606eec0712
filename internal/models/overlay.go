package models

import "fmt"

// StepKind tells banner steps from placement steps.
type StepKind string

const (
	StepBanner    StepKind = "banner"
	StepPlacement StepKind = "placement"
)

// Banner is a text layer drawn on a solid background.
type Banner struct {
	Background string `json:"background"`
	Color      string `json:"color"`
	FontFamily string `json:"font_family"`
	FontSize   int    `json:"font_size"`
	FontWeight string `json:"font_weight,omitempty"`
	FontStyle  string `json:"font_style,omitempty"`
	Text       string `json:"text"`
}

// Placement positions the preceding banner. X and Y are fractions of the
// frame measured from the gravity corner.
type Placement struct {
	Gravity string  `json:"gravity"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// OverlayStep is one entry of an overlay spec. Exactly one of Banner and
// Placement is set, matching Kind.
type OverlayStep struct {
	Kind      StepKind   `json:"kind"`
	Banner    *Banner    `json:"banner,omitempty"`
	Placement *Placement `json:"placement,omitempty"`
}

// OverlaySpec is an ordered list of banner/placement pairs.
type OverlaySpec struct {
	Steps []OverlayStep `json:"steps"`
}

// Layer is a banner with the placement that applies to it.
type Layer struct {
	Banner    Banner
	Placement Placement
}

// Empty reports whether the spec draws nothing.
func (s OverlaySpec) Empty() bool { return len(s.Steps) == 0 }

// Validate checks that steps alternate banner, placement, starting with a
// banner, and that every step carries the payload its kind names.
func (s OverlaySpec) Validate() error {
	if len(s.Steps)%2 != 0 {
		return fmt.Errorf("overlay has %d steps, want banner/placement pairs", len(s.Steps))
	}
	for i, st := range s.Steps {
		want := StepBanner
		if i%2 == 1 {
			want = StepPlacement
		}
		if st.Kind != want {
			return fmt.Errorf("overlay step %d is %q, want %q", i, st.Kind, want)
		}
		switch want {
		case StepBanner:
			if st.Banner == nil || st.Placement != nil {
				return fmt.Errorf("overlay step %d: banner payload missing", i)
			}
		case StepPlacement:
			if st.Placement == nil || st.Banner != nil {
				return fmt.Errorf("overlay step %d: placement payload missing", i)
			}
		}
	}
	return nil
}

// Layers pairs each banner with its placement. Call Validate first; a
// malformed spec yields the pairs that could be read.
func (s OverlaySpec) Layers() []Layer {
	out := make([]Layer, 0, len(s.Steps)/2)
	for i := 0; i+1 < len(s.Steps); i += 2 {
		b, p := s.Steps[i].Banner, s.Steps[i+1].Placement
		if b == nil || p == nil {
			continue
		}
		out = append(out, Layer{Banner: *b, Placement: *p})
	}
	return out
}
