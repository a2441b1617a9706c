package gamemap

import (
	"testing"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

func TestValidate(t *testing.T) {
	tcs := []struct {
		name string
		m    Map
		ok   bool
	}{
		{"valid", Map{Name: "Dungeon Level 1"}, true},
		{"blank name", Map{Name: "   "}, false},
		{"negative grid", Map{Name: "m", GridSize: -1}, false},
	}
	for _, tc := range tcs {
		err := tc.m.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
			t.Errorf("%s: expected VALIDATION_FAILED, got %v", tc.name, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	m := Normalize(Map{Name: "  Crypt  "})
	if m.Name != "Crypt" {
		t.Errorf("name = %q, want Crypt", m.Name)
	}
	if m.GridSize != DefaultGridSize {
		t.Errorf("gridSize = %d, want %d", m.GridSize, DefaultGridSize)
	}

	m = Normalize(Map{Name: "Crypt", GridSize: 64})
	if m.GridSize != 64 {
		t.Errorf("explicit gridSize overwritten: %d", m.GridSize)
	}
}
