package dice

import (
	"reflect"
	"testing"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

// fixedRoller replays a scripted sequence of faces.
func fixedRoller(faces ...int) Roller {
	i := 0
	return func(sides int) int {
		face := faces[i%len(faces)]
		i++
		return face
	}
}

func TestEvaluateGroupWithModifier(t *testing.T) {
	result, err := Evaluate("2d6+3", fixedRoller(4, 5))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result.Groups))
	}
	group := result.Groups[0]
	if !reflect.DeepEqual(group.Rolls, []int{4, 5}) {
		t.Errorf("rolls = %v, want [4 5]", group.Rolls)
	}
	if group.Modifier != 3 {
		t.Errorf("modifier = %d, want 3", group.Modifier)
	}
	if group.Total != 12 {
		t.Errorf("group total = %d, want 12", group.Total)
	}
	if result.Total != 12 {
		t.Errorf("grand total = %d, want 12", result.Total)
	}
}

func TestEvaluateRangeBounds(t *testing.T) {
	roll := NewSeededRoller(1)
	for i := 0; i < 200; i++ {
		result, err := Evaluate("1d20", roll)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		value := result.Total
		if value < 1 || value > 20 {
			t.Fatalf("1d20 produced %d, outside [1, 20]", value)
		}
	}
}

func TestEvaluateMultipleGroupsAndBareModifier(t *testing.T) {
	result, err := Evaluate("2d6 1d4-1 +5", fixedRoller(3, 3, 2))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
	if result.Groups[0].Total != 6 {
		t.Errorf("group 0 total = %d, want 6", result.Groups[0].Total)
	}
	if result.Groups[1].Total != 1 {
		t.Errorf("group 1 total = %d, want 1", result.Groups[1].Total)
	}
	if result.Modifier != 5 {
		t.Errorf("bare modifier = %d, want 5", result.Modifier)
	}
	if result.Total != 12 {
		t.Errorf("grand total = %d, want 12", result.Total)
	}
}

func TestEvaluateSkipsUnrecognizedTerms(t *testing.T) {
	result, err := Evaluate("attack 1d8 (sword)", fixedRoller(7))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(result.Groups) != 1 || result.Total != 7 {
		t.Fatalf("expected lone 1d8=7, got %+v", result)
	}
}

func TestEvaluateImpliedSingleDie(t *testing.T) {
	result, err := Evaluate("d12", fixedRoller(9))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(result.Groups[0].Rolls) != 1 || result.Total != 9 {
		t.Fatalf("d12 should roll once, got %+v", result)
	}
}

func TestEvaluateErrors(t *testing.T) {
	tcs := []struct {
		name string
		expr string
		code apperrors.Code
	}{
		{"no groups", "not dice", apperrors.CodeDiceNoGroups},
		{"empty", "", apperrors.CodeDiceNoGroups},
		{"too many dice", "101d6", apperrors.CodeDiceTooManyDice},
		{"zero dice", "0d6", apperrors.CodeDiceTooManyDice},
		{"sides too low", "1d1", apperrors.CodeDiceInvalidSides},
		{"sides too high", "1d1001", apperrors.CodeDiceInvalidSides},
	}
	for _, tc := range tcs {
		_, err := Evaluate(tc.expr, fixedRoller(1))
		if apperrors.CodeOf(err) != tc.code {
			t.Errorf("%s: code = %v, want %v", tc.name, apperrors.CodeOf(err), tc.code)
		}
	}
}

func TestSeededRollerDeterminism(t *testing.T) {
	first, err := Evaluate("4d6", NewSeededRoller(42))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, err := Evaluate("4d6", NewSeededRoller(42))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different results:\n%+v\n%+v", first, second)
	}
}
