// Package dice evaluates free-form dice expressions such as "2d6+3" or
// "1d20 2d4-1". Rolling is injected so callers control determinism.
package dice

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

// Limits on a single dice group. Sides below two would make the roll a
// constant; the upper bounds keep a single expression from dominating a
// request.
const (
	MaxDicePerGroup = 100
	MinSides        = 2
	MaxSides        = 1000
)

// Roller produces a single die result in [1, sides].
type Roller func(sides int) int

// NewSeededRoller returns a deterministic roller. Given the same seed and
// call sequence it always produces the same faces.
func NewSeededRoller(seed int64) Roller {
	rng := rand.New(rand.NewSource(seed))
	return func(sides int) int {
		return rng.Intn(sides) + 1
	}
}

// GroupResult captures one NdM[+/-K] group of an expression.
type GroupResult struct {
	Notation string `json:"notation"`
	Sides    int    `json:"sides"`
	Rolls    []int  `json:"rolls"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
}

// Result is the full evaluation of an expression.
type Result struct {
	Expression string        `json:"expression"`
	Groups     []GroupResult `json:"groups"`
	Modifier   int           `json:"modifier"`
	Total      int           `json:"total"`
}

var (
	groupPattern    = regexp.MustCompile(`^(\d*)[dD](\d+)([+-]\d+)?$`)
	modifierPattern = regexp.MustCompile(`^[+-]\d+$`)
)

// Evaluate parses and rolls an expression.
//
// An expression is whitespace-separated terms. Each term is either a dice
// group ("2d6", "d20", "3d8+2") or a bare modifier ("+5", "-2"). Terms that
// match neither form are skipped; at least one dice group must remain or the
// expression is rejected.
func Evaluate(expr string, roll Roller) (Result, error) {
	result := Result{Expression: strings.TrimSpace(expr)}

	for _, term := range strings.Fields(expr) {
		if match := groupPattern.FindStringSubmatch(term); match != nil {
			group, err := rollGroup(term, match, roll)
			if err != nil {
				return Result{}, err
			}
			result.Groups = append(result.Groups, group)
			result.Total += group.Total
			continue
		}
		if modifierPattern.MatchString(term) {
			value, err := strconv.Atoi(term)
			if err != nil {
				return Result{}, fmt.Errorf("parse modifier %q: %w", term, err)
			}
			result.Modifier += value
			result.Total += value
			continue
		}
		// Unrecognized terms (labels, comments) are ignored.
	}

	if len(result.Groups) == 0 {
		return Result{}, apperrors.WithMetadata(apperrors.CodeDiceNoGroups,
			"expression contains no dice groups",
			map[string]string{"expression": result.Expression})
	}
	return result, nil
}

func rollGroup(notation string, match []string, roll Roller) (GroupResult, error) {
	count := 1
	if match[1] != "" {
		parsed, err := strconv.Atoi(match[1])
		if err != nil {
			return GroupResult{}, fmt.Errorf("parse dice count %q: %w", match[1], err)
		}
		count = parsed
	}
	sides, err := strconv.Atoi(match[2])
	if err != nil {
		return GroupResult{}, fmt.Errorf("parse sides %q: %w", match[2], err)
	}
	modifier := 0
	if match[3] != "" {
		modifier, err = strconv.Atoi(match[3])
		if err != nil {
			return GroupResult{}, fmt.Errorf("parse group modifier %q: %w", match[3], err)
		}
	}

	if count < 1 || count > MaxDicePerGroup {
		return GroupResult{}, apperrors.WithMetadata(apperrors.CodeDiceTooManyDice,
			fmt.Sprintf("dice count must be between 1 and %d", MaxDicePerGroup),
			map[string]string{"group": notation})
	}
	if sides < MinSides || sides > MaxSides {
		return GroupResult{}, apperrors.WithMetadata(apperrors.CodeDiceInvalidSides,
			fmt.Sprintf("sides must be between %d and %d", MinSides, MaxSides),
			map[string]string{"group": notation})
	}

	group := GroupResult{
		Notation: notation,
		Sides:    sides,
		Rolls:    make([]int, count),
		Modifier: modifier,
		Total:    modifier,
	}
	for i := 0; i < count; i++ {
		value := roll(sides)
		group.Rolls[i] = value
		group.Total += value
	}
	return group, nil
}
