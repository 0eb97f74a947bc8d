package model

import (
	"fmt"
	"strings"
)

// Direction selects which reserve a swap sells into.
type Direction string

const (
	DirectionAToB Direction = "A_TO_B"
	DirectionBToA Direction = "B_TO_A"
)

// ParseDirection accepts the canonical names plus the usual shorthands
// ("a->b", "ab", "a2b", "sell_a", ...).
func ParseDirection(input string) (Direction, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("→", "_>", " ", "", "-", "_").Replace(normalized)
	switch normalized {
	case "a_to_b", "a_>b", "ab", "a2b", "atob", "sell_a":
		return DirectionAToB, nil
	case "b_to_a", "b_>a", "ba", "b2a", "btoa", "sell_b":
		return DirectionBToA, nil
	default:
		return "", fmt.Errorf("invalid direction: %q", input)
	}
}

// Valid reports whether d is one of the two canonical directions.
func (d Direction) Valid() bool {
	return d == DirectionAToB || d == DirectionBToA
}

func (d *Direction) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = ""
		return nil
	}
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
