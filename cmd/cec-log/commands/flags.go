package commands

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/log"
)

var (
	layerChoices = map[string]log.Layer{
		"bus":    log.LayerBus,
		"engine": log.LayerEngine,
	}
	directionChoices = map[string]log.Direction{
		"in":  log.DirectionIn,
		"out": log.DirectionOut,
	}
	categoryChoices = map[string]log.Category{
		"frame":   log.CategoryFrame,
		"verdict": log.CategoryVerdict,
		"state":   log.CategoryState,
		"error":   log.CategoryError,
	}
)

// parseChoice looks s up case-insensitively.
func parseChoice[T any](what, s string, choices map[string]T) (T, error) {
	if v, ok := choices[strings.ToLower(s)]; ok {
		return v, nil
	}
	var zero T
	names := slices.Sorted(maps.Keys(choices))
	return zero, fmt.Errorf("invalid %s: %s (must be one of %s)", what, s, strings.Join(names, ", "))
}

// ParseLayerFlag parses bus or engine.
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseChoice("layer", s, layerChoices)
}

// ParseDirectionFlag parses in or out.
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseChoice("direction", s, directionChoices)
}

// ParseCategoryFlag parses frame, verdict, state or error.
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseChoice("category", s, categoryChoices)
}

// ParseOpcodeFlag accepts a number (0x83, 131) or an opcode name such as
// "give osd name".
func ParseOpcodeFlag(s string) (uint8, error) {
	if v, err := strconv.ParseUint(s, 0, 8); err == nil {
		return uint8(v), nil
	}
	for op := range 256 {
		if strings.EqualFold(cec.Opcode(op).String(), s) {
			return uint8(op), nil
		}
	}
	return 0, fmt.Errorf("invalid opcode: %s", s)
}

// ParseTargetFlag accepts a logical address (0-15) or its name, e.g. "tv".
func ParseTargetFlag(s string) (uint8, error) {
	if v, err := strconv.ParseUint(s, 0, 8); err == nil && v <= 15 {
		return uint8(v), nil
	}
	for la := range cec.LogicalAddress(16) {
		if strings.EqualFold(la.String(), s) {
			return uint8(la), nil
		}
	}
	return 0, fmt.Errorf("invalid target: %s (want a logical address 0-15 or its name)", s)
}
