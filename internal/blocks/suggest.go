package blocks

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

var opcodes = []string{
	OpTouchAvailable,
	OpMaxMultiTouch,
	OpNumOfFingers,
	OpNumOfFingersID,
	OpPropOfFinger,
	OpFingerExists,
}

// suggestOpcode returns the registered opcode closest to op, compared
// case-insensitively, when it is near enough to be a likely typo.
func suggestOpcode(op string) (string, bool) {
	if op == "" {
		return "", false
	}
	lower := strings.ToLower(op)
	best, bestDist := "", -1
	for _, candidate := range opcodes {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(candidate))
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist > max(2, len(op)/4) {
		return "", false
	}
	return best, true
}
