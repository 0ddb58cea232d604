// Package blocks exposes the finger tracker to a block-based host: the
// extension descriptor the host registers, and the operations its blocks
// invoke with loosely typed arguments.
package blocks

import (
	"errors"
	"fmt"

	"github.com/banshee-data/multitouch/internal/surface"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
)

// ErrUnknownOpcode is returned by Call for opcodes the extension does not
// register.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Opcodes registered by the extension.
const (
	OpTouchAvailable = "touchAvailable"
	OpMaxMultiTouch  = "maxMultiTouch"
	OpNumOfFingers   = "numOfFingers"
	OpNumOfFingersID = "numOfFingersID"
	OpPropOfFinger   = "propOfFinger"
	OpFingerExists   = "fingerExists"
)

// Extension binds a tracker to the host surface it is mapped onto.
type Extension struct {
	tracker *fingers.Tracker
	surface surface.Surface
}

// New creates an Extension.
func New(tracker *fingers.Tracker, s surface.Surface) *Extension {
	return &Extension{tracker: tracker, surface: s}
}

// TouchAvailable reports whether the platform supports touch.
func (e *Extension) TouchAvailable() bool {
	return surface.TouchAvailable(e.surface)
}

// MaxMultiTouch returns the platform's simultaneous touch limit.
func (e *Extension) MaxMultiTouch() int {
	return e.surface.MaxTouchPoints()
}

// NumOfFingers returns the number of fingers currently down.
func (e *Extension) NumOfFingers() int {
	return e.tracker.ActiveCount()
}

// NumOfFingersID returns the slot table length, the highest valid finger
// index.
func (e *Extension) NumOfFingersID() int {
	return e.tracker.TableLength()
}

// PropOfFinger returns the named property of finger id as a float64, or ""
// when the property name is not in the menu, the id does not address an
// occupied slot, or the value is absent.
func (e *Extension) PropOfFinger(prop any, id any) any {
	p, ok := fingers.ParseProperty(ToString(prop))
	if !ok {
		return ""
	}
	index, ok := ToIndex(id)
	if !ok {
		return ""
	}
	v, ok := e.tracker.Query(index, p, e.surface.Bounds())
	if !ok {
		return ""
	}
	return v
}

// FingerExists reports whether finger id is currently down.
func (e *Extension) FingerExists(id any) bool {
	index, ok := ToIndex(id)
	if !ok {
		return false
	}
	return e.tracker.Exists(index)
}

// Call invokes the block registered under opcode with host arguments keyed
// by argument name (PROP, ID).
func (e *Extension) Call(opcode string, args map[string]any) (any, error) {
	switch opcode {
	case OpTouchAvailable:
		return e.TouchAvailable(), nil
	case OpMaxMultiTouch:
		return e.MaxMultiTouch(), nil
	case OpNumOfFingers:
		return e.NumOfFingers(), nil
	case OpNumOfFingersID:
		return e.NumOfFingersID(), nil
	case OpPropOfFinger:
		return e.PropOfFinger(args["PROP"], args["ID"]), nil
	case OpFingerExists:
		return e.FingerExists(args["ID"]), nil
	default:
		if hint, ok := suggestOpcode(opcode); ok {
			return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownOpcode, opcode, hint)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownOpcode, opcode)
	}
}
