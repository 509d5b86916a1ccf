/* models.go
 * This file contain the structs and helper functions that are used by api consumers
 */

package api

import (
	"strings"
)

// Decision is an admin ruling on a disputed challenge
type Decision string

const (
	DecisionCancel   Decision = "cancel"
	DecisionExtend   Decision = "extend"
	DecisionPenalize Decision = "penalize"
)

// ParseDecision reads a decision typed by an admin
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionCancel, DecisionExtend, DecisionPenalize:
		return d, nil
	}
	return "", ErrUnknownDecision
}

// TrackerImport is the outcome of importing stats from the game tracker
type TrackerImport struct {
	Imported  int
	Unmatched []string
}
