/* errors.go
 * Contains the engine's error kinds. Rule violations are sentinel errors. Failures talking to the store are
 * PersistenceErrors. Failures in the notification sink after the store was already written are CriticalErrors,
 * which mean chat and the database have diverged and an operator has to look.
 */

package api

import (
	"errors"
	"fmt"

	"otl-bot/api/challenge"
	"otl-bot/api/store"
)

var (
	ErrChallengeClosed    = challenge.ErrChallengeClosed
	ErrChallengeVoided    = challenge.ErrChallengeVoided
	ErrNotParty           = challenge.ErrNotParty
	ErrNothingPending     = errors.New("there is nothing pending to confirm")
	ErrNotReported        = errors.New("the match has not been reported")
	ErrAlreadyConfirmed   = errors.New("the match has already been confirmed")
	ErrNotConfirmed       = errors.New("the match has not been confirmed")
	ErrNotVoided          = errors.New("the challenge is not voided")
	ErrInvalidTeamSize    = errors.New("team size must be between 2 and 8")
	ErrInvalidHomeMap     = errors.New("that is not one of the home maps")
	ErrInvalidScore       = errors.New("invalid score")
	ErrSameTeam           = errors.New("a team cannot challenge itself")
	ErrNoRematchRequested = errors.New("no rematch has been requested")
	ErrAlreadyRematched   = errors.New("the rematch has already been created")
	ErrUnknownDecision    = errors.New("decision must be cancel, extend or penalize")
	ErrNoTeamsNamed       = errors.New("at least one team must be named")
	ErrTrackerUnavailable = errors.New("the game tracker is not configured")
)

// PersistenceError wraps a failure reading or writing challenge state
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CriticalError wraps a notification failure that happened after state was written
type CriticalError struct {
	Op  string
	Err error
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("critical failure during %s, manual intervention required: %v", e.Op, e.Err)
}

func (e *CriticalError) Unwrap() error { return e.Err }

// IsCritical reports whether err contains a CriticalError
func IsCritical(err error) bool {
	var ce *CriticalError
	return errors.As(err, &ce)
}

// IsPersistence reports whether err contains a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsNotFound reports whether err is a store miss
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	// the store reports these when the row changed under us, surface them as rule errors
	switch {
	case errors.Is(err, store.ErrNothingPending):
		return ErrNothingPending
	case errors.Is(err, store.ErrNotReported):
		return ErrNotReported
	}
	return &PersistenceError{Op: op, Err: err}
}

// effects collects sink failures so every side effect is attempted once the state write succeeded
type effects struct {
	op   string
	errs []error
}

func (e *effects) do(err error) {
	if err != nil {
		e.errs = append(e.errs, err)
	}
}

func (e *effects) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return &CriticalError{Op: e.op, Err: errors.Join(e.errs...)}
}
