package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNotOpen indicates the request arrived outside the quiz's time window.
	ErrNotOpen = errors.New("quiz is not open")
	// ErrAccessCodeRequired indicates the quiz is code-protected and no code was supplied.
	ErrAccessCodeRequired = errors.New("access code required")
	// ErrAccessCodeInvalid indicates the supplied access code did not match.
	ErrAccessCodeInvalid = errors.New("access code invalid")
	// ErrNetworkNotAllowed indicates the caller's address is outside the quiz's allowed ranges.
	ErrNetworkNotAllowed = errors.New("network address not allowed")

	// ErrTicketMissing indicates no launch ticket was presented.
	ErrTicketMissing = errors.New("launch ticket missing")
	// ErrTicketInvalid indicates the ticket is malformed, unsigned or of the wrong type.
	ErrTicketInvalid = errors.New("launch ticket invalid")
	// ErrTicketExpired indicates the ticket's expiry has passed beyond the skew tolerance.
	ErrTicketExpired = errors.New("launch ticket expired")
	// ErrTicketMismatch indicates the ticket was minted for a different quiz.
	ErrTicketMismatch = errors.New("launch ticket quiz mismatch")
	// ErrTicketUserMismatch indicates the ticket was minted for a different student.
	ErrTicketUserMismatch = errors.New("launch ticket user mismatch")
	// ErrTicketAlreadyUsed indicates the ticket id has already been consumed.
	ErrTicketAlreadyUsed = errors.New("launch ticket already used")

	// ErrValidation indicates a malformed submission payload.
	ErrValidation = errors.New("invalid submission payload")
)

// DuplicateSubmissionError is returned when a result already exists for a
// (quiz, student) pair. It carries enough about the stored result for the
// client to route the student to their existing outcome.
type DuplicateSubmissionError struct {
	ExistingID  string
	SubmittedAt time.Time
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("result already submitted (id=%s at %s)", e.ExistingID, e.SubmittedAt.Format(time.RFC3339))
}
