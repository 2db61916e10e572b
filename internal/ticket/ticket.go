// Package ticket mints and validates the short-lived launch tickets that
// authorize one student to begin one specific quiz attempt.
package ticket

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quiz-attempt-service/internal/domain"
)

const launchType = "launch"

// Claims are the decoded contents of a verified launch ticket.
type Claims struct {
	StudentID string
	QuizID    string
	TicketID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type launchClaims struct {
	jwt.RegisteredClaims
	QuizID string `json:"qid"`
	Type   string `json:"typ"`
}

// Issuer mints signed launch tickets. The signing secret and TTL are process
// configuration, never request input.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// NewIssuerWithClock is test-only for deterministic timestamps.
func NewIssuerWithClock(secret []byte, ttl time.Duration, now func() time.Time) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: now}
}

// Issue produces a signed ticket binding (student, quiz, expiry). Issuing is
// idempotent to call repeatedly; each call yields a new, independent ticket.
func (i *Issuer) Issue(studentID, quizID string) (string, Claims, error) {
	now := i.now()
	claims := Claims{
		StudentID: studentID,
		QuizID:    quizID,
		TicketID:  uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, launchClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.StudentID,
			ID:        claims.TicketID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		QuizID: claims.QuizID,
		Type:   launchType,
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Verifier validates presented tickets against the request they gate.
type Verifier struct {
	secret []byte
	skew   time.Duration
}

func NewVerifier(secret []byte, skew time.Duration) *Verifier {
	return &Verifier{secret: secret, skew: skew}
}

// Verify checks signature, type, expiry (with skew tolerance), and that the
// ticket is scoped to the given quiz and student. Each failure maps to a
// distinct domain error so clients can react appropriately.
func (v *Verifier) Verify(raw, quizID, studentID string) (Claims, error) {
	if raw == "" {
		return Claims{}, domain.ErrTicketMissing
	}

	parsed := &launchClaims{}
	_, err := jwt.ParseWithClaims(raw, parsed, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(v.skew))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, domain.ErrTicketExpired
		}
		return Claims{}, domain.ErrTicketInvalid
	}

	if parsed.Type != launchType {
		return Claims{}, domain.ErrTicketInvalid
	}
	if parsed.QuizID != quizID {
		return Claims{}, domain.ErrTicketMismatch
	}
	if parsed.Subject != studentID {
		return Claims{}, domain.ErrTicketUserMismatch
	}

	claims := Claims{
		StudentID: parsed.Subject,
		QuizID:    parsed.QuizID,
		TicketID:  parsed.ID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}
