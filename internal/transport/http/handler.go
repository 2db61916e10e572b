// Package http exposes the quiz access-control use cases over a REST-ish
// surface plus a websocket audit stream.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/audit"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/ticket"
)

const ticketHeader = "x-quiz-launch"

type Handler struct {
	service  *app.Service
	verifier *ticket.Verifier
	auth     *Authenticator
	recorder *audit.Recorder
	log      *zap.Logger
}

func NewHandler(service *app.Service, verifier *ticket.Verifier, auth *Authenticator, recorder *audit.Recorder, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, verifier: verifier, auth: auth, recorder: recorder, log: log}
}

// Routes wires the HTTP surface onto a mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /quizzes/eligible", h.requireStudent(h.handleEligible))
	mux.HandleFunc("POST /quizzes/{quizID}/launch", h.requireStudent(h.handleLaunch))
	mux.HandleFunc("GET /quizzes/{quizID}/start", h.requireStudent(h.handleStart))
	mux.HandleFunc("POST /results/submit", h.requireStudent(h.handleSubmit))
	mux.HandleFunc("GET /debug/availability", h.requireStudent(h.handleAvailability))
	mux.HandleFunc("GET /ws/audit", h.serveAuditWS)
	return mux
}

type studentHandler func(w http.ResponseWriter, r *http.Request, studentID string)

func (h *Handler) requireStudent(next studentHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, err := h.auth.StudentID(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Kind: "unauthenticated", Message: "missing or invalid bearer token"})
			return
		}
		next(w, r, studentID)
	}
}

func (h *Handler) handleEligible(w http.ResponseWriter, r *http.Request, studentID string) {
	quizzes, err := h.service.EligibleQuizzes(r.Context(), studentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

type launchRequest struct {
	AccessCode string `json:"accessCode"`
}

func (h *Handler) handleLaunch(w http.ResponseWriter, r *http.Request, studentID string) {
	// An empty body is fine (the access code is optional), but a garbled
	// one is the client's mistake, not a missing code.
	var body launchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Kind: "validation_error", Message: "malformed JSON body"})
		return
	}

	signed, err := h.service.Launch(r.Context(), app.LaunchRequest{
		QuizID:     r.PathValue("quizID"),
		StudentID:  studentID,
		AccessCode: body.AccessCode,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ticket": signed})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request, studentID string) {
	claims, err := h.verifier.Verify(r.Header.Get(ticketHeader), r.PathValue("quizID"), studentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	quiz, err := h.service.StartAttempt(r.Context(), claims, r.RemoteAddr, r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": quiz})
}

type submitRequest struct {
	QuizID    string         `json:"quizId"`
	Answers   map[string]int `json:"answers"`
	TimeSpent int            `json:"timeSpent"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, studentID string) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Kind: "validation_error", Message: "malformed JSON body"})
		return
	}
	if body.QuizID == "" || body.Answers == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Kind: "validation_error", Message: "quizId and answers are required"})
		return
	}

	result, err := h.service.SubmitResult(r.Context(), app.Submission{
		QuizID:           body.QuizID,
		StudentID:        studentID,
		Answers:          body.Answers,
		TimeSpentSeconds: body.TimeSpent,
		RemoteAddr:       r.RemoteAddr,
		UserAgent:        r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"result": result})
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request, studentID string) {
	// Operators may inspect another student's availability.
	subject := r.URL.Query().Get("studentId")
	if subject == "" {
		subject = studentID
	}
	report, err := h.service.ExplainAvailability(r.Context(), subject)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"studentId": subject, "quizzes": report})
}

type errorBody struct {
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	ResultID    string `json:"resultId,omitempty"`
	SubmittedAt string `json:"submittedAt,omitempty"`
}

// writeError maps domain errors to statuses. Anything unrecognized is a
// server fault: logged with full context, reported generically.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *domain.DuplicateSubmissionError
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusConflict, errorBody{
			Kind:        "duplicate_submission",
			Message:     "a result already exists for this quiz",
			ResultID:    dup.ExistingID,
			SubmittedAt: dup.SubmittedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
		return
	}

	status, kind := http.StatusInternalServerError, ""
	switch err {
	case domain.ErrQuizNotFound:
		status, kind = http.StatusNotFound, "not_found"
	case domain.ErrNotOpen:
		status, kind = http.StatusForbidden, "not_open"
	case domain.ErrAccessCodeRequired:
		status, kind = http.StatusForbidden, "access_code_required"
	case domain.ErrAccessCodeInvalid:
		status, kind = http.StatusForbidden, "access_code_invalid"
	case domain.ErrNetworkNotAllowed:
		status, kind = http.StatusForbidden, "network_not_allowed"
	case domain.ErrTicketMissing:
		status, kind = http.StatusUnauthorized, "ticket_missing"
	case domain.ErrTicketInvalid:
		status, kind = http.StatusForbidden, "ticket_invalid"
	case domain.ErrTicketExpired:
		status, kind = http.StatusForbidden, "ticket_expired"
	case domain.ErrTicketMismatch:
		status, kind = http.StatusForbidden, "ticket_mismatch"
	case domain.ErrTicketUserMismatch:
		status, kind = http.StatusForbidden, "ticket_user_mismatch"
	case domain.ErrTicketAlreadyUsed:
		status, kind = http.StatusForbidden, "ticket_already_used"
	case domain.ErrValidation:
		status, kind = http.StatusBadRequest, "validation_error"
	}

	if kind == "" {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, status, errorBody{Kind: "internal", Message: "internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Kind: kind, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
