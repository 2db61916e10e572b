package domain

import "time"

// Question models an MCQ question with a single correct option index.
// The correct index and feedback never reach the student-facing payload.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Feedback     string   `json:"feedback,omitempty"`
}

// Quiz is the authored quiz document. This subsystem reads it, never mutates it.
type Quiz struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	ModuleCode         string     `json:"moduleCode"`
	StartTime          time.Time  `json:"startTime"`
	EndTime            *time.Time `json:"endTime,omitempty"`
	AccessCodeHash     string     `json:"accessCodeHash,omitempty"`
	AllowedNetworks    []string   `json:"allowedNetworks,omitempty"`
	AssignedStudentIDs []string   `json:"assignedStudentIds,omitempty"`
	AuthorID           string     `json:"authorId"`
	Questions          []Question `json:"questions"`
}

// AssignedTo reports whether the quiz is visible to the student.
// An empty assignment list means the quiz is public.
func (q Quiz) AssignedTo(studentID string) bool {
	if len(q.AssignedStudentIDs) == 0 {
		return true
	}
	for _, id := range q.AssignedStudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// StudentQuestion is the answer-key-free projection served to students.
type StudentQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// StudentQuiz is the quiz payload a student receives when an attempt starts.
type StudentQuiz struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	ModuleCode string            `json:"moduleCode"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    *time.Time        `json:"endTime,omitempty"`
	Questions  []StudentQuestion `json:"questions"`
}

// StudentView projects a quiz into its student-facing shape, stripping
// correct indices, feedback, the access-code hash and the network policy.
func StudentView(quiz Quiz) StudentQuiz {
	questions := make([]StudentQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, StudentQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: q.Options,
		})
	}
	return StudentQuiz{
		ID:         quiz.ID,
		Title:      quiz.Title,
		ModuleCode: quiz.ModuleCode,
		StartTime:  quiz.StartTime,
		EndTime:    quiz.EndTime,
		Questions:  questions,
	}
}

// QuizSummary is the listing shape returned by the eligibility endpoint.
type QuizSummary struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	ModuleCode    string     `json:"moduleCode"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	QuestionCount int        `json:"questionCount"`
	HasAccessCode bool       `json:"hasAccessCode"`
}

// Summary projects a quiz into its listing shape.
func Summary(quiz Quiz) QuizSummary {
	return QuizSummary{
		ID:            quiz.ID,
		Title:         quiz.Title,
		ModuleCode:    quiz.ModuleCode,
		StartTime:     quiz.StartTime,
		EndTime:       quiz.EndTime,
		QuestionCount: len(quiz.Questions),
		HasAccessCode: quiz.AccessCodeHash != "",
	}
}

// Result is the attempt record. (QuizID, StudentID) is unique; a result is
// written exactly once and never updated by this subsystem.
type Result struct {
	ID               string         `json:"id"`
	QuizID           string         `json:"quizId"`
	StudentID        string         `json:"studentId"`
	Answers          map[string]int `json:"answers"`
	Score            int            `json:"score"`
	CorrectCount     int            `json:"correctCount"`
	TotalCount       int            `json:"totalCount"`
	TimeSpentSeconds int            `json:"timeSpentSeconds"`
	SubmittedAt      time.Time      `json:"submittedAt"`
}

// Availability explains, per quiz, why a student may or may not attempt it.
// The three reasons are independent; every failing reason is reported, not
// just the first one encountered.
type Availability struct {
	QuizID       string `json:"quizId"`
	Title        string `json:"title"`
	Assigned     bool   `json:"assigned"`
	WindowOpen   bool   `json:"windowOpen"`
	NotSubmitted bool   `json:"notSubmitted"`
	Eligible     bool   `json:"eligible"`
}
