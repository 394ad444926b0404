package data

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DateLayout is the wire and storage format of calendar dates (quiz dates, birth dates).
const DateLayout = "2006-01-02"

// ── Entities ──

type User struct {
	ID            int64  `json:"id" db:"id" yaml:"-"`
	Email         string `json:"email" db:"email" yaml:"email"`
	PasswordHash  string `json:"-" db:"password_hash" yaml:"-"`
	FullName      string `json:"full_name" db:"full_name" yaml:"full_name"`
	Role          string `json:"role" db:"role" yaml:"role"`
	Qualification string `json:"qualification" db:"qualification" yaml:"qualification"`
	DOB           string `json:"dob" db:"dob" yaml:"dob"`
}

type Subject struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

type Chapter struct {
	ID          int64  `json:"id" db:"id"`
	SubjectID   int64  `json:"subject_id" db:"subject_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

type Quiz struct {
	ID         int64  `json:"id" db:"id"`
	ChapterID  int64  `json:"chapter_id" db:"chapter_id"`
	DateOfQuiz string `json:"date_of_quiz" db:"date_of_quiz"`
	Duration   string `json:"time_duration" db:"time_duration"`
	Remarks    string `json:"remarks" db:"remarks"`
}

type Question struct {
	ID            int64  `json:"id" db:"id"`
	QuizID        int64  `json:"quiz_id" db:"quiz_id"`
	Statement     string `json:"question_statement" db:"question_statement"`
	Option1       string `json:"option1" db:"option1"`
	Option2       string `json:"option2" db:"option2"`
	Option3       string `json:"option3" db:"option3"`
	Option4       string `json:"option4" db:"option4"`
	CorrectOption int    `json:"correct_option" db:"correct_option"`
}

// Score is one attempt of one quiz by one user. Retakes produce additional rows.
type Score struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	QuizID     int64     `json:"quiz_id" db:"quiz_id"`
	TotalScore int       `json:"total_score" db:"total_score"`
	Timestamp  time.Time `json:"timestamp" db:"attempted_at"`
}

// UserTotal is one row of a leaderboard ranked by accumulated points.
type UserTotal struct {
	UserID     int64  `json:"user_id" db:"user_id"`
	FullName   string `json:"name" db:"full_name"`
	TotalScore int    `json:"score" db:"total_score"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64
	Role   string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
