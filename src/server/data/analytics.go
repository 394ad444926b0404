package data

// AttemptResult is returned to the user after submitting answers.
type AttemptResult struct {
	TotalScore     int `json:"total_score"`
	TotalQuestions int `json:"total_questions"`
}

// ── User analytics ──

type UserAnalytics struct {
	TotalAttempts   int                `json:"total_quizzes_attempted"`
	AverageScore    float64            `json:"average_score"`
	BestScore       int                `json:"best_score"`
	TotalScore      int                `json:"total_score"`
	RecentAttempts  []RecentAttempt    `json:"recent_attempts"`
	SubjectAverages map[string]float64 `json:"subject_performance"`
	ChapterAverages map[string]float64 `json:"chapter_performance"`
	Trend           []TrendPoint       `json:"performance_trend"`
}

type RecentAttempt struct {
	QuizID      int64  `json:"quiz_id"`
	ChapterName string `json:"chapter_name"`
	SubjectName string `json:"subject_name"`
	Score       int    `json:"score"`
	Date        string `json:"date"`
}

type TrendPoint struct {
	Attempt int    `json:"attempt"`
	Score   int    `json:"score"`
	Date    string `json:"date"`
}

// HistoryEntry is one row of a user's quiz history.
type HistoryEntry struct {
	ScoreID    int64  `json:"id"`
	QuizID     int64  `json:"quiz_id"`
	QuizDate   string `json:"quiz_date"`
	Chapter    string `json:"chapter"`
	Subject    string `json:"subject"`
	TotalScore int    `json:"total_score"`
	Timestamp  string `json:"timestamp"`
}

// ── Admin analytics ──

type ChartPoint struct {
	Label        string  `json:"quiz_name"`
	QuizID       int64   `json:"quiz_id"`
	AverageScore float64 `json:"avg_score"`
}

type AdminCharts struct {
	QuizStats []ChartPoint `json:"quiz_stats"`
}

type DailyAttempts struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AdminAnalytics struct {
	TotalUsers       int             `json:"total_users"`
	TotalQuizzes     int             `json:"total_quizzes"`
	TotalAttempts    int             `json:"total_attempts"`
	TotalSubjects    int             `json:"total_subjects"`
	TotalChapters    int             `json:"total_chapters"`
	AverageScore     float64         `json:"avg_score"`
	AttemptsOverTime []DailyAttempts `json:"attempts_over_time"`
	TopUsers         []UserTotal     `json:"top_users"`
}

// ── Search ──

type SearchResults struct {
	Users     []User     `json:"users"`
	Subjects  []Subject  `json:"subjects"`
	Chapters  []Chapter  `json:"chapters"`
	Quizzes   []Quiz     `json:"quizzes"`
	Questions []Question `json:"questions"`
}
