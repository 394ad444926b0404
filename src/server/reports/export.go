package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/mail"
)

const notAvailable = "N/A"

var quizHistoryHeader = []string{
	"Quiz ID", "Chapter ID", "Chapter Name", "Subject Name", "Date of Quiz",
	"Quiz Duration", "Quiz Remarks", "Score", "Attempt Date", "User Name",
}

var allUsersStatsHeader = []string{"User ID", "Email", "Quizzes Taken", "Average Score"}

// lookup indexes quizzes, chapters and subjects by id.
type lookup struct {
	quizzes  map[int64]data.Quiz
	chapters map[int64]data.Chapter
	subjects map[int64]data.Subject
}

func (r *Reports) loadLookup(ctx context.Context) (*lookup, error) {
	l := &lookup{
		quizzes:  map[int64]data.Quiz{},
		chapters: map[int64]data.Chapter{},
		subjects: map[int64]data.Subject{},
	}
	quizzes, err := r.store.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing quizzes: %w", err)
	}
	for _, q := range quizzes {
		l.quizzes[q.ID] = q
	}
	chapters, err := r.store.ListChapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chapters: %w", err)
	}
	for _, c := range chapters {
		l.chapters[c.ID] = c
	}
	subjects, err := r.store.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	for _, s := range subjects {
		l.subjects[s.ID] = s
	}
	return l, nil
}

// WriteQuizHistory writes the attempts of user as CSV and returns the number
// of data rows. Columns of a deleted quiz, chapter or subject read "N/A".
func (r *Reports) WriteQuizHistory(ctx context.Context, w io.Writer, user data.User) (int, error) {
	scores, err := r.store.ListScoresByUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("listing scores of user %d: %w", user.ID, err)
	}
	l, err := r.loadLookup(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(quizHistoryHeader); err != nil {
		return 0, err
	}
	for _, sc := range scores {
		row := []string{strconv.FormatInt(sc.QuizID, 10), notAvailable, notAvailable, notAvailable, notAvailable, notAvailable, notAvailable}
		if q, ok := l.quizzes[sc.QuizID]; ok {
			row[1] = strconv.FormatInt(q.ChapterID, 10)
			row[4], row[5], row[6] = q.DateOfQuiz, q.Duration, q.Remarks
			if ch, ok := l.chapters[q.ChapterID]; ok {
				row[2] = ch.Name
				if sub, ok := l.subjects[ch.SubjectID]; ok {
					row[3] = sub.Name
				}
			}
		}
		row = append(row,
			strconv.Itoa(sc.TotalScore),
			sc.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			user.FullName,
		)
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(scores), cw.Error()
}

// QuizHistoryFilename is the download name of a user's export.
func (r *Reports) QuizHistoryFilename(userID int64) string {
	return fmt.Sprintf("quiz_history_%d_%s.csv", userID, r.now().Format(fileStamp))
}

// ExportQuizHistory stores the user's history as a CSV artifact, emails the
// user that it is ready and returns the object key.
func (r *Reports) ExportQuizHistory(ctx context.Context, userID int64) (string, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading user %d: %w", userID, err)
	}

	var buf bytes.Buffer
	rows, err := r.WriteQuizHistory(ctx, &buf, user)
	if err != nil {
		return "", fmt.Errorf("writing quiz history: %w", err)
	}

	filename := r.QuizHistoryFilename(userID)
	key := "exports/" + filename
	if err := r.objects.Upload(ctx, key, &buf, "text/csv"); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	r.mailer.Send(ctx, mail.Message{
		To:      []string{user.Email},
		Subject: "Quiz Master: Quiz History Export Complete",
		Text: fmt.Sprintf("Hi %s,\n\nYour quiz history export has been completed successfully!\n\n"+
			"Export Details:\n- File: %s\n- Records: %d quiz attempts\n- Generated: %s\n\n"+
			"You can download the file from your dashboard.\n\nBest regards,\nQuiz Master Team",
			user.FullName, filename, rows, r.now().Format("2006-01-02 15:04:05")),
	})
	return key, nil
}

// ExportAllUsersStats stores per-user attempt counts and mean scores of
// every regular user as a CSV artifact and returns the object key.
func (r *Reports) ExportAllUsersStats(ctx context.Context) (string, error) {
	users, err := r.store.ListUsers(ctx, data.RoleUser)
	if err != nil {
		return "", fmt.Errorf("listing users: %w", err)
	}
	scores, err := r.store.ListScores(ctx)
	if err != nil {
		return "", fmt.Errorf("listing scores: %w", err)
	}
	type tally struct{ sum, n int64 }
	per := map[int64]*tally{}
	for _, sc := range scores {
		t, ok := per[sc.UserID]
		if !ok {
			t = &tally{}
			per[sc.UserID] = t
		}
		t.sum += int64(sc.TotalScore)
		t.n++
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(allUsersStatsHeader); err != nil {
		return "", err
	}
	for _, u := range users {
		taken, avg := int64(0), decimal.Zero
		if t, ok := per[u.ID]; ok {
			taken = t.n
			avg = decimal.NewFromInt(t.sum).Div(decimal.NewFromInt(t.n)).Round(2)
		}
		if err := cw.Write([]string{
			strconv.FormatInt(u.ID, 10), u.Email, strconv.FormatInt(taken, 10), avg.String(),
		}); err != nil {
			return "", err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s%s.csv", AllUsersStatsPrefix, r.now().Format(fileStamp))
	if err := r.objects.Upload(ctx, key, &buf, "text/csv"); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return key, nil
}
