package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
users:
  - email: learner@example.com
    full_name: Learner One
    password: secret
subjects:
  - name: Math
    description: Numbers
    chapters:
      - name: Algebra
        quizzes:
          - date_of_quiz: "2024-05-01"
            time_duration: "00:30"
            remarks: warm-up
            questions:
              - question_statement: 2 + 2
                options: ["3", "4", "5", "6"]
                correct_option: 2
`

func TestLoadSeed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	s := NewMemoryStore()
	hash := func(p string) (string, error) { return "hashed:" + p, nil }

	counts, err := LoadSeed(ctx, s, path, hash)
	require.NoError(t, err)
	assert.Equal(t, SeedCounts{Users: 1, Subjects: 1, Chapters: 1, Quizzes: 1, Questions: 1}, counts)

	u, err := s.GetUserByEmail(ctx, "learner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user", u.Role)
	assert.Equal(t, "hashed:secret", u.PasswordHash)

	questions, err := s.ListQuestionsByQuiz(ctx, 1)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "4", questions[0].Option2)
	assert.Equal(t, 2, questions[0].CorrectOption)

	// users are not duplicated on reload
	counts, err = LoadSeed(ctx, s, path, hash)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Users)
}

func TestParseSeed_RejectsMalformedYAML(t *testing.T) {
	_, err := ParseSeed([]byte("users: [oops"))
	assert.Error(t, err)
}

func TestApply_RequiresFourOptions(t *testing.T) {
	seed, err := ParseSeed([]byte(`
subjects:
  - name: S
    chapters:
      - name: C
        quizzes:
          - date_of_quiz: "2024-01-01"
            questions:
              - question_statement: q
                options: ["a", "b"]
                correct_option: 1
`))
	require.NoError(t, err)

	_, err = Apply(context.Background(), NewMemoryStore(), seed, func(p string) (string, error) { return p, nil })
	assert.ErrorContains(t, err, "want 4 options")
}
