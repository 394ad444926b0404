package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/store"
)

type fixture struct {
	svc   *Service
	store *store.MemoryStore
	cache *cache.Memory
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewMemoryStore(),
		cache: cache.NewMemory(),
		clock: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, cache.NewInvalidator(f.cache))
	// every call advances a minute so attempts are strictly ordered
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func (f *fixture) put(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, f.cache.Set(context.Background(), k, []byte(`{}`), time.Minute))
	}
}

func (f *fixture) cached(key string) bool {
	_, ok, _ := f.cache.Get(context.Background(), key)
	return ok
}

func TestCreateSubject_InvalidatesCollectionOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "subjects", "chapters", "search_abc", "analytics", "charts")

	sub, err := f.svc.CreateSubject(ctx, SubjectInput{Name: "Maths"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sub.ID)

	assert.False(t, f.cached("subjects"))
	assert.False(t, f.cached("search_abc"))
	assert.False(t, f.cached("analytics"))
	assert.True(t, f.cached("chapters"))
	assert.True(t, f.cached("charts"))
}

func TestCreateSubject_MissingName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSubject(context.Background(), SubjectInput{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"name"}, ve.Missing)
	assert.Equal(t, "Missing required fields: name", err.Error())
}

func TestCreateChapter_UnknownSubject(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateChapter(context.Background(), ChapterInput{SubjectID: 42, Name: "Algebra"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"subject_id"}, ve.Invalid)
}

func TestCreateQuiz_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, err := f.svc.CreateSubject(ctx, SubjectInput{Name: "Maths"})
	require.NoError(t, err)
	ch, err := f.svc.CreateChapter(ctx, ChapterInput{SubjectID: sub.ID, Name: "Algebra"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      QuizInput
		missing []string
		invalid []string
	}{
		{
			name:    "empty",
			in:      QuizInput{},
			missing: []string{"chapter_id", "date_of_quiz", "time_duration"},
		},
		{
			name:    "bad date",
			in:      QuizInput{ChapterID: ch.ID, DateOfQuiz: "15/03/2024", Duration: "00:30"},
			invalid: []string{"date_of_quiz"},
		},
		{
			name:    "unknown chapter",
			in:      QuizInput{ChapterID: 99, DateOfQuiz: "2024-03-15", Duration: "00:30"},
			invalid: []string{"chapter_id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateQuiz(ctx, tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.missing, ve.Missing)
			assert.Equal(t, tt.invalid, ve.Invalid)
		})
	}

	q, err := f.svc.CreateQuiz(ctx, QuizInput{ChapterID: ch.ID, DateOfQuiz: "2024-03-15", Duration: "00:30"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", q.DateOfQuiz)
}

func TestUpdateQuestion_PartialPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := seedQuiz(t, f, 2, 1)
	questions, err := f.store.ListQuestionsByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	id := questions[0].ID
	f.put(t, "questions", cache.EntityKey("question", id), "quizzes")

	statement := "What is 2+2?"
	bad := 5
	_, err = f.svc.UpdateQuestion(ctx, id, QuestionPatch{CorrectOption: &bad})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"correct_option"}, ve.Invalid)

	got, err := f.svc.UpdateQuestion(ctx, id, QuestionPatch{Statement: &statement})
	require.NoError(t, err)
	assert.Equal(t, statement, got.Statement)
	assert.Equal(t, 2, got.CorrectOption)
	assert.Equal(t, "Option A", got.Option1)

	assert.False(t, f.cached("questions"))
	assert.False(t, f.cached(cache.EntityKey("question", id)))
	assert.True(t, f.cached("quizzes"))
}

func TestDeleteQuiz_NotFound(t *testing.T) {
	f := newFixture(t)
	f.put(t, "quizzes")

	err := f.svc.DeleteQuiz(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, f.cached("quizzes"), "failed writes invalidate nothing")
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "users_list_admin", "analytics")

	u, err := f.svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "s3cret", FullName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, data.RoleUser, u.Role)
	assert.NotEqual(t, "s3cret", u.PasswordHash)
	assert.False(t, f.cached("users_list_admin"))
	assert.False(t, f.cached("analytics"))

	_, err = f.svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "x", FullName: "Other"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "x", FullName: "Other"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"email"}, ve.Invalid)

	got, err := f.svc.Authenticate(ctx, "ann@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.svc.Authenticate(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureAdmin(ctx, "admin@example.com", "pw", "Admin"))
	require.NoError(t, f.svc.EnsureAdmin(ctx, "admin@example.com", "other", "Admin"))

	all, err := f.store.ListUsers(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, data.RoleAdmin, all[0].Role)

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUpdateUser_PurgesUserViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "pw", FullName: "Ann"})
	require.NoError(t, err)
	f.put(t,
		cache.EntityKey("user", u.ID),
		cache.UserKey("user_analytics", u.ID),
		cache.UserKey("user_analytics", u.ID+1),
		"subjects",
	)

	name := "Ann Smith"
	got, err := f.svc.UpdateUser(ctx, u.ID, UserPatch{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, got.FullName)

	assert.False(t, f.cached(cache.EntityKey("user", u.ID)))
	assert.False(t, f.cached(cache.UserKey("user_analytics", u.ID)))
	assert.True(t, f.cached(cache.UserKey("user_analytics", u.ID+1)))
	assert.True(t, f.cached("subjects"))
}

func TestRequireSelfOrAdmin(t *testing.T) {
	admin := data.Principal{UserID: 1, Role: data.RoleAdmin}
	user := data.Principal{UserID: 2, Role: data.RoleUser}

	assert.NoError(t, RequireSelfOrAdmin(admin, 2))
	assert.NoError(t, RequireSelfOrAdmin(user, 2))
	assert.ErrorIs(t, RequireSelfOrAdmin(user, 3), ErrUnauthorized)
	assert.ErrorIs(t, RequireAdmin(user), ErrUnauthorized)
	assert.NoError(t, RequireAdmin(admin))
}
