package sqlstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/store"
)

func newMock(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, driver)), mock
}

func TestStore_GetSubject(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      data.Subject
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name", "description"}).AddRow(3, "Math", "Numbers")
				mock.ExpectQuery("SELECT id, name, description FROM subjects WHERE id = \\$1").
					WithArgs(int64(3)).WillReturnRows(rows)
			},
			want: data.Subject{ID: 3, Name: "Math", Description: "Numbers"},
		},
		{
			name: "missing row maps to ErrNotFound",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, name, description FROM subjects WHERE id = \\$1").
					WithArgs(int64(3)).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))
			},
			wantErr: store.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t, "postgres")
			tt.setupMock(mock)

			got, err := s.GetSubject(context.Background(), 3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_CreateSubject(t *testing.T) {
	t.Run("postgres uses RETURNING", func(t *testing.T) {
		s, mock := newMock(t, "postgres")
		mock.ExpectQuery("INSERT INTO subjects \\(name, description\\) VALUES \\(\\$1, \\$2\\) RETURNING id").
			WithArgs("Math", "").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		got, err := s.CreateSubject(context.Background(), data.Subject{Name: "Math"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mysql uses LastInsertId", func(t *testing.T) {
		s, mock := newMock(t, "mysql")
		mock.ExpectExec("INSERT INTO subjects \\(name, description\\) VALUES \\(\\?, \\?\\)").
			WithArgs("Math", "").
			WillReturnResult(sqlmock.NewResult(9, 1))

		got, err := s.CreateSubject(context.Background(), data.Subject{Name: "Math"})
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert error is wrapped", func(t *testing.T) {
		s, mock := newMock(t, "mysql")
		mock.ExpectExec("INSERT INTO subjects").WillReturnError(fmt.Errorf("connection refused"))

		_, err := s.CreateSubject(context.Background(), data.Subject{Name: "Math"})
		assert.ErrorContains(t, err, "inserting subject: connection refused")
	})
}

func TestStore_DeleteQuiz(t *testing.T) {
	t.Run("missing row", func(t *testing.T) {
		s, mock := newMock(t, "mysql")
		mock.ExpectQuery("SELECT 1 FROM quizzes WHERE id = \\?").
			WithArgs(int64(4)).WillReturnRows(sqlmock.NewRows([]string{"1"}))

		assert.ErrorIs(t, s.DeleteQuiz(context.Background(), 4), store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing row", func(t *testing.T) {
		s, mock := newMock(t, "mysql")
		mock.ExpectQuery("SELECT 1 FROM quizzes WHERE id = \\?").
			WithArgs(int64(4)).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectExec("DELETE FROM quizzes WHERE id = \\?").
			WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.DeleteQuiz(context.Background(), 4))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ListScoresByUser_Error(t *testing.T) {
	s, mock := newMock(t, "postgres")
	mock.ExpectQuery("SELECT id, user_id, quiz_id, total_score, attempted_at FROM scores WHERE user_id = \\$1").
		WillReturnError(fmt.Errorf("timeout"))

	_, err := s.ListScoresByUser(context.Background(), 1)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
