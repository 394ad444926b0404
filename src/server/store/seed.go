package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quiz-master/server/src/server/data"
)

// Seed is the YAML document accepted by LoadSeed. Subjects nest their
// chapters, quizzes and questions so ids never appear in the file.
type Seed struct {
	Users    []SeedUser    `yaml:"users"`
	Subjects []SeedSubject `yaml:"subjects"`
}

type SeedUser struct {
	data.User `yaml:",inline"`
	Password  string `yaml:"password"`
}

type SeedSubject struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Chapters    []SeedChapter `yaml:"chapters"`
}

type SeedChapter struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Quizzes     []SeedQuiz `yaml:"quizzes"`
}

type SeedQuiz struct {
	DateOfQuiz string         `yaml:"date_of_quiz"`
	Duration   string         `yaml:"time_duration"`
	Remarks    string         `yaml:"remarks"`
	Questions  []SeedQuestion `yaml:"questions"`
}

type SeedQuestion struct {
	Statement     string   `yaml:"question_statement"`
	Options       []string `yaml:"options"`
	CorrectOption int      `yaml:"correct_option"`
}

// SeedCounts reports how many rows LoadSeed inserted.
type SeedCounts struct {
	Users, Subjects, Chapters, Quizzes, Questions int
}

// ParseSeed decodes a seed document.
func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("parsing seed: %w", err)
	}
	return seed, nil
}

// LoadSeed reads a YAML seed file and inserts its contents into s.
// Users whose email already exists are skipped. hash turns a plain password
// into the stored hash.
func LoadSeed(ctx context.Context, s Store, path string, hash func(string) (string, error)) (SeedCounts, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedCounts{}, fmt.Errorf("reading seed file: %w", err)
	}
	seed, err := ParseSeed(raw)
	if err != nil {
		return SeedCounts{}, err
	}
	return Apply(ctx, s, seed, hash)
}

// Apply inserts a parsed seed into s.
func Apply(ctx context.Context, s Store, seed Seed, hash func(string) (string, error)) (SeedCounts, error) {
	var counts SeedCounts

	for _, su := range seed.Users {
		if _, err := s.GetUserByEmail(ctx, su.Email); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return counts, fmt.Errorf("looking up %s: %w", su.Email, err)
		}

		u := su.User
		if u.Role == "" {
			u.Role = data.RoleUser
		}
		h, err := hash(su.Password)
		if err != nil {
			return counts, fmt.Errorf("hashing password for %s: %w", su.Email, err)
		}
		u.PasswordHash = h
		if _, err := s.CreateUser(ctx, u); err != nil {
			return counts, fmt.Errorf("creating user %s: %w", su.Email, err)
		}
		counts.Users++
	}

	for _, ss := range seed.Subjects {
		sub, err := s.CreateSubject(ctx, data.Subject{Name: ss.Name, Description: ss.Description})
		if err != nil {
			return counts, fmt.Errorf("creating subject %q: %w", ss.Name, err)
		}
		counts.Subjects++

		for _, sc := range ss.Chapters {
			ch, err := s.CreateChapter(ctx, data.Chapter{SubjectID: sub.ID, Name: sc.Name, Description: sc.Description})
			if err != nil {
				return counts, fmt.Errorf("creating chapter %q: %w", sc.Name, err)
			}
			counts.Chapters++

			for _, sq := range sc.Quizzes {
				qz, err := s.CreateQuiz(ctx, data.Quiz{
					ChapterID:  ch.ID,
					DateOfQuiz: sq.DateOfQuiz,
					Duration:   sq.Duration,
					Remarks:    sq.Remarks,
				})
				if err != nil {
					return counts, fmt.Errorf("creating quiz in chapter %q: %w", sc.Name, err)
				}
				counts.Quizzes++

				for _, question := range sq.Questions {
					if len(question.Options) != 4 {
						return counts, fmt.Errorf("question %q: want 4 options, got %d", question.Statement, len(question.Options))
					}
					_, err := s.CreateQuestion(ctx, data.Question{
						QuizID:        qz.ID,
						Statement:     question.Statement,
						Option1:       question.Options[0],
						Option2:       question.Options[1],
						Option3:       question.Options[2],
						Option4:       question.Options[3],
						CorrectOption: question.CorrectOption,
					})
					if err != nil {
						return counts, fmt.Errorf("creating question %q: %w", question.Statement, err)
					}
					counts.Questions++
				}
			}
		}
	}

	return counts, nil
}
