package auth

import (
	"context"
	"errors"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
)

// RecoveryAnswer is a security question with its plain-text answer
type RecoveryAnswer struct {
	Question string
	Answer   string
}

// normalizeAnswer makes answer matching case-insensitive
func normalizeAnswer(answer string) string {
	return strings.ToLower(answer)
}

func (s *Service) hashAnswer(answer string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(normalizeAnswer(answer)), s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrCredentialTooLong
		}
		return "", err
	}
	return string(hash), nil
}

// VerifyRecoveryAnswers reports whether every supplied answer matches the
// stored question of the same text. All stored questions must be answered
// and each stored entry is consumed by at most one answer. Unknown users
// yield false rather than an error.
func (s *Service) VerifyRecoveryAnswers(ctx context.Context, username string, answers []RecoveryAnswer) (bool, error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	stored, err := s.storage.GetRecoveryQuestions(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if len(stored) == 0 || len(answers) != len(stored) {
		return false, nil
	}

	remaining := slices.Clone(stored)
	for _, a := range answers {
		i := slices.IndexFunc(remaining, func(q model.RecoveryQuestion) bool {
			return q.Question == a.Question &&
				bcrypt.CompareHashAndPassword([]byte(q.AnswerHash), []byte(normalizeAnswer(a.Answer))) == nil
		})
		if i < 0 {
			return false, nil
		}
		remaining = slices.Delete(remaining, i, i+1)
	}
	return true, nil
}
