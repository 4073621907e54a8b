package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/mocks"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage/memory"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	cfg := DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	s.service = New(s.storage, s.clock, s.random, cfg, testutil.NopLogger())
	s.ctx = context.Background()
}

func answers() []RecoveryAnswer {
	return []RecoveryAnswer{
		{Question: "First pet?", Answer: "Rex"},
		{Question: "Home town?", Answer: "Everon"},
	}
}

func (s *ServiceSuite) register(username, password string) model.UserID {
	id, err := s.service.Register(s.ctx, username, password, answers())
	s.Require().NoError(err)
	return id
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	id := s.register("alice", "pw123")
	s.NotEmpty(id)

	user, err := s.storage.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(id, user.ID)
	s.NotEqual("pw123", user.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123")))
	s.False(user.HasTOTP())
}

func (s *ServiceSuite) TestRegisterHashesLowerCasedAnswers() {
	id := s.register("alice", "pw123")

	qs, err := s.storage.GetRecoveryQuestions(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(qs, 2)
	s.Equal("First pet?", qs[0].Question)
	s.NotEqual("Rex", qs[0].AnswerHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(qs[0].AnswerHash), []byte("rex")))
}

func (s *ServiceSuite) TestRegisterDoesNotCreateSession() {
	id := s.register("alice", "pw123")

	n, err := s.storage.DeleteSessionsForUser(s.ctx, id)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ServiceSuite) TestRegisterDuplicateUsername() {
	s.register("alice", "pw123")

	_, err := s.service.Register(s.ctx, "alice", "other", answers())
	s.ErrorIs(err, ErrDuplicateUsername)
}

func (s *ServiceSuite) TestRegisterRequiresTwoRecoveryQuestions() {
	_, err := s.service.Register(s.ctx, "alice", "pw123", answers()[:1])
	s.ErrorIs(err, ErrInvalidRecoveryQuestions)

	three := append(answers(), RecoveryAnswer{Question: "Q3", Answer: "A3"})
	_, err = s.service.Register(s.ctx, "alice", "pw123", three)
	s.ErrorIs(err, ErrInvalidRecoveryQuestions)

	_, err = s.service.Register(s.ctx, "alice", "pw123", []RecoveryAnswer{{Question: "Q", Answer: ""}, {Question: "Q2", Answer: "A"}})
	s.ErrorIs(err, ErrInvalidRecoveryQuestions)
}

func (s *ServiceSuite) TestRegisterRejectsRepeatedQuestion() {
	_, err := s.service.Register(s.ctx, "dup", "pw123", []RecoveryAnswer{
		{Question: "Pet?", Answer: "Rex"},
		{Question: "Pet?", Answer: "Rex"},
	})
	s.ErrorIs(err, ErrInvalidRecoveryQuestions)

	_, err = s.storage.GetUserByUsername(s.ctx, "dup")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestRegisterRejectsOverlongPassword() {
	_, err := s.service.Register(s.ctx, "alice", strings.Repeat("p", 80), answers())
	s.ErrorIs(err, ErrCredentialTooLong)

	_, err = s.storage.GetUserByUsername(s.ctx, "alice")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestRegisterRejectsOverlongAnswer() {
	_, err := s.service.Register(s.ctx, "alice", "pw123", []RecoveryAnswer{
		{Question: "First pet?", Answer: strings.Repeat("r", 80)},
		{Question: "Home town?", Answer: "Everon"},
	})
	s.ErrorIs(err, ErrCredentialTooLong)
}

func (s *ServiceSuite) TestRegisterAcceptsSeventyTwoBytePassword() {
	password := strings.Repeat("p", 72)
	s.register("alice", password)

	_, err := s.service.Login(s.ctx, "alice", password)
	s.NoError(err)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	id := s.register("alice", "pw123")

	res, err := s.service.Login(s.ctx, "alice", "pw123")
	s.Require().NoError(err)
	s.Equal(id, res.UserID)
	s.Equal("alice", res.Username)
	s.False(res.HasTOTP)
	s.True(strings.HasPrefix(res.Token, "sess_"))
	s.Len(res.Token, len("sess_")+64)
	s.True(strings.HasPrefix(res.DeviceID, "dev_"))
	s.Equal(s.clock.Now().Add(60*24*time.Hour), res.ExpiresAt)
}

func (s *ServiceSuite) TestLoginIssuesDistinctTokensAndDevices() {
	s.register("alice", "pw123")

	a, err := s.service.Login(s.ctx, "alice", "pw123")
	s.Require().NoError(err)
	b, err := s.service.Login(s.ctx, "alice", "pw123")
	s.Require().NoError(err)

	s.NotEqual(a.Token, b.Token)
	s.NotEqual(a.DeviceID, b.DeviceID)
}

func (s *ServiceSuite) TestLoginUsesRandomSource() {
	s.register("alice", "pw123")
	s.random.QueueHex("abc123", "d00d")

	res, err := s.service.Login(s.ctx, "alice", "pw123")
	s.Require().NoError(err)
	s.Equal("sess_abc123", res.Token)
	s.Equal("dev_d00d", res.DeviceID)
}

func (s *ServiceSuite) TestLoginFailsWithoutRandomness() {
	s.register("alice", "pw123")
	s.random.FailWith(errors.New("entropy exhausted"))

	_, err := s.service.Login(s.ctx, "alice", "pw123")
	s.Require().Error(err)
	s.NotErrorIs(err, ErrInvalidCredentials)

	n, err := s.storage.DeleteExpiredSessions(s.ctx, s.clock.Now().Add(365*24*time.Hour))
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ServiceSuite) TestLoginFailuresAreIndistinguishable() {
	s.register("alice", "pw123")

	_, wrongPassword := s.service.Login(s.ctx, "alice", "nope")
	_, unknownUser := s.service.Login(s.ctx, "mallory", "pw123")

	s.ErrorIs(wrongPassword, ErrInvalidCredentials)
	s.ErrorIs(unknownUser, ErrInvalidCredentials)
	s.Equal(wrongPassword.Error(), unknownUser.Error())
}

func (s *ServiceSuite) TestLoginUsernameIsCaseSensitive() {
	s.register("alice", "pw123")

	_, err := s.service.Login(s.ctx, "Alice", "pw123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// VerifySession tests

func (s *ServiceSuite) TestVerifySessionValid() {
	id := s.register("alice", "pw123")
	res, _ := s.service.Login(s.ctx, "alice", "pw123")

	ident, err := s.service.VerifySession(s.ctx, res.Token)
	s.Require().NoError(err)
	s.Equal(id, ident.UserID)
	s.Equal("alice", ident.Username)
	s.False(ident.HasTOTP)
}

func (s *ServiceSuite) TestVerifySessionReportsTOTP() {
	id := s.register("alice", "pw123")
	_, err := s.service.EnableTOTP(s.ctx, id)
	s.Require().NoError(err)
	res, _ := s.service.Login(s.ctx, "alice", "pw123")
	s.True(res.HasTOTP)

	ident, err := s.service.VerifySession(s.ctx, res.Token)
	s.Require().NoError(err)
	s.True(ident.HasTOTP)
}

func (s *ServiceSuite) TestVerifySessionExpired() {
	s.register("alice", "pw123")
	res, _ := s.service.Login(s.ctx, "alice", "pw123")

	s.clock.Advance(60*24*time.Hour - time.Second)
	_, err := s.service.VerifySession(s.ctx, res.Token)
	s.NoError(err)

	s.clock.Advance(time.Second)
	_, err = s.service.VerifySession(s.ctx, res.Token)
	s.ErrorIs(err, ErrInvalidSession)

	// lazily checked, not purged
	_, err = s.storage.GetSession(s.ctx, res.Token)
	s.NoError(err)
}

func (s *ServiceSuite) TestVerifySessionUnknownToken() {
	_, err := s.service.VerifySession(s.ctx, "sess_unknown")
	s.ErrorIs(err, ErrInvalidSession)

	_, err = s.service.VerifySession(s.ctx, "")
	s.ErrorIs(err, ErrInvalidSession)
}

// Logout tests

func (s *ServiceSuite) TestLogoutRevokesEveryDevice() {
	id := s.register("alice", "pw123")
	laptop, _ := s.service.Login(s.ctx, "alice", "pw123")
	phone, _ := s.service.Login(s.ctx, "alice", "pw123")
	s.NotEqual(laptop.DeviceID, phone.DeviceID)

	s.Require().NoError(s.service.Logout(s.ctx, id))

	_, err := s.service.VerifySession(s.ctx, laptop.Token)
	s.ErrorIs(err, ErrInvalidSession)
	_, err = s.service.VerifySession(s.ctx, phone.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestLogoutLeavesOtherUsersAlone() {
	alice := s.register("alice", "pw123")
	s.register("bob", "pw456")
	bob, _ := s.service.Login(s.ctx, "bob", "pw456")

	s.Require().NoError(s.service.Logout(s.ctx, alice))

	_, err := s.service.VerifySession(s.ctx, bob.Token)
	s.NoError(err)
}

// CleanExpiredSessions tests

func (s *ServiceSuite) TestCleanExpiredSessions() {
	s.register("alice", "pw123")
	old, _ := s.service.Login(s.ctx, "alice", "pw123")
	s.clock.Advance(30 * 24 * time.Hour)
	fresh, _ := s.service.Login(s.ctx, "alice", "pw123")
	s.clock.Advance(31 * 24 * time.Hour)

	n, err := s.service.CleanExpiredSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.storage.GetSession(s.ctx, old.Token)
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, err = s.service.VerifySession(s.ctx, fresh.Token)
	s.NoError(err)
}

// TOTP tests

func (s *ServiceSuite) TestEnableTOTP() {
	id := s.register("alice", "pw123")

	enr, err := s.service.EnableTOTP(s.ctx, id)
	s.Require().NoError(err)
	s.NotEmpty(enr.Secret)
	s.True(strings.HasPrefix(enr.EnrollmentURI, "otpauth://totp/"))
	s.Contains(enr.EnrollmentURI, "alice")
	s.Contains(enr.EnrollmentURI, "secret="+enr.Secret)
	s.Equal([]byte("\x89PNG"), enr.QRCodePNG[:4])

	user, _ := s.storage.GetUser(s.ctx, id)
	s.Equal(enr.Secret, user.TOTPSecret)
}

func (s *ServiceSuite) TestNewDefaultsOnlyUnsetFields() {
	svc := New(s.storage, s.clock, s.random, Config{TOTPIssuer: "Everon Ops", BcryptCost: bcrypt.MinCost}, testutil.NopLogger())

	s.Equal("Everon Ops", svc.cfg.TOTPIssuer)
	s.Equal(bcrypt.MinCost, svc.cfg.BcryptCost)
	s.Equal(60*24*time.Hour, svc.cfg.SessionDuration)
	s.Equal(uint(2), svc.cfg.TOTPSkew)
}

func (s *ServiceSuite) TestEnableTOTPUnknownUser() {
	_, err := s.service.EnableTOTP(s.ctx, "missing")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceSuite) TestVerifyTOTPNotEnabled() {
	id := s.register("alice", "pw123")

	_, err := s.service.VerifyTOTP(s.ctx, id, "123456")
	s.ErrorIs(err, ErrTOTPNotEnabled)
}

func (s *ServiceSuite) codeAt(secret string, t time.Time) string {
	code, err := totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	s.Require().NoError(err)
	return code
}

func (s *ServiceSuite) TestVerifyTOTPToleranceWindow() {
	id := s.register("alice", "pw123")
	enr, err := s.service.EnableTOTP(s.ctx, id)
	s.Require().NoError(err)

	issued := s.clock.Now()
	code := s.codeAt(enr.Secret, issued)

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"same step", 0, true},
		{"two steps later", 60 * time.Second, true},
		{"two steps earlier", -60 * time.Second, true},
		{"three steps later", 90 * time.Second, false},
		{"three steps earlier", -90 * time.Second, false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.clock.Set(issued.Add(tt.offset))
			ok, err := s.service.VerifyTOTP(s.ctx, id, code)
			s.Require().NoError(err)
			s.Equal(tt.want, ok)
		})
	}
}

func (s *ServiceSuite) TestVerifyTOTPWrongCodeIsFalseNotError() {
	id := s.register("alice", "pw123")
	_, err := s.service.EnableTOTP(s.ctx, id)
	s.Require().NoError(err)

	ok, err := s.service.VerifyTOTP(s.ctx, id, "12")
	s.NoError(err)
	s.False(ok)
}

// Recovery tests

func (s *ServiceSuite) TestVerifyRecoveryAnswersCaseInsensitive() {
	s.register("alice", "pw123")

	ok, err := s.service.VerifyRecoveryAnswers(s.ctx, "alice", []RecoveryAnswer{
		{Question: "Home town?", Answer: "EVERON"},
		{Question: "First pet?", Answer: "rex"},
	})
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestVerifyRecoveryAnswersRejectsMismatch() {
	s.register("alice", "pw123")

	tests := []struct {
		name    string
		answers []RecoveryAnswer
	}{
		{"wrong answer", []RecoveryAnswer{{"First pet?", "Rex"}, {"Home town?", "Arland"}}},
		{"missing answer", []RecoveryAnswer{{"First pet?", "Rex"}}},
		{"unknown question", []RecoveryAnswer{{"First pet?", "Rex"}, {"Best friend?", "Everon"}}},
		{"repeated question", []RecoveryAnswer{{"First pet?", "Rex"}, {"First pet?", "Rex"}}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			ok, err := s.service.VerifyRecoveryAnswers(s.ctx, "alice", tt.answers)
			s.Require().NoError(err)
			s.False(ok)
		})
	}
}

func (s *ServiceSuite) TestVerifyRecoveryAnswersWithRepeatedStoredQuestion() {
	id := s.register("alice", "pw123")
	rex, err := s.service.hashAnswer("Rex")
	s.Require().NoError(err)
	fido, err := s.service.hashAnswer("Fido")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.SaveRecoveryQuestions(s.ctx, id, []model.RecoveryQuestion{
		{Question: "Pet?", AnswerHash: rex},
		{Question: "Pet?", AnswerHash: fido},
	}))

	ok, err := s.service.VerifyRecoveryAnswers(s.ctx, "alice", []RecoveryAnswer{
		{Question: "Pet?", Answer: "fido"},
		{Question: "Pet?", Answer: "rex"},
	})
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.service.VerifyRecoveryAnswers(s.ctx, "alice", []RecoveryAnswer{
		{Question: "Pet?", Answer: "rex"},
		{Question: "Pet?", Answer: "rex"},
	})
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestVerifyRecoveryAnswersUnknownUser() {
	ok, err := s.service.VerifyRecoveryAnswers(s.ctx, "nobody", answers())
	s.NoError(err)
	s.False(ok)
}
