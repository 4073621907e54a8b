package cli_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/suite"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/cli"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/factory"
)

type CLISuite struct {
	suite.Suite
	app       *factory.TestApp
	rest      *httptest.Server
	realtime  *httptest.Server
	tokenFile string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.rest = httptest.NewServer(s.app.Router)
	s.realtime = httptest.NewServer(s.app.RealtimeRouter)
	s.app.Hub.SetRunning(true)
	s.tokenFile = filepath.Join(s.T().TempDir(), "token")
}

func (s *CLISuite) TearDownTest() {
	s.app.RealtimeHandler.Shutdown()
	s.realtime.Close()
	s.rest.Close()
}

// run executes the CLI in-process with JSON output and the suite's token file
func (s *CLISuite) run(stdin string, args ...string) (string, error) {
	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--server", s.rest.URL,
		"--realtime", "ws" + strings.TrimPrefix(s.realtime.URL, "http") + "/",
		"--token-file", s.tokenFile,
		"--output", "json",
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *CLISuite) registerAndLogin(user string) string {
	_, err := s.run("", "register", "--user", user, "--pass", "pw123",
		"--security", "first pet=Rex", "--security", "home town=Chernogorsk")
	s.Require().NoError(err)

	out, err := s.run("", "login", "--user", user, "--pass", "pw123")
	s.Require().NoError(err)

	var login cli.LoginResult
	s.Require().NoError(json.Unmarshal([]byte(out), &login))
	return login.Token
}

func (s *CLISuite) TestHealth() {
	out, err := s.run("", "health")
	s.Require().NoError(err)
	s.JSONEq(`{"status":"ok"}`, out)
}

func (s *CLISuite) TestStatus() {
	out, err := s.run("", "status")
	s.Require().NoError(err)
	s.JSONEq(`{"connected":true,"clients":0,"port":8765}`, out)
}

func (s *CLISuite) TestLoginSavesToken() {
	token := s.registerAndLogin("alice")
	s.NotEmpty(token)

	saved, err := os.ReadFile(s.tokenFile)
	s.Require().NoError(err)
	s.Equal(token, string(saved))

	out, err := s.run("", "whoami")
	s.Require().NoError(err)
	var session cli.SessionResult
	s.Require().NoError(json.Unmarshal([]byte(out), &session))
	s.Equal("alice", session.User.Username)
}

func (s *CLISuite) TestLoginReadsPasswordFromStdin() {
	_, err := s.run("", "register", "--user", "bob", "--pass", "pw123",
		"--security", "a=1", "--security", "b=2")
	s.Require().NoError(err)

	out, err := s.run("pw123\n", "login", "--user", "bob")
	s.Require().NoError(err)
	s.Contains(out, `"username": "bob"`)
}

func (s *CLISuite) TestLoginFailureIsReported() {
	_, err := s.run("", "login", "--user", "ghost", "--pass", "x")
	s.Require().Error(err)
	s.Contains(err.Error(), "INVALID_CREDENTIALS")

	_, statErr := os.Stat(s.tokenFile)
	s.True(os.IsNotExist(statErr))
}

func (s *CLISuite) TestRegisterRejectsBadSecurityFlag() {
	_, err := s.run("", "register", "--user", "alice", "--pass", "pw", "--security", "no-separator")
	s.Require().Error(err)
	s.Contains(err.Error(), "question=answer")
}

func (s *CLISuite) TestMarkerLifecycle() {
	s.registerAndLogin("alice")

	out, err := s.run("", "markers", "list")
	s.Require().NoError(err)
	s.JSONEq(`[]`, out)

	out, err = s.run("", "markers", "add", "--id", "m1", "--type", "enemy", "--x", "100", "--y", "200", "--notes", "bunker")
	s.Require().NoError(err)
	s.JSONEq(`{"success":true,"id":"m1"}`, out)

	out, err = s.run("", "markers", "add", "--type", "objective", "--shape", "star", "--x", "10", "--y", "10")
	s.Require().NoError(err)
	var added struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal([]byte(out), &added))
	s.Len(added.ID, 36)

	out, err = s.run("", "markers", "list")
	s.Require().NoError(err)
	var list []cli.Marker
	s.Require().NoError(json.Unmarshal([]byte(out), &list))
	s.Require().Len(list, 2)
	byID := map[string]cli.Marker{}
	for _, m := range list {
		byID[m.ID] = m
	}
	s.Equal("alice", byID["m1"].CreatedBy)
	s.Equal("#FF0000", byID["m1"].Color)
	s.Equal("bunker", byID["m1"].Notes)

	_, err = s.run("", "markers", "remove", "m1")
	s.Require().NoError(err)

	out, err = s.run("", "markers", "list")
	s.Require().NoError(err)
	s.Require().NoError(json.Unmarshal([]byte(out), &list))
	s.Len(list, 1)
}

func (s *CLISuite) TestMarkerValidationError() {
	s.registerAndLogin("alice")

	_, err := s.run("", "markers", "add", "--type", "spaceship")
	s.Require().Error(err)
	s.Contains(err.Error(), "INVALID_MARKER")
}

func (s *CLISuite) TestMarkersRequireLogin() {
	_, err := s.run("", "markers", "list")
	s.Require().Error(err)
	s.Contains(err.Error(), "UNAUTHORIZED")
}

func (s *CLISuite) TestLogoutClearsToken() {
	s.registerAndLogin("alice")

	_, err := s.run("", "logout")
	s.Require().NoError(err)

	_, statErr := os.Stat(s.tokenFile)
	s.True(os.IsNotExist(statErr))

	_, err = s.run("", "whoami")
	s.Require().Error(err)
}

func (s *CLISuite) TestTOTP() {
	s.registerAndLogin("alice")

	out, err := s.run("", "totp", "enable")
	s.Require().NoError(err)
	var enrollment cli.TOTPEnrollment
	s.Require().NoError(json.Unmarshal([]byte(out), &enrollment))
	s.NotEmpty(enrollment.Secret)
	s.Empty(enrollment.QRCode)

	_, err = s.run("", "totp", "verify", "000000")
	s.Error(err)

	code, err := totp.GenerateCode(enrollment.Secret, s.app.MockClock.Now())
	s.Require().NoError(err)
	out, err = s.run("", "totp", "verify", code)
	s.Require().NoError(err)
	s.JSONEq(`{"success":true}`, out)
}

func (s *CLISuite) TestRecover() {
	s.registerAndLogin("alice")

	_, err := s.run("", "recover", "--user", "alice", "--security", "first pet=REX", "--security", "home town=chernogorsk")
	s.NoError(err)

	_, err = s.run("", "recover", "--user", "alice", "--security", "first pet=Fido", "--security", "home town=Chernogorsk")
	s.Error(err)
}

func (s *CLISuite) TestWatchStreamsFrames() {
	token := s.registerAndLogin("alice")

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.run("", "watch", "--count", "2")
		done <- result{out, err}
	}()

	s.Require().Eventually(func() bool { return s.app.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	body := strings.NewReader(`{"id":"w1","type":"enemy","shape":"circle","x":1,"y":2}`)
	req, err := http.NewRequest(http.MethodPost, s.rest.URL+"/api/v1/markers", body)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	select {
	case r := <-done:
		s.Require().NoError(r.err)
		lines := strings.Split(strings.TrimSpace(r.out), "\n")
		s.Require().Len(lines, 2)
		s.Contains(lines[0], `"type":"connected"`)
		s.Contains(lines[1], `"action":"add"`)
		s.Contains(lines[1], `"id":"w1"`)
	case <-time.After(3 * time.Second):
		s.Fail("watch did not finish")
	}
}
