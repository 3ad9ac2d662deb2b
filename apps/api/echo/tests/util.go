package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/Shyamyemuka/goldenspire-learn/apps/api/echo"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
	"github.com/Shyamyemuka/goldenspire-learn/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func setup(t *testing.T) (*testutil.Stack, Server) {
	s := testutil.NewStack(t)

	g := gate.New(s.Auth, s.Auth, s.Holder, s.Profiles, RequestNavigator(), s.Logger)
	dispose, err := g.Mount()
	require.NoError(t, err)
	t.Cleanup(dispose)

	app := NewServer(ServerDeps{
		Conf:           s.Conf,
		Logger:         s.Logger,
		Auth:           s.Auth,
		Sessions:       s.Holder,
		Gate:           g,
		Profiles:       s.Profiles,
		Signup:         s.Signup,
		Approvals:      s.Approvals,
		Courses:        s.Courses,
		Notifications:  s.Notifications,
		Validate:       s.Validate,
		Translator:     s.Translator,
		DisableReqLogs: true,
	})
	return s, app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves one request and returns the recorded response.
func do(app Server, method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

// login signs in through the API and returns the token of an admitted user.
func login(t *testing.T, app Server, email, pwd string) string {
	rec := do(app, http.MethodPost, "/v1/auth/login", "", marshalObj(t, LoginRequest{Email: email, Password: pwd}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login() failed: code %d; body %s", rec.Code, rec.Body.String())
	}
	var res LoginResponse
	decode(t, rec, &res)
	return res.Token
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
