package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/parkcw/mboard/config"
	"github.com/parkcw/mboard/middleware"
	"github.com/parkcw/mboard/models"
	"github.com/parkcw/mboard/repository"
	"github.com/parkcw/mboard/session"
	"github.com/parkcw/mboard/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := utils.InitLogger(config.AppConfig{LogLevel: "error"}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeMembers implements repository.Members in memory.
type fakeMembers struct {
	byUsername  map[string]*models.Member
	nextID      uint
	failInsert  bool
	updateCalls int
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{byUsername: map[string]*models.Member{}, nextID: 1}
}

func (f *fakeMembers) Insert(m *models.Member) (int64, error) {
	if f.failInsert {
		return 0, errors.New("insert failed")
	}
	if _, exists := f.byUsername[m.Username]; exists {
		return 0, errors.New("duplicate username")
	}
	m.ID = f.nextID
	f.nextID++
	cp := *m
	f.byUsername[m.Username] = &cp
	return 1, nil
}

func (f *fakeMembers) PasswordHash(username string) (string, error) {
	m, ok := f.byUsername[username]
	if !ok {
		return "", repository.ErrNotFound
	}
	return m.PasswordHash, nil
}

func (f *fakeMembers) Find(username string) (*models.Member, error) {
	m, ok := f.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembers) Update(username, name, email, newPasswordHash string) (int64, error) {
	f.updateCalls++
	m, ok := f.byUsername[username]
	if !ok {
		return 0, nil
	}
	m.Name = name
	m.Email = email
	if newPasswordHash != "" {
		m.PasswordHash = newPasswordHash
	}
	return 1, nil
}

func (f *fakeMembers) Delete(username string) (int64, error) {
	if _, ok := f.byUsername[username]; !ok {
		return 0, nil
	}
	delete(f.byUsername, username)
	return 1, nil
}

func newMemberRouter(members repository.Members, sessions session.Store) *gin.Engine {
	r := gin.New()
	mc := NewMemberController(members, sessions)
	gate := middleware.SessionRequired(sessions)

	g := r.Group("/api/v1/member")
	g.POST("/join", mc.Join)
	g.POST("/login", mc.Login)
	g.POST("/logout", mc.Logout)
	g.GET("/info", gate, mc.Info)
	g.POST("/update", gate, mc.Update)
	g.POST("/quit", gate, mc.Quit)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, cookie string) (*httptest.ResponseRecorder, utils.JSONResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: config.Get().SessionCookie, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func registerBob(t *testing.T, r *gin.Engine) {
	t.Helper()
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/member/join", gin.H{
		"username": "bob",
		"name":     "Bob",
		"password": "pw1pw1",
		"email":    "bob@example.com",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestJoinThenLogin(t *testing.T) {
	members := newFakeMembers()
	sessions := session.NewMemoryStore(time.Hour)
	r := newMemberRouter(members, sessions)

	registerBob(t, r)

	// The stored password must be a hash, never the plaintext.
	stored := members.byUsername["bob"]
	require.NotEqual(t, "pw1pw1", stored.PasswordHash)
	require.True(t, utils.CheckPassword(stored.PasswordHash, "pw1pw1"))

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/member/login", gin.H{
		"username": "bob",
		"password": "pw1pw1",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "/", resp.Target)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, config.Get().SessionCookie, cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestJoinDuplicateUsername(t *testing.T) {
	members := newFakeMembers()
	r := newMemberRouter(members, session.NewMemoryStore(time.Hour))

	registerBob(t, r)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/member/join", gin.H{
		"username": "bob",
		"name":     "Other Bob",
		"password": "pw2pw2",
	}, "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "username already exists", resp.Message)
}

func TestLoginFailureIsIndistinguishable(t *testing.T) {
	members := newFakeMembers()
	r := newMemberRouter(members, session.NewMemoryStore(time.Hour))

	registerBob(t, r)

	wWrongPw, respWrongPw := doJSON(t, r, http.MethodPost, "/api/v1/member/login", gin.H{
		"username": "bob",
		"password": "wrong",
	}, "")
	wNoUser, respNoUser := doJSON(t, r, http.MethodPost, "/api/v1/member/login", gin.H{
		"username": "nobody",
		"password": "whatever",
	}, "")

	require.Equal(t, http.StatusUnauthorized, wWrongPw.Code)
	require.Equal(t, http.StatusUnauthorized, wNoUser.Code)
	// Wrong password and missing account must not be tellable apart.
	require.Equal(t, respWrongPw.Message, respNoUser.Message)
	require.Equal(t, "login failed", respNoUser.Message)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	members := newFakeMembers()
	r := newMemberRouter(members, session.NewMemoryStore(time.Hour))

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/member/info", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "login required", resp.Message)
	require.Equal(t, middleware.LoginTarget, resp.Target)

	// A made-up token is just as unauthenticated.
	w, resp = doJSON(t, r, http.MethodGet, "/api/v1/member/info", nil, "forged-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "login required", resp.Message)
}

func TestInfoReturnsEmailParts(t *testing.T) {
	members := newFakeMembers()
	sessions := session.NewMemoryStore(time.Hour)
	r := newMemberRouter(members, sessions)

	registerBob(t, r)
	token, err := sessions.Establish(context.Background(), "bob")
	require.NoError(t, err)

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/member/info", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "bob", data["email_local"])
	require.Equal(t, "example.com", data["email_domain"])

	member, ok := data["member"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "bob", member["username"])
	// The hash must not leak into the response.
	require.NotContains(t, member, "password_hash")
	require.NotContains(t, w.Body.String(), "PasswordHash")
}

func TestUpdateWrongCurrentPassword(t *testing.T) {
	members := newFakeMembers()
	sessions := session.NewMemoryStore(time.Hour)
	r := newMemberRouter(members, sessions)

	registerBob(t, r)
	before := *members.byUsername["bob"]
	token, err := sessions.Establish(context.Background(), "bob")
	require.NoError(t, err)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/member/update", gin.H{
		"name":         "Robert",
		"email":        "new@example.com",
		"password":     "wrong",
		"new_password": "pw2pw2",
	}, token)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "not authorized", resp.Message)

	// Record untouched, no re-hash happened.
	require.Zero(t, members.updateCalls)
	require.Equal(t, before, *members.byUsername["bob"])
}

func TestUpdateWithNewPassword(t *testing.T) {
	members := newFakeMembers()
	sessions := session.NewMemoryStore(time.Hour)
	r := newMemberRouter(members, sessions)

	registerBob(t, r)
	oldHash := members.byUsername["bob"].PasswordHash
	token, err := sessions.Establish(context.Background(), "bob")
	require.NoError(t, err)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/member/update", gin.H{
		"name":         "Robert",
		"email":        "new@example.com",
		"password":     "pw1pw1",
		"new_password": "pw2pw2",
	}, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "member info updated", resp.Message)
	require.Equal(t, "/member/info", resp.Target)

	updated := members.byUsername["bob"]
	require.Equal(t, "Robert", updated.Name)
	require.NotEqual(t, oldHash, updated.PasswordHash)
	require.True(t, utils.CheckPassword(updated.PasswordHash, "pw2pw2"))
}

func TestUpdateWithoutNewPasswordKeepsHash(t *testing.T) {
	members := newFakeMembers()
	sessions := session.NewMemoryStore(time.Hour)
	r := newMemberRouter(members, sessions)

	registerBob(t, r)
	oldHash := members.byUsername["bob"].PasswordHash
	token, err := sessions.Establish(context.Background(), "bob")
	require.NoError(t, err)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/member/update", gin.H{
		"name":     "Robert",
		"password": "pw1pw1",
	}, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, oldHash, members.byUsername["bob"].PasswordHash)
}

func TestQuitWrongPassword(t *testing.T) {
	members := newFakeMembers()
	sessions := session.NewMemoryStore(time.Hour)
	r := newMemberRouter(members, sessions)

	registerBob(t, r)
	token, err := sessions.Establish(context.Background(), "bob")
	require.NoError(t, err)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/member/quit", gin.H{
		"password": "wrong",
	}, token)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "not authorized", resp.Message)
	require.Contains(t, members.byUsername, "bob")
}

func TestQuitDeletesAccountAndSession(t *testing.T) {
	members := newFakeMembers()
	sessions := session.NewMemoryStore(time.Hour)
	r := newMemberRouter(members, sessions)

	registerBob(t, r)
	token, err := sessions.Establish(context.Background(), "bob")
	require.NoError(t, err)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/member/quit", gin.H{
		"password": "pw1pw1",
	}, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "account deleted", resp.Message)
	require.Equal(t, "/", resp.Target)

	require.NotContains(t, members.byUsername, "bob")

	// The same session token no longer authenticates.
	w, resp = doJSON(t, r, http.MethodGet, "/api/v1/member/info", nil, token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "login required", resp.Message)
}

func TestLogoutTerminatesSession(t *testing.T) {
	members := newFakeMembers()
	sessions := session.NewMemoryStore(time.Hour)
	r := newMemberRouter(members, sessions)

	registerBob(t, r)
	token, err := sessions.Establish(context.Background(), "bob")
	require.NoError(t, err)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/member/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "/", resp.Target)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/member/info", nil, token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
