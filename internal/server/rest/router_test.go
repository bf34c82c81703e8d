package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/cryptox"
	"github.com/dmitrijs2005/betclever/internal/server/config"
	"github.com/dmitrijs2005/betclever/internal/server/mail"
	"github.com/dmitrijs2005/betclever/internal/server/metrics"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/memory"
	"github.com/dmitrijs2005/betclever/internal/server/revocation"
	"github.com/dmitrijs2005/betclever/internal/server/services"
	"github.com/dmitrijs2005/betclever/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	cryptox.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type discardMailer struct{}

func (discardMailer) Send(context.Context, mail.Message) error { return nil }

type testAPI struct {
	srv   *httptest.Server
	admin *services.AdminService
	blobs *storage.MemoryStore
}

func newTestAPI(t *testing.T, ping func(context.Context) error) *testAPI {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	store := memory.NewStore()
	blobs := storage.NewMemoryStore("http://blobs.local")
	met := metrics.New()
	d := services.Deps{
		Tx: store, Repos: store, Config: cfg, Blobs: blobs,
		Revoked: revocation.NewMemoryStore(), Mailer: discardMailer{}, Metrics: met,
	}
	admin := services.NewAdminService(d)
	h := NewHandler(services.NewAuthService(d), services.NewMemberService(d), admin, Options{
		Metrics: met, Ping: ping, MaxUploadBytes: 1 << 20, CORSOrigins: []string{"http://localhost:5173"},
		Blobs: blobs,
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, admin: admin, blobs: blobs}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (a *testAPI) register(t *testing.T, name string) (token, id string) {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.AccessToken, out.User.ID
}

func (a *testAPI) rootToken(t *testing.T) string {
	t.Helper()
	_, err := a.admin.BootstrapRoot(context.Background(), services.BootstrapRootInput{
		Username: "root", Email: "root@betclever.de", Password: "rootpassword",
	})
	require.NoError(t, err)
	resp, body := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "root@betclever.de", "password": "rootpassword",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.AccessToken
}

func (a *testAPI) upload(t *testing.T, token, category string, files map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		hdr.Set("Content-Type", "application/octet-stream")
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/api/v1/me/documents/"+category, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func errorOf(t *testing.T, body []byte) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{common.NewValidationError("email", "bad"), http.StatusBadRequest},
		{common.ErrResetTokenInvalid, http.StatusBadRequest},
		{common.ErrorUnauthorized, http.StatusUnauthorized},
		{common.ErrTokenRevoked, http.StatusUnauthorized},
		{errors.Join(common.ErrInvalidToken, errors.New("sig")), http.StatusUnauthorized},
		{common.ErrorForbidden, http.StatusForbidden},
		{common.ErrorRootAdmin, http.StatusForbidden},
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrorAlreadyExists, http.StatusConflict},
		{common.ErrorIncomplete, http.StatusUnprocessableEntity},
		{common.ErrorLocked, http.StatusLocked},
		{errors.New("db error: boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestHealthAndMetaAndMetrics(t *testing.T) {
	api := newTestAPI(t, nil)

	resp, body := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = api.do(t, http.MethodGet, "/api/v1/meta/statuses", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meta metaDTO
	require.NoError(t, json.Unmarshal(body, &meta))
	require.Len(t, meta.UploadStatuses, 4)
	assert.Equal(t, "pending_review", meta.UploadStatuses[1].Value)
	assert.Equal(t, 66, meta.UploadStatuses[1].Progress)
	require.Len(t, meta.CommunityStatuses, 8)
	assert.Equal(t, 100, meta.CommunityStatuses[7].Progress)
	assert.Contains(t, meta.UnlockFields, "postalCode")
	assert.Contains(t, meta.UnlockFields, "bank")

	resp, body = api.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `route="/api/v1/meta/statuses"`)

	resp, _ = api.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth_Unavailable(t *testing.T) {
	api := newTestAPI(t, func(context.Context) error { return errors.New("db down") })
	resp, _ := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, nil)

	resp, body := api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "anna", "email": "bad", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := errorOf(t, body)
	assert.Contains(t, e.Fields, "email")
	assert.Contains(t, e.Fields, "password")

	token, _ := api.register(t, "anna")

	resp, body = api.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var acc struct {
		User    userDTO     `json:"user"`
		Profile *profileDTO `json:"profile"`
		Status  statusDTO   `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &acc))
	assert.Equal(t, "anna", acc.User.Username)
	assert.Nil(t, acc.Profile)
	assert.Equal(t, "not_complete", string(acc.Status.UploadStatus))
	assert.Equal(t, "Nicht vollständig", acc.Status.Upload.Label)
	assert.Equal(t, "not_started", string(acc.Status.CommunityStatus))

	resp, _ = api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "anna@example.com", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "anna@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login tokensDTO
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, "Bearer", login.TokenType)

	resp, body = api.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": login.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed tokensDTO
	require.NoError(t, json.Unmarshal(body, &refreshed))
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	resp, _ = api.do(t, http.MethodPost, "/api/v1/auth/logout", refreshed.AccessToken, map[string]string{"refreshToken": refreshed.RefreshToken})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = api.do(t, http.MethodGet, "/api/v1/me", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/v1/auth/password/forgot", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/v1/auth/password/reset", "", map[string]string{"token": "nope", "password": "newpassword"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMalformedJSON(t *testing.T) {
	api := newTestAPI(t, nil)
	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/api/v1/auth/login", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOnboardingOverHTTP(t *testing.T) {
	api := newTestAPI(t, nil)
	root := api.rootToken(t)
	token, id := api.register(t, "anna")

	resp, body := api.do(t, http.MethodPost, "/api/v1/me/submit", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	resp, body = api.do(t, http.MethodPut, "/api/v1/me/profile", token, map[string]string{
		"firstName": "Anna", "lastName": "Schmidt", "phone": "+49 30 1", "street": "Hauptstraße",
		"houseNumber": "1", "postalCode": "10115", "city": "Berlin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	for _, c := range []string{"identity", "card", "bank"} {
		resp, body = api.upload(t, token, c, map[string]string{c + ".pdf": "%PDF-1.4 " + c})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		var doc documentDTO
		require.NoError(t, json.Unmarshal(body, &doc))
		require.Len(t, doc.Files, 1)
		assert.Equal(t, "application/pdf", doc.Files[0].ContentType)
	}
	assert.Len(t, api.blobs.Keys(), 3)

	resp, body = api.upload(t, token, "selfie", map[string]string{"a.png": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = api.do(t, http.MethodPost, "/api/v1/me/submit", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var st statusDTO
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "pending_review", string(st.UploadStatus))

	resp, _ = api.do(t, http.MethodPost, "/api/v1/me/submit", token, nil)
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	resp, _ = api.upload(t, token, "card", map[string]string{"again.pdf": "%PDF-1.4"})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/api/v1/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = api.do(t, http.MethodPost, "/api/v1/admin/users/"+id+"/approve", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = api.do(t, http.MethodPost, "/api/v1/admin/users/"+id+"/approve", root, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "approved", string(st.UploadStatus))

	resp, body = api.do(t, http.MethodPost, "/api/v1/admin/users/"+id+"/unlock", root, map[string]string{"field": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = api.do(t, http.MethodPost, "/api/v1/admin/users/"+id+"/unlock", root, map[string]string{"field": "card"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "not_complete", string(st.UploadStatus))

	resp, body = api.do(t, http.MethodPut, "/api/v1/admin/users/"+id+"/community-status", root, map[string]string{"status": "wetten"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "wetten", string(st.CommunityStatus))
	assert.Equal(t, 5, st.CommunityOrdinal)

	resp, body = api.do(t, http.MethodGet, "/api/v1/admin/users/"+id, root, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var detail userDetailDTO
	require.NoError(t, json.Unmarshal(body, &detail))
	require.Len(t, detail.Documents, 3)
	assert.Contains(t, detail.Documents[0].Files[0].URL, "http://blobs.local/")
	require.NotNil(t, detail.Profile)
	assert.True(t, detail.Profile.IsLocked)

	link := strings.TrimPrefix(detail.Documents[0].Files[0].URL, "http://blobs.local")
	resp, body = api.do(t, http.MethodGet, "/blobs"+link, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "%PDF-1.4 "))
	resp, _ = api.do(t, http.MethodPost, "/blobs"+link, "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, body = api.do(t, http.MethodGet, "/api/v1/admin/users?q=ANNA", root, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list []userSummaryDTO
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "wetten", string(list[0].Status.CommunityStatus))
}

func TestAdminUserManagement(t *testing.T) {
	api := newTestAPI(t, nil)
	root := api.rootToken(t)
	_, id := api.register(t, "bob")

	resp, body := api.do(t, http.MethodGet, "/api/v1/admin/users", root, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []userSummaryDTO
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)
	rootID := list[0].ID
	assert.True(t, list[0].IsRoot)

	resp, _ = api.do(t, http.MethodPatch, "/api/v1/admin/users/"+rootID, root, map[string]any{"isAdmin": false})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = api.do(t, http.MethodDelete, "/api/v1/admin/users/"+rootID, root, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = api.do(t, http.MethodPatch, "/api/v1/admin/users/"+id, root, map[string]any{"username": "robert", "isAdmin": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var u userDTO
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "robert", u.Username)
	assert.True(t, u.IsAdmin)

	resp, _ = api.do(t, http.MethodPut, "/api/v1/admin/users/"+id+"/password", root, map[string]string{"password": "fresh-password"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "bob@example.com", "password": "fresh-password"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = api.do(t, http.MethodDelete, "/api/v1/admin/users/"+id, root, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = api.do(t, http.MethodGet, "/api/v1/admin/users/"+id, root, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := bearerToken(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "bearer abc")
	tok, ok := bearerToken(r)
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	r.Header.Set("Authorization", "Basic abc")
	_, ok = bearerToken(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer    ")
	_, ok = bearerToken(r)
	assert.False(t, ok)
}
