package api_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/eventpulse/internal/api"
	"github.com/mcoot/eventpulse/internal/api/response"
	"github.com/mcoot/eventpulse/internal/factory"
	"github.com/mcoot/eventpulse/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T, cfg factory.TestAppConfig) *testServer {
	t.Helper()

	logger := testutil.NopLogger()

	app := factory.NewTestApp(cfg)

	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		CodeService:        app.CodeService,
		EventService:       app.EventService,
		ParticipantService: app.ParticipantService,
		EncounterService:   app.EncounterService,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

// initDataFor builds valid signed init data for a Telegram user
func (ts *testServer) initDataFor(telegramID int, firstName string) string {
	params := map[string]string{
		"auth_date": fmt.Sprintf("%d", ts.app.MockClock.Now().Unix()),
		"user":      fmt.Sprintf(`{"id":%d,"first_name":%q}`, telegramID, firstName),
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	keyMAC := hmac.New(sha256.New, []byte("WebAppData"))
	keyMAC.Write([]byte(factory.TestSecret))
	sigMAC := hmac.New(sha256.New, keyMAC.Sum(nil))
	sigMAC.Write([]byte(strings.Join(pairs, "\n")))

	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("hash", hex.EncodeToString(sigMAC.Sum(nil)))
	return values.Encode()
}

func (ts *testServer) request(method, path string, body any, initData string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if initData != "" {
		req.Header.Set("X-Telegram-Init-Data", initData)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) me(t *testing.T, initData string) response.Me {
	t.Helper()
	rr := ts.request(http.MethodGet, "/api/v1/me", nil, initData)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var me response.Me
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	return me
}

func (ts *testServer) codeFor(t *testing.T, initData string) string {
	t.Helper()
	rr := ts.request(http.MethodGet, "/api/v1/me/code", nil, initData)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var code response.Code
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &code))
	return code.Code
}

func TestIssueCodeReturnsIssueTime(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	rr := ts.request(http.MethodGet, "/api/v1/me/code", nil, ts.initDataFor(1, "Alice"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var code response.Code
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &code))
	assert.True(t, strings.HasPrefix(code.Code, "pe:demo:"))
	require.NotNil(t, code.IssuedAtMs)
	assert.Equal(t, ts.app.MockClock.Now().UnixMilli(), *code.IssuedAtMs)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestUnauthorizedWithoutCredentials(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	rr := ts.request(http.MethodGet, "/api/v1/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")
}

func TestUnauthorizedWithTamperedInitData(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	initData := ts.initDataFor(1, "Alice")
	rr := ts.request(http.MethodGet, "/api/v1/me", nil, strings.Replace(initData, "Alice", "Mallory", 1))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthorizationHeaderCarriesInitData(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "tma "+ts.initDataFor(1, "Alice"))
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestMeProvisionsParticipantAndEvent(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	me := ts.me(t, ts.initDataFor(1, "Alice"))
	assert.NotEmpty(t, me.ParticipantID)
	assert.NotEmpty(t, me.PublicID)
	assert.Equal(t, "demo", me.Event.Slug)
	assert.Equal(t, "Alice", me.Profile.FirstName)

	// Same caller keeps the same identity
	again := ts.me(t, ts.initDataFor(1, "Alice"))
	assert.Equal(t, me.ParticipantID, again.ParticipantID)
	assert.Equal(t, me.PublicID, again.PublicID)
}

func TestDevFallback(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	// Disabled by default
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Dev-Telegram-Id", "99")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Enabled via config, header and query param both work
	ts = newTestServer(t, factory.TestAppConfig{DevModeEnabled: true})
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Dev-Telegram-Id", "99")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me?devTelegramId=99", nil))
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})
	initData := ts.initDataFor(1, "Alice")

	body := map[string]any{
		"first_name": "Alice",
		"last_name":  "Smith",
		"niche":      "fintech",
	}
	rr := ts.request(http.MethodPut, "/api/v1/me/profile", body, initData)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var profile response.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	require.NotNil(t, profile.Niche)
	assert.Equal(t, "fintech", *profile.Niche)

	me := ts.me(t, initData)
	require.NotNil(t, me.Profile.LastName)
	assert.Equal(t, "Smith", *me.Profile.LastName)
}

func TestUpdateProfileRejectsOversizedFields(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	body := map[string]any{
		"first_name": "Alice",
		"about":      strings.Repeat("x", 501),
	}
	rr := ts.request(http.MethodPut, "/api/v1/me/profile", body, ts.initDataFor(1, "Alice"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScanFlow(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})
	alice := ts.initDataFor(1, "Alice")
	bob := ts.initDataFor(2, "Bob")

	aliceCode := ts.codeFor(t, alice)
	assert.True(t, strings.HasPrefix(aliceCode, "pe:demo:"))

	// Bob scans Alice
	rr := ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": aliceCode}, bob)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var scan response.Scan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scan))
	assert.True(t, scan.Created)
	require.NotNil(t, scan.Other)
	require.NotNil(t, scan.Other.DisplayName)
	assert.Equal(t, "Alice", *scan.Other.DisplayName)

	// Scanning again is a no-op
	rr = ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": aliceCode}, bob)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var rescan response.Scan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rescan))
	assert.False(t, rescan.Created)
	assert.Equal(t, scan.EncounterID, rescan.EncounterID)

	// The reverse direction lands on the same encounter
	bobCode := ts.codeFor(t, bob)
	rr = ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": bobCode}, alice)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var reverse response.Scan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reverse))
	assert.False(t, reverse.Created)
	assert.Equal(t, scan.EncounterID, reverse.EncounterID)
}

func TestScanOwnCodeFails(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})
	alice := ts.initDataFor(1, "Alice")

	code := ts.codeFor(t, alice)
	rr := ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": code}, alice)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "SELF_SCAN")
}

func TestScanRejectsBadCodes(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})
	alice := ts.initDataFor(1, "Alice")

	// Malformed
	rr := ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": "pe:a:b:c"}, alice)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "MALFORMED_CODE")

	// Unsigned arity rejected by default
	rr = ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": "pe:demo:someone"}, alice)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNSIGNED_CODE_NOT_ALLOWED")

	// Tampered signature
	bobCode := ts.codeFor(t, ts.initDataFor(2, "Bob"))
	parts := strings.Split(bobCode, ":")
	parts[len(parts)-1] = "AAAA" + parts[len(parts)-1][4:]
	rr = ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": strings.Join(parts, ":")}, alice)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_CODE_SIGNATURE")

	// Missing body
	rr = ts.request(http.MethodPost, "/api/v1/scan", map[string]string{}, alice)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScanExpiredCode(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})
	bob := ts.initDataFor(2, "Bob")

	code := ts.codeFor(t, ts.initDataFor(1, "Alice"))

	ts.app.MockClock.Advance(8 * 24 * time.Hour)

	// Refresh Bob's credential after moving the clock
	bob = ts.initDataFor(2, "Bob")
	rr := ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": code}, bob)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "EXPIRED_CODE")
}

func TestEncounterListAndAnnotation(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})
	alice := ts.initDataFor(1, "Alice")
	bob := ts.initDataFor(2, "Bob")

	aliceCode := ts.codeFor(t, alice)
	rr := ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": aliceCode}, bob)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var scan response.Scan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scan))

	// Bob annotates
	body := map[string]any{"note": "talked about funding", "rating": 5}
	rr = ts.request(http.MethodPut, "/api/v1/encounters/"+scan.EncounterID+"/annotation", body, bob)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// Bob's list shows the annotation
	rr = ts.request(http.MethodGet, "/api/v1/encounters", nil, bob)
	require.Equal(t, http.StatusOK, rr.Code)
	var bobList response.EncounterList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bobList))
	require.Len(t, bobList.Encounters, 1)
	require.NotNil(t, bobList.Encounters[0].Note)
	assert.Equal(t, "talked about funding", *bobList.Encounters[0].Note)
	require.NotNil(t, bobList.Encounters[0].Rating)
	assert.Equal(t, 5, *bobList.Encounters[0].Rating)

	// Alice's side stays untouched
	rr = ts.request(http.MethodGet, "/api/v1/encounters", nil, alice)
	require.Equal(t, http.StatusOK, rr.Code)
	var aliceList response.EncounterList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &aliceList))
	require.Len(t, aliceList.Encounters, 1)
	assert.Nil(t, aliceList.Encounters[0].Note)
	assert.Nil(t, aliceList.Encounters[0].Rating)

	// Detail includes the counterpart profile
	rr = ts.request(http.MethodGet, "/api/v1/encounters/"+scan.EncounterID, nil, bob)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail response.EncounterDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	require.NotNil(t, detail.OtherProfile)
	assert.Equal(t, "Alice", detail.OtherProfile.FirstName)
}

func TestAnnotationValidation(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})
	alice := ts.initDataFor(1, "Alice")
	bob := ts.initDataFor(2, "Bob")

	rr := ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": ts.codeFor(t, alice)}, bob)
	require.Equal(t, http.StatusCreated, rr.Code)
	var scan response.Scan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scan))

	rr = ts.request(http.MethodPut, "/api/v1/encounters/"+scan.EncounterID+"/annotation", map[string]any{"rating": 6}, bob)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPut, "/api/v1/encounters/"+scan.EncounterID+"/annotation", map[string]any{"note": strings.Repeat("n", 1001)}, bob)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// A third party cannot annotate the encounter
	carol := ts.initDataFor(3, "Carol")
	rr = ts.request(http.MethodPut, "/api/v1/encounters/"+scan.EncounterID+"/annotation", map[string]any{"rating": 1}, carol)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestParticipantsAndStats(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})
	alice := ts.initDataFor(1, "Alice")
	bob := ts.initDataFor(2, "Bob")

	rr := ts.request(http.MethodPost, "/api/v1/scan", map[string]string{"code": ts.codeFor(t, alice)}, bob)
	require.Equal(t, http.StatusCreated, rr.Code)
	var scan response.Scan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scan))

	body := map[string]any{"rating": 4}
	rr = ts.request(http.MethodPut, "/api/v1/encounters/"+scan.EncounterID+"/annotation", body, bob)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/participants", nil, bob)
	require.Equal(t, http.StatusOK, rr.Code)
	var participants response.ParticipantList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &participants))
	assert.Len(t, participants.Participants, 2)

	rr = ts.request(http.MethodGet, "/api/v1/participants?q=alice", nil, bob)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &participants))
	assert.Len(t, participants.Participants, 1)

	rr = ts.request(http.MethodGet, "/api/v1/stats", nil, bob)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats response.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Encounters)
	assert.Equal(t, 1, stats.Rated)
	require.NotNil(t, stats.AvgRating)
	assert.InDelta(t, 4.0, *stats.AvgRating, 0.001)
}

func TestUnknownEventSlugRejected(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Telegram-Init-Data", ts.initDataFor(1, "Alice"))
	req.Header.Set("X-Event-Slug", "somewhere-else")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "EVENT_NOT_FOUND")
}

func TestPublicEventCreateGate(t *testing.T) {
	ts := newTestServer(t, factory.TestAppConfig{AllowPublicCreate: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Telegram-Init-Data", ts.initDataFor(1, "Alice"))
	req.Header.Set("X-Event-Slug", "pop-up-mixer")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var me response.Me
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "pop-up-mixer", me.Event.Slug)
}
