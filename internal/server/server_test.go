package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/capture/capturetest"
	"github.com/audiolibrelab/rehearse/internal/clock"
	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/service"
	"github.com/audiolibrelab/rehearse/internal/session"
	"github.com/audiolibrelab/rehearse/internal/store"
)

const testConfig = `
active_config: default
definitions:
    questions:
        - id: 1
          question: Tell me about yourself
          category: General
          time_limit: 60
          tips: Keep it short
        - id: 2
          question: Why this role?
          time_limit: 30
configs:
    default:
        settings:
            interview_type: general
        questions:
            - ref: 1
            - ref: 2
    other:
        settings:
            interview_type: technical
`

type testEnv struct {
	server *Server
	svc    *service.InterviewService
	clk    *clock.Fake
	dev    *capturetest.Device
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	configFile := filepath.Join(t.TempDir(), "rehearse.yaml")
	if err := os.WriteFile(configFile, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		clk: clock.NewFake(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)),
		dev: capturetest.NewDevice(),
	}
	env.svc = service.NewWithDeps(cfg, configFile, nil, service.Deps{Device: env.dev, Clock: env.clk, Store: st})
	t.Cleanup(func() { env.svc.Close() })
	env.svc.Wait()

	env.server = New(env.svc, configFile, "0")
	env.server.devices = func() capture.Inventory {
		return capture.Inventory{
			Cameras:       []string{"/dev/video0"},
			Microphones:   []capture.AudioSource{{Name: "alsa_input.usb", Driver: "PipeWire", State: "RUNNING"}},
			MicrophoneErr: errors.New("pactl: not found"),
		}
	}
	env.router = env.server.Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestIndexInstallsGuard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "beforeunload") {
		t.Error("Expected the page to register a beforeunload handler")
	}
}

func TestStatusAndLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var st StatusResponse
	decode(t, env.do(t, http.MethodGet, "/status", nil), &st)
	if st.Status != "setup" || st.Message != "Ready to start" {
		t.Errorf("Expected setup / ready, got %s / %s", st.Status, st.Message)
	}
	if st.Remaining != "01:00" || st.ActiveProfile != "default" {
		t.Errorf("Expected 01:00 for default, got %s for %s", st.Remaining, st.ActiveProfile)
	}

	rec := env.do(t, http.MethodPost, "/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected start to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	env.clk.Advance(5 * time.Second)

	decode(t, env.do(t, http.MethodGet, "/status", nil), &st)
	if st.Status != "recording" || st.Elapsed != "00:05" || st.Remaining != "00:55" {
		t.Errorf("Unexpected recording status %s %s %s", st.Status, st.Elapsed, st.Remaining)
	}
	if !st.Session.Guard {
		t.Error("Expected the guard to be reported while recording")
	}

	env.do(t, http.MethodPost, "/stop", nil)
	env.svc.Wait()

	decode(t, env.do(t, http.MethodGet, "/status", nil), &st)
	if st.Status != "completed" || st.Session.Summary == nil {
		t.Fatalf("Expected a completed session with summary, got %s", st.Status)
	}

	var list SessionsResponse
	decode(t, env.do(t, http.MethodGet, "/api/sessions?sort=score", nil), &list)
	if list.TotalCount != 1 {
		t.Fatalf("Expected 1 stored session, got %d", list.TotalCount)
	}

	var got session.Summary
	rec = env.do(t, http.MethodGet, "/api/sessions/"+list.Sessions[0].ID, nil)
	decode(t, rec, &got)
	if got.ElapsedSeconds != 5 {
		t.Errorf("Expected 5 elapsed seconds, got %d", got.ElapsedSeconds)
	}
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/pause", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["success"] != false || body["error"] == "" {
		t.Errorf("Expected an error response, got %v", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/start", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestSessionNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestSessionsBadLimit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/sessions?limit=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestToggleTrack(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/device/toggle/audio", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["enabled"] != false {
		t.Errorf("Expected audio to be disabled, got %v", body["enabled"])
	}

	rec = env.do(t, http.MethodPost, "/device/toggle/screen", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown track, got %d", rec.Code)
	}
}

func TestLeave(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/start", nil)

	var body map[string]interface{}
	decode(t, env.do(t, http.MethodPost, "/leave", url.Values{}), &body)
	if body["allowed"] != false {
		t.Error("Expected an unconfirmed leave to be blocked while recording")
	}

	decode(t, env.do(t, http.MethodPost, "/leave", url.Values{"confirmed": {"true"}}), &body)
	if body["allowed"] != true {
		t.Error("Expected a confirmed leave to be allowed")
	}
}

func TestDeviceDeniedStatus(t *testing.T) {
	env := newTestEnv(t)
	env.dev.FailNext(capture.ErrDeviceBusy)

	if rec := env.do(t, http.MethodPost, "/device/retry", nil); rec.Code != http.StatusOK {
		t.Fatalf("Expected retry to be accepted, got %d", rec.Code)
	}
	env.svc.Wait()

	var st StatusResponse
	decode(t, env.do(t, http.MethodGet, "/status", nil), &st)
	if !strings.Contains(st.Message, "already in use") {
		t.Errorf("Expected the busy message, got %q", st.Message)
	}
	if rec := env.do(t, http.MethodPost, "/start", nil); rec.Code != http.StatusConflict {
		t.Errorf("Expected start to be refused without a device, got %d", rec.Code)
	}
}

func TestSources(t *testing.T) {
	env := newTestEnv(t)

	var resp SourcesResponse
	decode(t, env.do(t, http.MethodGet, "/sources", nil), &resp)
	if len(resp.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(resp.Sources))
	}
	if resp.Sources[0].Type != "camera" || resp.Sources[1].Status != "RUNNING" {
		t.Errorf("Unexpected sources %+v", resp.Sources)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("Expected the microphone error to be reported, got %v", resp.Errors)
	}
}

func TestProfiles(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Profiles []string `json:"profiles"`
		Active   string   `json:"active"`
	}
	decode(t, env.do(t, http.MethodGet, "/config/profiles", nil), &body)
	if len(body.Profiles) != 2 || body.Active != "default" {
		t.Errorf("Unexpected profiles %v / %s", body.Profiles, body.Active)
	}

	rec := env.do(t, http.MethodPost, "/config/select", url.Values{"profile": {"other"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected profile switch to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	env.svc.Wait()

	if got := env.svc.GetConfig().Settings.InterviewType; got != "technical" {
		t.Errorf("Expected the technical profile, got %s", got)
	}
	var st StatusResponse
	decode(t, env.do(t, http.MethodGet, "/status", nil), &st)
	if st.ActiveProfile != "other" {
		t.Errorf("Expected the active profile to be persisted, got %s", st.ActiveProfile)
	}
}
