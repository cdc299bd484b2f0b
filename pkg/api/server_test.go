package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/james-see/midifade/pkg/batch"
	"github.com/james-see/midifade/pkg/presets"
)

const introScene = `{"name":"intro","channels":{"1":127,"4":80},"fade_in_duration":1,"fade_out_duration":0.5,"steps":4}`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	s := NewServer(Options{
		Store:     presets.NewStore(filepath.Join(dir, "esitykset.json")),
		Runner:    &batch.Driver{},
		OutputDir: out,
	})
	return s, out
}

func do(t *testing.T, s *Server, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, s, method, path, "application/json", []byte(body))
}

func upload(t *testing.T, s *Server, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return do(t, s, http.MethodPost, path, mw.FormDataContentType(), buf.Bytes())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(t, s, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "healthy") {
			t.Errorf("GET %s body = %s", path, w.Body.String())
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodOptions, "/api/v1/generate", "", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestGenerateScenes(t *testing.T) {
	s, out := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/generate", `{"scenes":[`+introScene+`]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /generate = %d: %s", w.Code, w.Body.String())
	}

	var result batch.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Success || len(result.Results) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Results[0].FadeInFile != "intro_fade_in.mid" || result.Results[0].ChannelsCount != 2 {
		t.Errorf("scene result = %+v", result.Results[0])
	}

	for _, name := range []string{"intro_fade_in.mid", "intro_fade_out.mid"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestGenerateRelativeOutputDirectory(t *testing.T) {
	s, out := newTestServer(t)

	body := `{"scenes":[` + introScene + `],"output_directory":"show1"}`
	w := doJSON(t, s, http.MethodPost, "/api/v1/generate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /generate = %d: %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(out, "show1", "intro_fade_in.mid")); err != nil {
		t.Errorf("relative output directory not under configured dir: %v", err)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{"scenes":`, http.StatusBadRequest},
		{"nothing to do", `{}`, http.StatusBadRequest},
		{"invalid scene", `{"scenes":[{"name":"x","channels":{"1":100},"fade_in_duration":1,"fade_out_duration":1,"steps":0}]}`, http.StatusBadRequest},
		{"unknown preset", `{"preset":"nope"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			w := doJSON(t, s, http.MethodPost, "/api/v1/generate", tt.body)
			if w.Code != tt.status {
				t.Errorf("POST /generate = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"success":false`) {
				t.Errorf("body = %s, want success false", w.Body.String())
			}
		})
	}
}

func TestGenerateFailureNamesScene(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"scenes":[` + introScene + `,{"name":"bad","channels":{"1":200},"fade_in_duration":1,"fade_out_duration":1}]}`
	w := doJSON(t, s, http.MethodPost, "/api/v1/generate", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("POST /generate = %d, want 400", w.Code)
	}

	var resp struct {
		Scene   string              `json:"scene"`
		Results []batch.SceneResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Scene != "bad" {
		t.Errorf("scene = %q, want bad", resp.Scene)
	}
	if len(resp.Results) != 1 || resp.Results[0].Scene != "intro" {
		t.Errorf("partial results = %+v", resp.Results)
	}
}

func TestGeneratePreset(t *testing.T) {
	s, out := newTestServer(t)

	preset := `{"name":"show","steps":2,"scenes":[` + introScene + `]}`
	if w := doJSON(t, s, http.MethodPost, "/api/v1/presets", preset); w.Code != http.StatusOK {
		t.Fatalf("POST /presets = %d: %s", w.Code, w.Body.String())
	}

	w := doJSON(t, s, http.MethodPost, "/api/v1/generate", `{"preset":"show"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /generate = %d: %s", w.Code, w.Body.String())
	}

	var result batch.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Results[0].Steps != 2 {
		t.Errorf("steps = %d, want preset override 2", result.Results[0].Steps)
	}
	if _, err := os.Stat(filepath.Join(out, "intro_fade_out.mid")); err != nil {
		t.Error(err)
	}
}

func TestRender(t *testing.T) {
	s, out := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/render/in", introScene)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /render/in = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/midi" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "intro_fade_in.mid") {
		t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("MThd")) {
		t.Error("body is not a MIDI file")
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("render touched the output directory")
	}

	if w := doJSON(t, s, http.MethodPost, "/api/v1/render/sideways", introScene); w.Code != http.StatusBadRequest {
		t.Errorf("bad direction = %d, want 400", w.Code)
	}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/render/out", `{"name":"x","channels":{"99":1},"fade_in_duration":1,"fade_out_duration":1}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad channel = %d, want 400", w.Code)
	}
}

func TestDownload(t *testing.T) {
	s, _ := newTestServer(t)

	if w := doJSON(t, s, http.MethodPost, "/api/v1/generate", `{"scenes":[`+introScene+`]}`); w.Code != http.StatusOK {
		t.Fatalf("generate = %d", w.Code)
	}

	w := do(t, s, http.MethodGet, "/download/intro_fade_out.mid", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /download = %d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("MThd")) {
		t.Error("download is not a MIDI file")
	}

	if w := do(t, s, http.MethodGet, "/download/missing.mid", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}
}

func TestPresetCRUD(t *testing.T) {
	s, _ := newTestServer(t)

	preset := `{"name":"show","scenes":[` + introScene + `]}`
	w := doJSON(t, s, http.MethodPost, "/api/v1/presets", preset)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"replaced":false`) {
		t.Fatalf("first save = %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/presets", preset)
	if !strings.Contains(w.Body.String(), `"replaced":true`) {
		t.Errorf("second save = %s, want replaced", w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/api/v1/presets", "", nil)
	var list []presets.Preset
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "show" {
		t.Errorf("list = %+v", list)
	}

	if w := do(t, s, http.MethodGet, "/api/v1/presets/show", "", nil); w.Code != http.StatusOK {
		t.Errorf("GET preset = %d", w.Code)
	}
	if w := do(t, s, http.MethodDelete, "/api/v1/presets/show", "", nil); w.Code != http.StatusOK {
		t.Errorf("DELETE = %d", w.Code)
	}
	if w := do(t, s, http.MethodDelete, "/api/v1/presets/show", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/v1/presets/show", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET deleted = %d, want 404", w.Code)
	}

	if w := doJSON(t, s, http.MethodPost, "/api/v1/presets", `{"name":"","scenes":[]}`); w.Code != http.StatusBadRequest {
		t.Errorf("save without name = %d, want 400", w.Code)
	}
}

func TestImportAndExport(t *testing.T) {
	s, _ := newTestServer(t)

	doc := "presets:\n  - name: a\n    scenes:\n      - name: x\n        channels: {1: 100}\n        fade_in_duration: 1\n        fade_out_duration: 1\n  - name: b\n    scenes: []\n"

	w := upload(t, s, "/api/v1/presets/import?preview=true", "show.yaml", doc)
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d: %s", w.Code, w.Body.String())
	}
	list, _ := s.store.List()
	if len(list) != 0 {
		t.Error("preview stored presets")
	}

	w = upload(t, s, "/api/v1/presets/import", "show.yaml", doc)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d: %s", w.Code, w.Body.String())
	}
	var summary presets.ImportSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Imported != 2 || summary.FirstImported != "a" {
		t.Errorf("summary = %+v", summary)
	}

	w = do(t, s, http.MethodGet, "/api/v1/presets/export?format=yaml&name=a", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "version: 1.0.0") || !strings.Contains(body, "name: a") || strings.Contains(body, "name: b") {
		t.Errorf("export body:\n%s", body)
	}

	if w := upload(t, s, "/api/v1/presets/import", "junk.json", `{"foo":1}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format = %d, want 400", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/api/v1/presets/import", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("no file = %d, want 400", w.Code)
	}
}
