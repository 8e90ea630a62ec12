package inferctl

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inferd/pkg/types"
)

// runCmd executes the command tree against srvURL and captures its output.
func runCmd(t *testing.T, srvURL string, args ...string) (string, error) {
	t.Helper()
	cfg := &Config{Addr: srvURL, Timeout: 5}
	root := buildRootCmd(cfg)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestStatusCommandRendersTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.StatusResponse{
			Models: []types.ModelStatus{
				{ModelID: "demo/llama", TaskType: types.TaskText, State: types.StateLoaded, VRAMMB: 2048, LastUsed: time.Now().Add(-30 * time.Second).Unix()},
				{ModelID: "org/on-disk", State: types.StateOnDisk},
			},
			VRAMUsagePercent: 25,
			LoadsTotal:       4,
			EvictionsTotal:   1,
		})
	}))
	defer srv.Close()

	out, err := runCmd(t, srv.URL, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"MODEL", "demo/llama", "loaded", "2048 MB", "just now", "org/on-disk", "on_disk", "vram: 25.0%", "loads: 4", "evictions: 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommandListsActiveDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.StatusResponse{
			ActiveDownloads: []string{"big/model"},
		})
	}))
	defer srv.Close()

	out, err := runCmd(t, srv.URL, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "downloading: big/model") {
		t.Fatalf("output missing downloads line:\n%s", out)
	}
}

func TestExecCommandPrintsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/execute/text" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req types.ExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Params["max_length"] != float64(64) {
			t.Errorf("params = %v, want max_length 64", req.Params)
		}
		json.NewEncoder(w).Encode(types.ExecuteResponse{
			ModelID:  "demo/llama",
			TaskType: types.TaskText,
			Result:   map[string]any{"generated_text": "hi there"},
		})
	}))
	defer srv.Close()

	out, err := runCmd(t, srv.URL, "exec", "text", "demo/llama", "say hi", "--param", "max_length=64")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !strings.Contains(out, `"generated_text": "hi there"`) {
		t.Fatalf("output missing result:\n%s", out)
	}
}

func TestExecRejectsUnknownTask(t *testing.T) {
	_, err := runCmd(t, "", "exec", "translate", "m", "x")
	if err == nil || !strings.Contains(err.Error(), "unknown task type") {
		t.Fatalf("want unknown task error, got %v", err)
	}
}

func TestExecRejectsBadParam(t *testing.T) {
	_, err := runCmd(t, "", "exec", "text", "m", "x", "--param", "temperature")
	if err == nil || !strings.Contains(err.Error(), "invalid param") {
		t.Fatalf("want invalid param error, got %v", err)
	}
}

func TestFetchCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.FetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ModelID != "demo/llama" {
			t.Errorf("ModelID = %q", req.ModelID)
		}
		json.NewEncoder(w).Encode(types.FetchResponse{
			ModelID: "demo/llama",
			Path:    "/models/demo--llama",
			Message: "model cached",
		})
	}))
	defer srv.Close()

	out, err := runCmd(t, srv.URL, "fetch", "demo/llama")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out, "demo/llama cached at /models/demo--llama") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPurgeCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.PurgeResponse{Message: "purged 1 loaded models"})
	}))
	defer srv.Close()

	out, err := runCmd(t, srv.URL, "purge")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !strings.Contains(out, "purged 1 loaded models") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestHealthCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.HealthResponse{Status: "ok", Device: "cpu", VRAMUsagePercent: 10})
	}))
	defer srv.Close()

	out, err := runCmd(t, srv.URL, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "ok  device=cpu  vram=10.0%") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestServerErrorSurfacesToUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(types.ErrorResponse{Error: "model artifact ghost: fetch failed", Code: 404})
	}))
	defer srv.Close()

	_, err := runCmd(t, srv.URL, "fetch", "ghost")
	if err == nil || !strings.Contains(err.Error(), "ghost: fetch failed") {
		t.Fatalf("want server error surfaced, got %v", err)
	}
}

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"max_length=64", "temperature=0.7", "stream=true", "voice=alloy"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if p["max_length"] != int64(64) {
		t.Fatalf("max_length = %#v, want int64 64", p["max_length"])
	}
	if p["temperature"] != 0.7 {
		t.Fatalf("temperature = %#v, want 0.7", p["temperature"])
	}
	if p["stream"] != true {
		t.Fatalf("stream = %#v, want true", p["stream"])
	}
	if p["voice"] != "alloy" {
		t.Fatalf("voice = %#v, want alloy", p["voice"])
	}

	if got, err := parseParams(nil); err != nil || got != nil {
		t.Fatalf("parseParams(nil) = %v, %v", got, err)
	}
	if _, err := parseParams([]string{"=x"}); err == nil {
		t.Fatal("want error for empty key")
	}
}

func TestMainWithArgsExitCodes(t *testing.T) {
	if code := MainWithArgs([]string{"--help"}); code != 0 {
		t.Fatalf("help exit = %d, want 0", code)
	}
	if code := MainWithArgs([]string{"no-such-command"}); code != 1 {
		t.Fatalf("unknown command exit = %d, want 1", code)
	}
}
