package main

// Notes:
// - Command tests set process environment with t.Setenv and change the working
//   directory, so they do not run in parallel.
// - fakeBotAPI answers every Bot API method the service calls with a canned
//   success result, unless told to fail, and records the calls by method.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

const testToken = "123:abc"

type botCall struct {
	method string
	form   map[string]string
}

type fakeBotAPI struct {
	mu    sync.Mutex
	calls []botCall
	fail  map[string]string
	srv   *httptest.Server
}

func newFakeBotAPI(t *testing.T) *fakeBotAPI {
	t.Helper()
	f := &fakeBotAPI{fail: map[string]string{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBotAPI) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/bot"+testToken+"/") {
		w.Write([]byte("not an image"))
		return
	}
	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+testToken+"/")
	if !ok {
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}

	call := botCall{method: method, form: map[string]string{}}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				call.form[k] = v[0]
			}
		}
	} else if err := r.ParseForm(); err == nil {
		for k, v := range r.PostForm {
			call.form[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	desc, failing := f.fail[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": desc})
		return
	}

	var result string
	switch method {
	case "getMe":
		result = `{"id":1,"is_bot":true,"first_name":"PDF","username":"pdf_bot"}`
	case "sendMessage", "sendDocument", "editMessageText":
		result = `{"message_id":77,"date":0,"chat":{"id":42,"type":"private"}}`
	case "getFile":
		result = `{"file_id":"f","file_path":"photos/f.jpg"}`
	case "getWebhookInfo":
		result = `{"url":"https://bot.example.com/webhook","has_custom_certificate":false,"pending_update_count":3,"last_error_date":1700000000,"last_error_message":"Connection refused","max_connections":40}`
	default:
		result = `true`
	}
	fmt.Fprintf(w, `{"ok":true,"result":%s}`, result)
}

func (f *fakeBotAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeBotAPI) last(method string) (botCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i], true
		}
	}
	return botCall{}, false
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeOCR struct {
	text     string
	version  string
	checkErr error
}

func (f fakeOCR) Recognize(context.Context, []byte, string) (string, error) {
	return f.text, nil
}

func (f fakeOCR) Check(string) (string, error) {
	return f.version, f.checkErr
}

type testEnv struct {
	deps   *Dependencies
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	addr   chan string
}

// newTestEnv returns dependencies writing to buffers, an OCR fake and a
// loopback listener whose address is published on addr.
func newTestEnv(t *testing.T, api *fakeBotAPI, ocr fakeOCR) *testEnv {
	t.Helper()
	env := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		addr:   make(chan string, 1),
	}
	env.deps = &Dependencies{
		Stdout: env.stdout,
		Stderr: env.stderr,
		NewOCR: func() ocrEngine { return ocr },
		Listen: func(string, string) (net.Listener, error) {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err == nil {
				env.addr <- ln.Addr().String()
			}
			return ln, err
		},
	}
	if api != nil {
		env.deps.HTTPClient = api.srv.Client()
	}
	return env
}

// isolateEnv clears every variable the CLI reads and moves to an empty
// working directory so no .env or config file leaks in.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"BOT_TOKEN", "WEBHOOK_URL", "PORT"} {
		t.Setenv(name, "")
	}
	for name := range knownEnvVars {
		t.Setenv(name, "")
	}
	t.Chdir(t.TempDir())
}

// unsetEnv removes names for the rest of the test; t.Setenv restores them.
func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		t.Setenv(n, "")
		os.Unsetenv(n)
	}
}

// writeTestConfig writes a config pointing the bot client at api.
func writeTestConfig(t *testing.T, api *fakeBotAPI, extra string) string {
	t.Helper()
	var b strings.Builder
	if api != nil {
		fmt.Fprintf(&b, "bot:\n  apiEndpoint: %q\n  fileEndpoint: %q\n", api.srv.URL+"/bot%s/%s", api.srv.URL+"/file/bot%s/%s")
	}
	b.WriteString(extra)
	path := filepath.Join(t.TempDir(), "tgpdf.yaml")
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

// unicodeFontPath writes a TTF with Cyrillic coverage to a temp file.
func unicodeFontPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

// syncBuffer is a bytes.Buffer safe for a logger and a test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
