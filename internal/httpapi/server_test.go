package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memvra/docbot/internal/adapter"
	"github.com/memvra/docbot/internal/agent"
	"github.com/memvra/docbot/internal/conversation"
	"github.com/memvra/docbot/internal/db"
	"github.com/memvra/docbot/internal/files"
	"github.com/memvra/docbot/internal/memory"
	"github.com/memvra/docbot/internal/observability"
	"github.com/memvra/docbot/internal/rules"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)%5 + 1), 1, 1}
	}
	return out, nil
}

type stubLLM struct{ reply string }

func (s stubLLM) Complete(context.Context, adapter.CompletionRequest) (<-chan adapter.StreamChunk, error) {
	ch := make(chan adapter.StreamChunk, 1)
	ch <- adapter.StreamChunk{Text: s.reply}
	close(ch)
	return ch, nil
}

type testEnv struct {
	ts      *httptest.Server
	gateway *memory.Gateway
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	database, err := db.Open(filepath.Join(root, "docbot.db"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	gw := memory.NewGateway(database, stubEmbedder{}, nil)
	dir := filepath.Join(root, "downloads")
	sessions := conversation.NewRegistry(time.Hour, 0)
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", time.Now().UnixNano()), sessions.Count)

	a := agent.New(agent.Deps{
		LLM:      stubLLM{reply: "Paris."},
		Memory:   gw,
		Files:    files.New(dir),
		Rules:    rules.NewStore(filepath.Join(root, "rules.txt"), 0),
		Sessions: sessions,
		Recorder: metrics,
	}, agent.Options{Timeout: 5 * time.Second}, nil)

	ts := httptest.NewServer(New(a, metrics, nil).Router())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, gateway: gw, dir: dir}
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	res, err := http.Post(e.ts.URL+"/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	created := decode[createSessionResponse](t, res)
	require.NotEmpty(t, created.SessionID)
	return created.SessionID
}

func (e *testEnv) send(t *testing.T, sessionID, text string) (*http.Response, messageResponse) {
	t.Helper()
	body, _ := json.Marshal(messageRequest{Text: text})
	res, err := http.Post(e.ts.URL+"/v1/sessions/"+sessionID+"/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	status := res.StatusCode
	out := decode[messageResponse](t, res)
	res.StatusCode = status
	return res, out
}

func (e *testEnv) upload(t *testing.T, name, content, mime string) (int, uploadResponse) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = part.Write([]byte(content))
	if mime != "" {
		require.NoError(t, mw.WriteField("mime_type", mime))
	}
	require.NoError(t, mw.Close())

	res, err := http.Post(e.ts.URL+"/v1/files", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	status := res.StatusCode
	return status, decode[uploadResponse](t, res)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	res, err := http.Get(env.ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	body := decode[map[string]any](t, res)
	assert.Equal(t, "ok", body["status"])
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	res, msg := env.send(t, id, "what is the capital of France?")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Paris.", msg.Reply)
	assert.Equal(t, "none", msg.Intent)

	req, _ := http.NewRequest(http.MethodDelete, env.ts.URL+"/v1/sessions/"+id, nil)
	endRes, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	endRes.Body.Close()
	assert.Equal(t, http.StatusOK, endRes.StatusCode)

	res, _ = env.send(t, id, "hello again")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestMessage_Validation(t *testing.T) {
	env := newTestEnv(t)

	res, _ := env.send(t, "no-such-session", "hi")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	id := env.createSession(t)
	res, _ = env.send(t, id, "   ")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestUploadListReadDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	status, up := env.upload(t, "notes.txt", "hello world", "text/plain")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Received notes.txt. Extracting text and embedding to memory...", up.Ack)
	assert.Equal(t, "Successfully processed 'notes.txt'. Indexed 1 chunks into long-term memory.", up.Message)
	assert.Equal(t, 1, up.Stored)

	res, err := http.Get(env.ts.URL + "/v1/files")
	require.NoError(t, err)
	list := decode[map[string]any](t, res)
	assert.Equal(t, []any{"notes.txt"}, list["files"])

	res, err = http.Get(env.ts.URL + "/v1/files/notes.txt")
	require.NoError(t, err)
	data, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, "hello world", string(data))

	_, msg := env.send(t, id, "share notes.txt")
	assert.Equal(t, "reshare", msg.Intent)
	assert.Equal(t, "notes.txt", msg.Attachment)
	assert.Equal(t, "/v1/files/notes.txt", msg.AttachmentURL)

	req, _ := http.NewRequest(http.MethodDelete, env.ts.URL+"/v1/files/notes.txt", nil)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	del := decode[deleteResponse](t, res)
	assert.True(t, del.FileRemoved)
	assert.Equal(t, 1, del.RecordsRemoved)

	recs, _ := env.gateway.RecordsBySource(context.Background(), "notes.txt")
	assert.Empty(t, recs)

	req, _ = http.NewRequest(http.MethodDelete, env.ts.URL+"/v1/files/notes.txt", nil)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestUpload_ReplacesStaleRecords(t *testing.T) {
	env := newTestEnv(t)

	status, up := env.upload(t, "notes.txt", "old secret content", "text/plain")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, up.Stored)
	assert.Zero(t, up.Replaced)

	status, up = env.upload(t, "notes.txt", "brand new text", "text/plain")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, up.Stored)
	assert.Equal(t, 1, up.Replaced)

	res, err := http.Get(env.ts.URL + "/v1/files/notes.txt/records")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decode[recordsResponse](t, res)
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "brand new text", got.Records[0].Content)
}

func TestRecords_Missing(t *testing.T) {
	env := newTestEnv(t)
	res, err := http.Get(env.ts.URL + "/v1/files/ghost.txt/records")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestUpload_Unsupported(t *testing.T) {
	env := newTestEnv(t)
	status, up := env.upload(t, "archive.zip", "PK\x03\x04", "application/zip")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Unsupported file type: application/zip for archive.zip.", up.Message)
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("mime_type", "text/plain"))
	require.NoError(t, mw.Close())

	res, err := http.Post(env.ts.URL+"/v1/files", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDownload_Missing(t *testing.T) {
	env := newTestEnv(t)
	res, err := http.Get(env.ts.URL + "/v1/files/ghost.pdf")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestWipe(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.upload(t, "notes.txt", "hello world", "text/plain")
	env.send(t, id, "hi")

	res, err := http.Post(env.ts.URL+"/v1/wipe", "application/json", nil)
	require.NoError(t, err)
	wipe := decode[wipeResponse](t, res)
	assert.Equal(t, 2, wipe.Turns)
	assert.Equal(t, 1, wipe.Records)
	assert.Equal(t, 1, wipe.Files)

	_, msg := env.send(t, id, "how many files")
	assert.Equal(t, "I currently have 0 files.", msg.Reply)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t)

	res, err := http.Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Contains(t, string(body), "_http_requests_total")
}
