// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citechat/internal/chat"
	"github.com/jeranaias/citechat/internal/citation"
	"github.com/jeranaias/citechat/internal/client"
	"github.com/jeranaias/citechat/internal/model"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func quickTranscript() Transcript {
	t := DefaultTranscript()
	t.Delay = 0
	return t
}

func newTestServer(t *testing.T, tr Transcript) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New("", tr).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postChat(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out["error"]
}

// ============================================================================
// TRANSCRIPT TESTS
// ============================================================================

func TestTranscript_Lines(t *testing.T) {
	tr := Transcript{
		Echo: true,
		Frames: []Frame{
			{Citations: []model.Citation{{ID: 1, Source: "a.pdf", Page: 2}}},
			{Chunk: "See [1]."},
			{Raw: "{broken"},
		},
	}

	lines, err := tr.Lines("why?")
	require.NoError(t, err)
	assert.Equal(t, []string{
		`data: {"chunk":"You asked: \"why?\". "}`,
		`data: {"citations":[{"id":1,"source":"a.pdf","page":2,"content":""}]}`,
		`data: {"chunk":"See [1]."}`,
		`data: {broken`,
		`data: [DONE]`,
	}, lines)
}

func TestTranscript_OmitDone(t *testing.T) {
	lines, err := Transcript{OmitDone: true, Frames: []Frame{{Chunk: "x"}}}.Lines("q")
	require.NoError(t, err)
	assert.Equal(t, []string{`data: {"chunk":"x"}`}, lines)
}

func TestDecodeTranscript(t *testing.T) {
	tr, err := DecodeTranscript(`
echo = false
delay = "25ms"

[[frame]]
citations = [{ id = 3, source = "guide.pdf", page = 9, content = "text" }]

[[frame]]
chunk = "Answer [3]."
`)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, tr.Delay)
	require.Len(t, tr.Frames, 2)
	assert.Equal(t, "guide.pdf", tr.Frames[0].Citations[0].Source)
	assert.Equal(t, "Answer [3].", tr.Frames[1].Chunk)
}

func TestDecodeTranscript_RejectsUnknownKeys(t *testing.T) {
	_, err := DecodeTranscript("speed = 3\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speed")
}

// ============================================================================
// HANDLER TESTS
// ============================================================================

func TestHandleChat_MissingMessage(t *testing.T) {
	ts := newTestServer(t, quickTranscript())

	for _, body := range []string{`{}`, `{"message":""}`, `{"message":"   "}`} {
		resp := postChat(t, ts.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "No message provided", errorBody(t, resp))
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, quickTranscript())

	resp := postChat(t, ts.URL, `{"message":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request format", errorBody(t, resp))
}

func TestHandleChat_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, quickTranscript())

	big := `{"message":"` + strings.Repeat("a", MaxRequestBodySize) + `"}`
	resp := postChat(t, ts.URL, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHandleChat_StreamsTranscript(t *testing.T) {
	ts := newTestServer(t, Transcript{Frames: []Frame{{Chunk: "Hello"}}})

	resp := postChat(t, ts.URL, `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"chunk\":\"Hello\"}\n\ndata: [DONE]\n\n", string(data))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, quickTranscript())

	for _, path := range []string{"/health", "/"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)

		var h HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
		resp.Body.Close()
		assert.Equal(t, "ok", h.Status, path)
		assert.Equal(t, Version, h.Version)
	}
}

// ============================================================================
// MIDDLEWARE TESTS
// ============================================================================

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, quickTranscript())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig_AllowOrigin(t *testing.T) {
	c := &CORSConfig{AllowedOrigins: []string{"http://app.local", "*.example.com"}}

	assert.Equal(t, "http://app.local", c.allowOrigin("http://app.local"))
	assert.Equal(t, "https://docs.example.com", c.allowOrigin("https://docs.example.com"))
	assert.Empty(t, c.allowOrigin("http://evil.test"))
	assert.Empty(t, c.allowOrigin(""))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddleware_KeepsFlusher(t *testing.T) {
	var flushed bool
	h := LoggingMiddleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		f.Flush()
		flushed = true
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, flushed)
}

// ============================================================================
// END-TO-END TESTS
// ============================================================================

func TestEndToEnd_SessionOverReplay(t *testing.T) {
	ts := newTestServer(t, quickTranscript())

	c := client.New(&client.ClientConfig{BaseURL: ts.URL})
	s := chat.NewSession(c)

	require.True(t, s.Send(context.Background(), "When are expenses due?"))

	reply, ok := s.Conversation().Last()
	require.True(t, ok)
	assert.Equal(t, model.StateComplete, reply.State)
	assert.True(t, strings.HasPrefix(reply.Text, `You asked: "When are expenses due?". `))
	require.Len(t, reply.Citations, 2)

	sum := citation.Summarize(citation.Resolve(reply.Text, reply.Citations))
	assert.Equal(t, []int{1, 2}, sum.Cited)
	assert.True(t, sum.HasFooter)
	assert.Zero(t, sum.Unresolved)
}

func TestEndToEnd_MalformedFrameSkipped(t *testing.T) {
	ts := newTestServer(t, Transcript{Frames: []Frame{
		{Chunk: "a"},
		{Raw: "{nope"},
		{Chunk: "b"},
	}})

	s := chat.NewSession(client.New(&client.ClientConfig{BaseURL: ts.URL}))
	require.True(t, s.Send(context.Background(), "q"))

	reply, _ := s.Conversation().Last()
	assert.Equal(t, "ab", reply.Text)
	assert.Equal(t, model.StateComplete, reply.State)
}

func TestEndToEnd_ConnectionCloseWithoutDone(t *testing.T) {
	ts := newTestServer(t, Transcript{OmitDone: true, Frames: []Frame{{Chunk: "partial answer"}}})

	s := chat.NewSession(client.New(&client.ClientConfig{BaseURL: ts.URL}))
	require.True(t, s.Send(context.Background(), "q"))

	reply, _ := s.Conversation().Last()
	assert.Equal(t, "partial answer", reply.Text)
	assert.Equal(t, model.StateComplete, reply.State)
}

func TestServer_StartAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New("", quickTranscript())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ln) }()

	c := client.New(&client.ClientConfig{BaseURL: "http://" + ln.Addr().String()})
	require.Eventually(t, func() bool {
		return c.Health(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-errc)
}
