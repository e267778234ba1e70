package httpapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/borough-labs/concierge/internal/config"
	"github.com/borough-labs/concierge/internal/llm"
	"github.com/borough-labs/concierge/internal/pipeline"
	"github.com/borough-labs/concierge/internal/stt"
	"github.com/borough-labs/concierge/internal/tts"
	"github.com/gin-gonic/gin"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter(apiKey string, tr *stt.MockTranscriber, ge *llm.MockGenerator, sy *tts.MockSynthesizer) *gin.Engine {
	p := pipeline.New(config.OpenAIConfig{APIKey: apiKey}, tr, ge, sy, nil, nil, newLogger())
	return NewRouter(NewVoiceHandler(p), nil, func() bool { return true }, newLogger())
}

func postVoice(router *gin.Engine, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/v1/voice", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}

func TestNonPOSTMethodsRejected(t *testing.T) {
	tr := &stt.MockTranscriber{}
	router := newTestRouter("sk-test", tr, &llm.MockGenerator{}, &tts.MockSynthesizer{})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "/v1/voice", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", method, w.Code)
		}
		if body := decodeBody(t, w); body["error"] != "Method not allowed" {
			t.Fatalf("%s: unexpected body %v", method, body)
		}
	}
	if tr.Calls != 0 {
		t.Fatal("no upstream call expected for rejected methods")
	}
}

func TestMissingAudioReturns400(t *testing.T) {
	tr := &stt.MockTranscriber{}
	router := newTestRouter("sk-test", tr, &llm.MockGenerator{}, &tts.MockSynthesizer{})

	w := postVoice(router, map[string]string{"audio": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "No audio data provided" {
		t.Fatalf("unexpected body: %v", body)
	}
	if tr.Calls != 0 {
		t.Fatal("no upstream call expected without audio")
	}
}

func TestMissingCredentialReturns500(t *testing.T) {
	tr := &stt.MockTranscriber{}
	router := newTestRouter("", tr, &llm.MockGenerator{}, &tts.MockSynthesizer{})

	w := postVoice(router, map[string]string{"audio": base64.StdEncoding.EncodeToString([]byte("abc"))})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "OpenAI API key not configured" {
		t.Fatalf("unexpected body: %v", body)
	}
	if tr.Calls != 0 {
		t.Fatal("no upstream call expected without a credential")
	}
}

func TestTranscriptionFailureReturns500AndStopsPipeline(t *testing.T) {
	ge := &llm.MockGenerator{}
	sy := &tts.MockSynthesizer{}
	router := newTestRouter("sk-test", &stt.MockTranscriber{Err: errors.New("upstream status 500")}, ge, sy)

	w := postVoice(router, map[string]string{"audio": base64.StdEncoding.EncodeToString([]byte("abc"))})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if ge.Calls != 0 || sy.Calls != 0 {
		t.Fatal("generation and synthesis must not run after transcription failure")
	}
}

func TestSynthesisFailureReturnsNoPartialPayload(t *testing.T) {
	router := newTestRouter("sk-test",
		&stt.MockTranscriber{Text: "hi"},
		&llm.MockGenerator{Reply: "hello"},
		&tts.MockSynthesizer{Err: errors.New("upstream status 500")})

	w := postVoice(router, map[string]string{"audio": base64.StdEncoding.EncodeToString([]byte("abc"))})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if _, ok := body["transcript"]; ok {
		t.Fatal("failure payload must not contain a transcript")
	}
	if _, ok := body["aiResponse"]; ok {
		t.Fatal("failure payload must not contain an aiResponse")
	}
	if _, ok := body["error"]; !ok {
		t.Fatal("failure payload must contain an error")
	}
}

func TestEndToEndSuccess(t *testing.T) {
	transcript := "What's a good brunch spot in Williamsburg?"
	reply := "Try Diner on Berry Street — it's a Brooklyn classic with a great brunch menu!"
	router := newTestRouter("sk-test",
		&stt.MockTranscriber{Text: transcript},
		&llm.MockGenerator{Reply: reply},
		&tts.MockSynthesizer{Audio: []byte("ABC")})

	w := postVoice(router, map[string]string{
		"audio":    base64.StdEncoding.EncodeToString([]byte("fake-webm")),
		"mimeType": "audio/webm",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp VoiceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Transcript != transcript {
		t.Fatalf("unexpected transcript: %q", resp.Transcript)
	}
	if resp.AIResponse != reply {
		t.Fatalf("unexpected reply: %q", resp.AIResponse)
	}
	if resp.AudioResponse != "QUJD" {
		t.Fatalf("expected audioResponse QUJD, got %q", resp.AudioResponse)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter("sk-test", &stt.MockTranscriber{}, &llm.MockGenerator{}, &tts.MockSynthesizer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", w.Code)
	}
}
