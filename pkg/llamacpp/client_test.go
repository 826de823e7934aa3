package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLocateSubject(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"primary\":{\"label\":\"face\",\"confidence\":0.8,\"box\":{\"x\":0.1,\"y\":0.1,\"w\":0.3,\"h\":0.3},\"cx\":0.25,\"cy\":0.25}}"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClientWithHTTP(srv.URL+"/", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.LocateSubject(context.Background(), "llava", "find the face", "aGVsbG8=")
	if err != nil {
		t.Fatalf("LocateSubject failed: %v", err)
	}
	if res.Primary.Label != "face" || res.Primary.Cx != 0.25 {
		t.Errorf("unexpected result: %+v", res.Primary)
	}

	if got.Model != "llava" || len(got.Messages) != 1 {
		t.Fatalf("unexpected request: %+v", got)
	}
	parts, ok := got.Messages[0].Content.([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("Expected text and image parts, got %#v", got.Messages[0].Content)
	}
	img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(img, "data:image/jpeg;base64,") {
		t.Errorf("unexpected image url %q", img)
	}
}

func TestLocateSubjectServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewClientWithHTTP(srv.URL, srv.Client())
	_, err := c.LocateSubject(context.Background(), "m", "p", "")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestLocateSubjectNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, _ := NewClientWithHTTP(srv.URL, srv.Client())
	if _, err := c.LocateSubject(context.Background(), "m", "p", ""); err == nil {
		t.Error("Expected error for empty choices")
	}
}

func TestMessageText(t *testing.T) {
	if got := messageText(Message{Content: "hi"}); got != "hi" {
		t.Errorf("Expected hi, got %q", got)
	}
	parts := []any{map[string]any{"type": "text", "text": "there"}}
	if got := messageText(Message{Content: parts}); got != "there" {
		t.Errorf("Expected there, got %q", got)
	}
	if got := messageText(Message{}); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient("ftp://host"); err == nil {
		t.Error("Expected error for non-http URL")
	}
}
