package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeCompletionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected system+user messages, got %d", len(req.Messages))
		}
		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: reply}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestSummarize(t *testing.T) {
	srv := fakeCompletionServer(t, "Focus on Acme today.")
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	text, err := client.Summarize(context.Background(), "queue: Acme")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if text != "Focus on Acme today." {
		t.Errorf("unexpected digest text: %q", text)
	}
}

func TestScoreFitParsesFencedJSON(t *testing.T) {
	reply := "```json\n{\"fit_score\": 8, \"score_rationale\": \"strong overlap\", " +
		"\"top_strengths\": [\"SQL\"], \"gaps_or_risks\": [], \"ats_keywords\": [\"sql\", \"tableau\"]}\n```"
	srv := fakeCompletionServer(t, reply)
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.ScoreFit(context.Background(), "resume text", "jd text")
	if err != nil {
		t.Fatalf("ScoreFit: %v", err)
	}
	if result.Score != 8 {
		t.Errorf("expected score 8, got %d", result.Score)
	}
	if len(result.Keywords) != 2 {
		t.Errorf("expected 2 keywords, got %v", result.Keywords)
	}
}

func TestScoreFitRejectsOutOfRange(t *testing.T) {
	srv := fakeCompletionServer(t, `{"fit_score": 14, "score_rationale": "x"}`)
	defer srv.Close()

	client, _ := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := client.ScoreFit(context.Background(), "r", "jd"); err == nil {
		t.Fatal("expected error for score out of range")
	}
}

func TestDraftOutreach(t *testing.T) {
	srv := fakeCompletionServer(t, `{"linkedin_note": "hi", "subject_line": "Quick question", "inmail_or_email": "Hello..."}`)
	defer srv.Close()

	client, _ := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	draft, err := client.DraftOutreach(context.Background(), OutreachContext{
		ContactName: "Sam Doe",
		Company:     "Acme",
	})
	if err != nil {
		t.Fatalf("DraftOutreach: %v", err)
	}
	if draft.SubjectLine != "Quick question" {
		t.Errorf("unexpected subject: %q", draft.SubjectLine)
	}
}

func TestAPIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, _ := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := client.Summarize(context.Background(), "x"); err == nil {
		t.Fatal("expected error for HTTP 429")
	}
}
