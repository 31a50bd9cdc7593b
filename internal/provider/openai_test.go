package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestChatSendsRequestAndDecodesResponse(t *testing.T) {
	var gotAuth string
	var gotReq ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": gotReq.Model,
			"choices": []map[string]interface{}{{
				"message":       map[string]string{"role": "assistant", "content": "hello there"},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{Endpoint: srv.URL, APIKey: "sk-test", Model: "gpt-4"}, zap.NewNop())

	resp, err := c.Chat(context.Background(), &ChatRequest{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4" {
		t.Errorf("model = %q, want configured default", gotReq.Model)
	}
	if gotReq.Temperature != 0.7 || gotReq.MaxTokens != 500 {
		t.Errorf("request passthrough: %+v", gotReq)
	}
	if resp.Content != "hello there" || resp.FinishReason != "stop" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{Endpoint: srv.URL}, zap.NewNop())
	if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "x", "choices": []interface{}{}})
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{Endpoint: srv.URL}, zap.NewNop())
	if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
