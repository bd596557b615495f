package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIClient_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("Expected test-key authorization")
		}

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		// Temperature must be present even when zero
		if _, ok := body["temperature"]; !ok {
			t.Error("Expected temperature field in request body")
		}
		if temp := body["temperature"].(float64); temp != 0 {
			t.Errorf("Expected temperature 0, got %v", temp)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "chatcmpl-123",
			"choices": [
				{
					"message": {
						"content": "Hello, world!"
					}
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = server.URL

	ctx := context.Background()
	resp, err := client.Chat(ctx, []Message{{Role: RoleUser, Content: "Hello"}}, Options{Temperature: 0})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp != "Hello, world!" {
		t.Errorf("Expected 'Hello, world!', got %q", resp)
	}
}

func TestOpenAIClient_Chat_RetryOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = server.URL
	client.retryBase = time.Millisecond

	resp, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (2 retries), got %d", attempts)
	}
	if resp != "ok" {
		t.Errorf("Unexpected response: %s", resp)
	}
}

func TestOpenAIClient_Chat_JSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		rf, ok := body["response_format"].(map[string]interface{})
		if !ok || rf["type"] != "json_object" {
			t.Errorf("Expected response_format json_object, got %v", body["response_format"])
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices": [{"message": {"content": "{\"ok\": true}"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = server.URL

	resp, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "give json"}}, Options{JSON: true})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp != `{"ok": true}` {
		t.Errorf("Unexpected response: %s", resp)
	}
}

func TestOpenAIClient_Chat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key")
	client.baseURL = server.URL

	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if err == nil {
		t.Fatal("Expected error for API error payload")
	}
}

func TestOpenAIClient_Chat_NoKey(t *testing.T) {
	client := NewOpenAIClient("")
	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if err == nil {
		t.Fatal("Expected error when API key missing")
	}
}

func TestOpenAIClient_SetModel(t *testing.T) {
	client := NewOpenAIClient("test-key")
	if client.Model() == "" {
		t.Error("Expected default model to be set")
	}
	client.SetModel("gpt-4o-mini")
	if client.Model() != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %s", client.Model())
	}
}
