package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/convscore/internal/domain"
	domconv "github.com/kailas-cloud/convscore/internal/domain/conversation"
)

// fakeEmbedder returns a one-hot style vector derived from the text length.
type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
}

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model          string `json:"model"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format, got %q", req.ResponseFormat.Type)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "0: I love hiking") {
			t.Errorf("transcript not sent: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "upstream down"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 12, "total_tokens": 42},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConversation(t *testing.T) domconv.Conversation {
	t.Helper()
	c, err := domconv.New("g1", nil, []domconv.Line{
		{Speaker: 0, Text: "I love hiking"},
		{Speaker: 1, Text: "Me too, mostly in the Alps"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestTagger(url string, emb domain.Embedder, maxTags int) *Tagger {
	return NewTagger(&Config{APIKey: "k", BaseURL: url, Model: "chat-model", Provider: "test"}, emb, maxTags)
}

func TestTagger_Annotate(t *testing.T) {
	srv := chatServer(t, `{"tags":["Hiking","alps","  hiking ","travel"]}`, http.StatusOK)
	emb := &fakeEmbedder{}

	ctx, usage := domain.NewContextWithUsage(context.Background())
	ann, err := newTestTagger(srv.URL, emb, 20).Annotate(ctx, testConversation(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ann.Success {
		t.Fatal("expected success")
	}
	if got := ann.Tags.Sorted(); len(got) != 3 || got[0] != "alps" || got[1] != "hiking" || got[2] != "travel" {
		t.Errorf("unexpected tags %v", got)
	}
	if len(ann.Vectors) != 3 || ann.Vectors["hiking"][0] != 6 {
		t.Errorf("unexpected vectors %v", ann.Vectors)
	}
	if emb.calls != 3 {
		t.Errorf("expected 3 embed calls, got %d", emb.calls)
	}
	if usage.TotalTokens != 42 {
		t.Errorf("expected 42 tokens, got %d", usage.TotalTokens)
	}
}

func TestTagger_MaxTags(t *testing.T) {
	srv := chatServer(t, `{"tags":["a","b","c","d"]}`, http.StatusOK)

	ann, err := newTestTagger(srv.URL, &fakeEmbedder{}, 2).Annotate(context.Background(), testConversation(t))
	if err != nil {
		t.Fatal(err)
	}
	if ann.Tags.Len() != 2 || !ann.Tags.Has("a") || !ann.Tags.Has("b") {
		t.Errorf("expected first two tags, got %v", ann.Tags.Sorted())
	}
}

func TestTagger_NoTags(t *testing.T) {
	srv := chatServer(t, `{"tags":[]}`, http.StatusOK)
	emb := &fakeEmbedder{}

	ann, err := newTestTagger(srv.URL, emb, 0).Annotate(context.Background(), testConversation(t))
	if err != nil {
		t.Fatal(err)
	}
	if ann.Tags.Len() != 0 || ann.Vectors == nil || emb.calls != 0 {
		t.Errorf("expected empty annotation without embedding, got %+v (calls %d)", ann, emb.calls)
	}
}

func TestTagger_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  int
		embErr  error
	}{
		{"provider error", "", http.StatusInternalServerError, nil},
		{"malformed json", "tags: hiking", http.StatusOK, nil},
		{"embedder error", `{"tags":["hiking"]}`, http.StatusOK, domain.ErrEmbeddingProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.content, tt.status)
			tg := newTestTagger(srv.URL, &fakeEmbedder{err: tt.embErr}, 5)
			_, err := tg.Annotate(context.Background(), testConversation(t))
			if !errors.Is(err, domain.ErrAnnotationFailed) {
				t.Fatalf("expected ErrAnnotationFailed, got %v", err)
			}
		})
	}
}

func TestCapTags(t *testing.T) {
	got := capTags([]string{"", "A", "a", " b ", "c"}, 2)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected %v", got)
	}
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"héllo", 2, "h..."}, // é spans bytes 1-2
		{"日本語", 4, "日..."},
		{"日本語", 2, "..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}
