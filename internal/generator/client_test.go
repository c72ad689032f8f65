package generator_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/generator"
	"mcq-quiz-service/internal/questionset"
)

const reply = "Here you go:\n```json\n" + `[{"question":"2+2?","options":{"A":"3","B":"4","C":"5","D":"6"},"answer":"B"}]` + "\n```"

func newClient(url string) *generator.Client {
	return generator.NewClient(generator.Config{URL: url, APIKey: "secret", Model: "test-model", Timeout: time.Second}, zerolog.Nop())
}

var req = questionset.PromptRequest{Topic: "arithmetic", Count: 1}

func TestGenerateTextShape(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{"text": reply})
	}))
	defer srv.Close()

	qs, err := newClient(srv.URL).Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, domain.OptionB, qs[0].Correct)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "test-model", got["model"])
	assert.Contains(t, got["prompt"], "Generate 1 MCQ questions on arithmetic")
}

func TestGenerateChatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	defer srv.Close()

	qs, err := newClient(srv.URL).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, qs, 1)
}

func TestGenerateRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(reply))
	}))
	defer srv.Close()

	qs, err := newClient(srv.URL).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, qs, 1)
}

func TestGenerateFailuresAreGenerationErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"no array": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"text": "I cannot help with that."})
		},
		"invalid questions": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"text": `[{"question":"q","answer":"Z"}]`})
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := newClient(srv.URL).Generate(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrGeneration)
			var genErr *domain.GenerationError
			assert.True(t, errors.As(err, &genErr))
		})
	}
}

func TestGenerateValidationCauseIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": `[{"question":"q","answer":"Z"}]`})
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Generate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url).Generate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestGenerateWithoutEndpoint(t *testing.T) {
	_, err := newClient("").Generate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
