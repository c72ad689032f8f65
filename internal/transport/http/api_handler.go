package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/logger"
	"mcq-quiz-service/internal/questionset"
)

const maxUploadBytes = 2 << 20

// APIHandler serves the stateless REST endpoints around question sets.
type APIHandler struct {
	service *app.QuizService
	log     zerolog.Logger
}

func NewAPIHandler(service *app.QuizService, log zerolog.Logger) *APIHandler {
	return &APIHandler{service: service, log: logger.Component(log, "api")}
}

type promptResponse struct {
	Prompt string `json:"prompt"`
}

type questionsResponse struct {
	Count     int               `json:"count"`
	Questions []domain.Question `json:"questions"`
}

// Prompt renders the generation instruction for {topic, count}.
func (h *APIHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	var req questionset.PromptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeError(w, domain.Validationf("invalid request body: %v", err))
		return
	}
	prompt, err := questionset.BuildPrompt(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{Prompt: prompt})
}

// Validate accepts either exchange-format JSON or free text containing it.
func (h *APIHandler) Validate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, domain.Validationf("read body: %v", err))
		return
	}
	questions, err := parseLoose(body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsResponse{Count: len(questions), Questions: questions})
}

// Generate asks the configured generator for a validated set.
func (h *APIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req questionset.PromptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeError(w, domain.Validationf("invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	questions, err := h.service.GenerateQuestions(r.Context(), req)
	if err != nil {
		h.log.Warn().Err(err).Str("topic", req.Topic).Msg("generation failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsResponse{Count: len(questions), Questions: questions})
}

func (h *APIHandler) GetQuestionSet(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.QuestionSet(r.Context(), chi.URLParam(r, "setID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// parseLoose parses body as a question array, falling back to extracting one from text.
func parseLoose(body []byte) ([]domain.Question, error) {
	questions, err := questionset.Parse(body)
	if err == nil {
		return questions, nil
	}
	raw, extractErr := questionset.Extract(string(body))
	if extractErr != nil {
		return nil, err
	}
	return questionset.Parse(raw)
}
