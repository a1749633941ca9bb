package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/veridocs/docchat/internal/domain"
	"google.golang.org/api/option"
)

const defaultAnalysisModelName = "gemini-1.5-flash-latest"

// missingKeyAnswer is the fixed advisory returned when no API key is
// configured. This is a degraded mode, not an error path: the request
// succeeds and the user is told why there is no real analysis.
const missingKeyAnswer = "I'm unable to analyze this document because the AI API key is not configured. " +
	"Please contact the administrator to set up the API key."

// DocumentAnalyzer answers a question about a document's text, returning a
// validated analysis with quoted references.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, documentText, query string) (*domain.Analysis, error)
}

// LLMService implements DocumentAnalyzer over the Gemini API. A nil client
// (no API key) short-circuits to the advisory answer before any network
// call.
type LLMService struct {
	client     *genai.Client
	modelName  string
	charBudget int
	timeout    time.Duration
}

func NewLLMService(apiKey string, charBudget int, timeout time.Duration) (*LLMService, error) {
	svc := &LLMService{
		modelName:  defaultAnalysisModelName,
		charBudget: charBudget,
		timeout:    timeout,
	}
	if apiKey == "" {
		return svc, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	svc.client = client
	return svc, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (s *LLMService) AnalyzeDocument(ctx context.Context, documentText, query string) (*domain.Analysis, error) {
	if s.client == nil {
		log.Println("No API key configured, returning advisory analysis response")
		return &domain.Analysis{Answer: missingKeyAnswer, References: []domain.Reference{}}, nil
	}

	prompt := BuildAnalysisPrompt(documentText, query, s.charBudget)

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelInvocation, err)
	}
	return ParseAnalysis(raw)
}

// complete sends the prompt and concatenates the text parts of the first
// candidate. The model is asked for a JSON completion and the call is
// bounded by the configured timeout so a stalled model cannot hold the
// requesting connection forever.
func (s *LLMService) complete(ctx context.Context, prompt string) (string, error) {
	model := s.client.GenerativeModel(s.modelName)
	model.GenerationConfig.ResponseMIMEType = "application/json"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("received empty completion from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("gemini completion contained no text parts")
	}
	return text.String(), nil
}
