package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/utils"
)

// QuestionGenerator produces the question snapshot frozen into a new
// attempt. Generation runs before the attempt row is inserted, a
// failing generator aborts the start without leaving a broken attempt.
type QuestionGenerator interface {
	Generate(ctx context.Context, edu *models.EducationConfig) ([]models.QuestionSnapshot, error)
}

const systemPrompt = `You are a corporate compliance training assistant.
You create multiple-choice quiz questions for mandatory employee trainings.
Questions must be answerable from general knowledge of the named topic,
unambiguous, and have exactly one correct choice.
Always respond with valid JSON only.`

const userPromptTemplate = `Create %d multiple-choice questions for the compliance training "%s".
%s
Each question must have 4 choices and exactly one correct answer.
Respond with a JSON object of this exact shape:
{
  "questions": [
    {
      "prompt": "question text",
      "choices": ["choice A", "choice B", "choice C", "choice D"],
      "correct_index": 0,
      "explanation": "short explanation of the correct answer"
    }
  ]
}`

type generatedQuestion struct {
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

type generatedSet struct {
	Questions []generatedQuestion `json:"questions"`
}

// OpenAIGenerator generates questions through an OpenAI-compatible API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger utils.Logger
}

func NewOpenAIGenerator(baseURL, apiKey, model string, logger utils.Logger) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, edu *models.EducationConfig) ([]models.QuestionSnapshot, error) {
	count := edu.QuestionCount
	if count <= 0 {
		return nil, fmt.Errorf("education %d has no question count configured", edu.ID)
	}

	topicDetail := ""
	if edu.Description != "" {
		topicDetail = "Topic details: " + edu.Description
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptTemplate, count, edu.Title, topicDetail)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("question generation request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("question generation returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	var set generatedSet
	if err := json.Unmarshal([]byte(content), &set); err != nil {
		g.logger.Error("Failed to parse generated questions", "error", err, "education_id", edu.ID)
		return nil, fmt.Errorf("failed to parse generated questions: %w", err)
	}

	snapshot, err := toSnapshot(set.Questions, count)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Questions generated",
		"education_id", edu.ID,
		"requested", count,
		"generated", len(snapshot))

	return snapshot, nil
}

// toSnapshot validates the generated set and freezes it with stable ids
// and ordering.
func toSnapshot(questions []generatedQuestion, want int) ([]models.QuestionSnapshot, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("generator produced no questions")
	}
	if len(questions) > want {
		questions = questions[:want]
	}

	snapshot := make([]models.QuestionSnapshot, 0, len(questions))
	for i, q := range questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("generated question %d has an empty prompt", i+1)
		}
		if len(q.Choices) < 2 {
			return nil, fmt.Errorf("generated question %d has too few choices", i+1)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
			return nil, fmt.Errorf("generated question %d has correct index out of range", i+1)
		}

		snapshot = append(snapshot, models.QuestionSnapshot{
			QuestionID:   uuid.NewString(),
			Order:        i + 1,
			Prompt:       q.Prompt,
			Choices:      q.Choices,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
		})
	}

	return snapshot, nil
}
