package generation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/compedu/quiz-service/internal/models"
)

// staticQuestion mirrors generatedQuestion for the canned pool.
var staticPool = []generatedQuestion{
	{
		Prompt:       "What should you do when you receive an email asking for your company password?",
		Choices:      []string{"Reply with the password", "Report it to the security team", "Forward it to a colleague", "Ignore it and delete the thread"},
		CorrectIndex: 1,
		Explanation:  "Suspicious requests for credentials must be reported so the security team can act on the campaign.",
	},
	{
		Prompt:       "Which of the following counts as personal data under most privacy regulations?",
		Choices:      []string{"An anonymized aggregate report", "A customer's email address", "The office floor plan", "A public press release"},
		CorrectIndex: 1,
		Explanation:  "Any information that identifies a natural person, such as an email address, is personal data.",
	},
	{
		Prompt:       "A vendor offers you concert tickets during an ongoing contract negotiation. What is the correct response?",
		Choices:      []string{"Accept them privately", "Accept and disclose afterwards", "Decline and record the offer per the gift policy", "Give them to a teammate"},
		CorrectIndex: 2,
		Explanation:  "Gifts during active negotiations create a conflict of interest and must be declined and recorded.",
	},
	{
		Prompt:       "Where may confidential customer files be stored?",
		Choices:      []string{"Personal cloud drives", "Approved company storage only", "A private USB stick", "Any password-protected laptop"},
		CorrectIndex: 1,
		Explanation:  "Confidential data belongs only in storage approved and monitored by the company.",
	},
	{
		Prompt:       "What is the first step after noticing you sent sensitive data to the wrong recipient?",
		Choices:      []string{"Delete the sent mail and move on", "Wait to see if anyone notices", "Report the incident immediately", "Ask the recipient to keep it quiet"},
		CorrectIndex: 2,
		Explanation:  "Incidents must be reported immediately so containment and notification duties can be assessed.",
	},
}

// StaticGenerator serves deterministic questions from a canned pool.
// Used in development and tests where no LLM endpoint is available.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (g *StaticGenerator) Generate(_ context.Context, edu *models.EducationConfig) ([]models.QuestionSnapshot, error) {
	count := edu.QuestionCount
	if count <= 0 {
		return nil, fmt.Errorf("education %d has no question count configured", edu.ID)
	}

	snapshot := make([]models.QuestionSnapshot, 0, count)
	for i := 0; i < count; i++ {
		q := staticPool[i%len(staticPool)]
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
