package expert

import (
	"fmt"
	"strings"

	"github.com/rushteam/churnkit/core"
)

const probabilitySystemPrompt = "You are a churn scoring assistant.\n" +
	"Return STRICT JSON ONLY: {\"churn_proba\": <float between 0 and 1>}."

const explainSystemPrompt = "You are a churn explainer. Return STRICT JSON ONLY with schema:\n" +
	`{"base_value": number, "contributions":[{"feature": string, "value": number, "contribution": number}], "top_k": number, "reason": string}` + "\n" +
	"Contributions: signed effect (approx).\n" +
	"top_k: %d"

func probabilityMessages(featuresJSON string, retrieved []string, extraContext string) []core.Message {
	return []core.Message{
		{Role: core.RoleSystem, Content: probabilitySystemPrompt},
		{Role: core.RoleUser, Content: userPrompt(featuresJSON, retrieved, extraContext)},
	}
}

func explainMessages(featuresJSON string, topK int, retrieved []string, extraContext string) []core.Message {
	return []core.Message{
		{Role: core.RoleSystem, Content: fmt.Sprintf(explainSystemPrompt, topK)},
		{Role: core.RoleUser, Content: userPrompt(featuresJSON, retrieved, extraContext)},
	}
}

func userPrompt(featuresJSON string, retrieved []string, extraContext string) string {
	var b strings.Builder
	b.WriteString("Features: ")
	b.WriteString(featuresJSON)
	if len(retrieved) > 0 {
		b.WriteString("\n\nSimilar churned customers:")
		for _, doc := range retrieved {
			b.WriteString("\n- ")
			b.WriteString(doc)
		}
	}
	if extraContext != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(extraContext)
	}
	return b.String()
}
