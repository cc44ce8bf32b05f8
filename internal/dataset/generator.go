package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/provider"
)

const generateTimeout = 15 * time.Second

// BatchGenerator produces candidate training examples. GenerateBatch never
// fails: on any hard error it degrades to a deterministic template fallback,
// so only the number of returned examples varies.
type BatchGenerator interface {
	GenerateBatch(ctx context.Context, title, description string, count int, dsType models.DatasetType) []models.TrainingExample
}

// Generator builds examples with an external chat-completion model.
type Generator struct {
	chat  provider.ChatCompleter
	model string
}

func NewGenerator(chat provider.ChatCompleter, model string) *Generator {
	return &Generator{chat: chat, model: model}
}

func (g *Generator) GenerateBatch(ctx context.Context, title, description string, count int, dsType models.DatasetType) []models.TrainingExample {
	if count <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	raw, err := g.chat.ChatComplete(ctx, g.model, []provider.Message{
		{Role: "system", Content: systemPrompt(dsType)},
		{Role: "user", Content: userPrompt(title, description, count)},
	})
	if err != nil {
		slog.Warn("batch generation call failed, using template fallback", "title", title, "error", err)
		return TemplateExamples(title, description, count)
	}

	examples, err := parseExamples(raw)
	if err != nil {
		slog.Warn("batch generation response unparsable, using template fallback", "title", title, "error", err)
		return TemplateExamples(title, description, count)
	}

	valid := examples[:0]
	for _, ex := range examples {
		if cleaned, ok := sanitizeExample(ex); ok {
			valid = append(valid, cleaned)
		}
	}
	if len(valid) > count {
		valid = valid[:count]
	}
	return valid
}

func systemPrompt(dsType models.DatasetType) string {
	tone := map[models.DatasetType]string{
		models.DatasetTypeChat:    "Write natural text-chat conversations: casual register, short turns, occasional follow-up questions.",
		models.DatasetTypeCalling: "Write phone-call transcripts: spoken register, greetings and confirmations, the assistant guides the caller step by step.",
		models.DatasetTypeVoice:   "Write voice-assistant exchanges: concise spoken answers, no formatting, no lists, sentences that read well aloud.",
		models.DatasetTypeAll:     "Mix conversation styles: text chat, phone calls and voice-assistant exchanges in roughly equal measure.",
	}[dsType]
	if tone == "" {
		tone = "Write natural conversations between a user and an assistant."
	}

	return "You generate training data for fine-tuning conversational AI models. " + tone +
		` Respond with ONLY a JSON object of the form
{"examples": [{"messages": [{"role": "user", "content": "..."}, {"role": "assistant", "content": "..."}]}]}
Every example must contain at least one user and one assistant message with non-empty content.`
}

func userPrompt(title, description string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d distinct training examples for an assistant named %q.", count, title)
	if description != "" {
		fmt.Fprintf(&b, "\nAssistant description: %s", description)
	}
	b.WriteString("\nVary the topics and phrasing; no two examples should be near-duplicates.")
	return b.String()
}

// parseExamples accepts the response shapes the provider is known to emit:
// a single object with an `examples` array, a bare JSON array, or (as a
// repair) concatenated JSON objects split on object boundaries.
func parseExamples(raw string) ([]models.TrainingExample, error) {
	raw = stripFences(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}

	var wrapper struct {
		Examples []models.TrainingExample `json:"examples"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && len(wrapper.Examples) > 0 {
		return wrapper.Examples, nil
	}

	var arr []models.TrainingExample
	if err := json.Unmarshal([]byte(raw), &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	chunks := splitConcatenatedObjects(raw)
	var out []models.TrainingExample
	for _, chunk := range chunks {
		var w struct {
			Examples []models.TrainingExample `json:"examples"`
		}
		if err := json.Unmarshal([]byte(chunk), &w); err == nil && len(w.Examples) > 0 {
			out = append(out, w.Examples...)
			continue
		}
		var ex models.TrainingExample
		if err := json.Unmarshal([]byte(chunk), &ex); err == nil && len(ex.Messages) > 0 {
			out = append(out, ex)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no examples in response")
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// splitConcatenatedObjects scans for balanced top-level JSON objects in a
// string like `{...}{...}` or `{...}\n{...}`.
func splitConcatenatedObjects(s string) []string {
	var chunks []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					chunks = append(chunks, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return chunks
}

// sanitizeExample drops malformed messages and reports whether what is left
// is usable (at least two messages, one user and one assistant).
func sanitizeExample(ex models.TrainingExample) (models.TrainingExample, bool) {
	var kept []models.TrainingMessage
	for _, m := range ex.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		content := strings.TrimSpace(m.Content)
		switch role {
		case models.RoleSystem, models.RoleUser, models.RoleAssistant:
			if content != "" {
				kept = append(kept, models.TrainingMessage{Role: role, Content: content})
			}
		}
	}
	cleaned := models.TrainingExample{Messages: kept}
	return cleaned, cleaned.Valid()
}

// TemplateExamples is the deterministic fallback used when the external
// call fails hard. Output is seeded from the title and description so
// repeated fallbacks within a job still produce distinct examples.
func TemplateExamples(title, description string, count int) []models.TrainingExample {
	subject := title
	if subject == "" {
		subject = "this assistant"
	}
	detail := description
	if detail == "" {
		detail = fmt.Sprintf("%s helps users with their questions", subject)
	}

	questions := []string{
		"What can you help me with?",
		"Tell me about %s.",
		"How do I get started with %s?",
		"What makes %s different?",
		"Can you explain what %s does?",
		"I have a question about %s.",
	}
	answers := []string{
		"I'm %s. %s. What would you like to know?",
		"Happy to help! %s. That's what %s is here for.",
		"Sure. %s. Ask me anything and I'll walk you through it.",
	}

	out := make([]models.TrainingExample, 0, count)
	for i := 0; i < count; i++ {
		q := questions[i%len(questions)]
		if strings.Contains(q, "%s") {
			q = fmt.Sprintf(q, subject)
		}
		// Vary the question so fingerprints differ across indexes.
		if i >= len(questions) {
			q = fmt.Sprintf("%s (part %d)", q, i/len(questions)+1)
		}
		a := answers[i%len(answers)]
		if strings.Count(a, "%s") == 2 {
			if i%len(answers) == 0 {
				a = fmt.Sprintf(a, subject, detail)
			} else {
				a = fmt.Sprintf(a, detail, subject)
			}
		} else {
			a = fmt.Sprintf(a, detail)
		}
		out = append(out, models.TrainingExample{Messages: []models.TrainingMessage{
			{Role: models.RoleUser, Content: q},
			{Role: models.RoleAssistant, Content: a},
		}})
	}
	return out
}
