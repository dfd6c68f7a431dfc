package podcast

import (
	"strings"
	"text/template"

	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/utils"
)

// Dialogue styles.
const (
	StyleEducational = "educational"
	StyleCasual      = "casual"
)

var planTemplate = template.Must(template.New("plan").Parse(
	`Read the source material below and propose an ordered list of discussion topics
for a short podcast episode about it. Output one topic per line, nothing else.
Cover the material from the most fundamental idea to the most advanced.

Source material:
{{.Content}}
`))

var scriptTemplate = template.Must(template.New("script").Parse(
	`Write a dialogue between two speakers discussing the source material below.

Speakers:
- [{{.First.Tag}}] {{.First.Role}}: {{.First.Description}}
- [{{.Second.Tag}}] {{.Second.Role}}: {{.Second.Description}}

The dialogue must cover every one of these topics, in order:
{{range .Topics}}- {{.}}
{{end}}
Formatting rules, follow them exactly:
- Every utterance starts on its own line with the speaker tag, e.g. "[{{.First.Tag}}]: ..."
- [{{.First.Tag}}] speaks first, then speakers strictly alternate.
- Use only the tags [{{.First.Tag}}] and [{{.Second.Tag}}].
- At least one full exchange per topic. Do not stop early; keep going until
  every topic has been discussed.

Source material:
{{.Content}}
`))

type promptData struct {
	Content string
	Topics  []string
	First   models.Persona
	Second  models.Persona
}

func buildPlanPrompt(content models.ExtractedContent) (string, error) {
	var b strings.Builder
	err := planTemplate.Execute(&b, promptData{Content: content.Text})
	if err != nil {
		return "", utils.E(utils.CodeInternal, "podcast.buildPlanPrompt", "rendering template", err)
	}
	return b.String(), nil
}

func buildScriptPrompt(content models.ExtractedContent, plan models.TopicPlan, personas models.PersonaPair) (string, error) {
	var b strings.Builder
	err := scriptTemplate.Execute(&b, promptData{
		Content: content.Text,
		Topics:  plan,
		First:   personas.First,
		Second:  personas.Second,
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, "podcast.buildScriptPrompt", "rendering template", err)
	}
	return b.String(), nil
}

// systemPrompt picks the agent persona for the requested style.
func systemPrompt(style string) string {
	if style == StyleCasual {
		return "You are a hobby podcast agent. You talk about the material lightly and informally, like a chat over coffee."
	}
	return "You are an educational podcast agent. You produce clear, lecture-style explanations."
}
