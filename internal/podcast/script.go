package podcast

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/providers/llm"
	"github.com/doccast/doccast/internal/utils"
)

// DefaultMinTurnsPerTopic is the heuristic floor below which generation is
// treated as truncated. One turn per plan topic is deliberately loose; a
// healthy dialogue has a full exchange per topic.
const DefaultMinTurnsPerTopic = 1

// ScriptGenerator drives the generation provider and parses its role-tagged
// output into a validated dialogue script.
type ScriptGenerator struct {
	llm              llm.Provider
	minTurnsPerTopic int
	log              *logrus.Entry
}

func NewScriptGenerator(p llm.Provider, minTurnsPerTopic int, log *logrus.Entry) *ScriptGenerator {
	if minTurnsPerTopic <= 0 {
		minTurnsPerTopic = DefaultMinTurnsPerTopic
	}
	return &ScriptGenerator{llm: p, minTurnsPerTopic: minTurnsPerTopic, log: log}
}

// GeneratePlan derives an ordered topic plan from the extracted content, for
// callers that did not bring their own.
func (g *ScriptGenerator) GeneratePlan(ctx context.Context, content models.ExtractedContent) (models.TopicPlan, error) {
	const op = "ScriptGenerator.GeneratePlan"

	prompt, err := buildPlanPrompt(content)
	if err != nil {
		return nil, err
	}

	raw, err := g.llm.Complete(ctx, "", prompt)
	if err != nil {
		return nil, err
	}

	var plan models.TopicPlan
	for _, line := range strings.Split(raw, "\n") {
		topic := strings.TrimSpace(line)
		topic = strings.TrimLeft(topic, "-*0123456789.) ")
		if topic != "" {
			plan = append(plan, topic)
		}
	}
	if len(plan) == 0 {
		return nil, utils.E(utils.CodeScriptFormat, op, "plan output contained no topics", nil)
	}

	g.log.WithField("topics", len(plan)).Info("topic plan generated")
	return plan, nil
}

// Generate produces a validated dialogue script covering every plan topic.
func (g *ScriptGenerator) Generate(ctx context.Context, content models.ExtractedContent, plan models.TopicPlan, personas models.PersonaPair, style string) (*models.DialogueScript, error) {
	const op = "ScriptGenerator.Generate"

	prompt, err := buildScriptPrompt(content, plan, personas)
	if err != nil {
		return nil, err
	}

	raw, err := g.llm.Complete(ctx, systemPrompt(style), prompt)
	if err != nil {
		return nil, err
	}

	script, err := parseScript(raw, personas)
	if err != nil {
		return nil, err
	}

	floor := g.minTurnsPerTopic * len(plan)
	if len(script.Turns) < floor {
		return nil, utils.E(utils.CodeScriptTooShort, op,
			fmt.Sprintf("script has %d turns, need at least %d for %d topics",
				len(script.Turns), floor, len(plan)), nil)
	}

	g.log.WithFields(logrus.Fields{"turns": len(script.Turns), "chars": len(raw)}).
		Info("dialogue script generated")
	return script, nil
}

// anyTag matches a role tag at the start of a line, known or not.
var anyTag = regexp.MustCompile(`(?m)^\[([A-Za-z0-9_]+)\]:`)

// parseScript splits role-tagged generation output into turns and enforces
// the dialogue invariants: known tags only, strict alternation, the first
// persona opens, no empty turns. Each turn's text is the span between its tag
// and the next tag match (or end of output).
func parseScript(raw string, personas models.PersonaPair) (*models.DialogueScript, error) {
	const op = "podcast.parseScript"

	tags := anyTag.FindAllStringSubmatchIndex(raw, -1)
	if len(tags) == 0 {
		return nil, utils.E(utils.CodeScriptFormat, op, "no role-tagged turns found", nil)
	}

	script := &models.DialogueScript{Turns: make([]models.Turn, 0, len(tags))}
	prevTag := ""
	for i, m := range tags {
		tag := raw[m[2]:m[3]]
		persona, ok := personas.ByTag(tag)
		if !ok {
			return nil, utils.E(utils.CodeScriptFormat, op, "unknown role tag ["+tag+"]", nil)
		}

		end := len(raw)
		if i+1 < len(tags) {
			end = tags[i+1][0]
		}
		text := strings.TrimSpace(strings.ReplaceAll(raw[m[1]:end], "\n", " "))

		if text == "" {
			return nil, utils.E(utils.CodeScriptFormat, op, fmt.Sprintf("turn %d is empty", i+1), nil)
		}
		if i == 0 && tag != personas.First.Tag {
			return nil, utils.E(utils.CodeScriptFormat, op,
				"dialogue must open with ["+personas.First.Tag+"]", nil)
		}
		if tag == prevTag {
			return nil, utils.E(utils.CodeScriptFormat, op,
				fmt.Sprintf("turns %d and %d have the same speaker", i, i+1), nil)
		}
		prevTag = tag

		script.Turns = append(script.Turns, models.Turn{Speaker: persona.Role, Text: text})
	}
	return script, nil
}
