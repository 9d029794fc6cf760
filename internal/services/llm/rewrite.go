package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const shortenSystemPrompt = `You are an expert at condensing narration text for text-to-speech synthesis.

Your task is to rewrite the TARGET text so it can be spoken in less time while preserving its meaning. You will be given a target length ratio and surrounding entries for context.

## Guidelines

1. Preserve the meaning and tone of the original text
2. Aim for roughly the requested fraction of the original character count
3. Prefer dropping filler words and redundancy over dropping information
4. Keep any [audio tags] in square brackets where they still fit naturally
5. ONLY rewrite the TARGET text, never the context
6. The rewrite must read as natural spoken language

## Output Format

Return a JSON object with this structure:
{
  "shortened_text": "The condensed TARGET text"
}`

const annotateSystemPrompt = `You are an expert at adding audio expression tags to text for text-to-speech synthesis.

Your task is to enhance the TARGET text by adding appropriate audio tags that make the speech more expressive and natural. You will be given context (previous and next entries) to help you understand the flow and emotional tone.

## Audio Tag Format

Tags are enclosed in square brackets and placed inline with the text. Choose tags that best fit the emotional context - you are not limited to specific tags.

### Example tags (not exhaustive):
- Emotional: [laughs], [chuckles], [sighs], [gasps], [excitedly], [sadly], [whispers], [shouts]
- Voice quality: [softly], [dramatically], [sarcastically], [nervously], [cheerfully], [thoughtfully]

## Guidelines

1. Add tags sparingly - don't overuse them
2. Place tags where they would naturally occur in speech
3. Match the emotional context of the content
4. Keep the original text intact, only add tags
5. For educational or informational content, use minimal tags
6. ONLY add tags to the TARGET text, not to the context
7. DO NOT use pause-related tags like [pause] or [long pause] - timing is controlled separately
8. DO NOT place tags at the end of the text - they must come before or within the speech they modify

## Output Format

Return a JSON object with this structure:
{
  "tagged_text": "The TARGET text with [audio tags] inserted appropriately"
}`

// Shorten asks the oracle to condense text to roughly targetRatio of its
// current character count. Surrounding entries keep the rewrite coherent
// with the rest of the narration.
func (c *Client) Shorten(ctx context.Context, text string, targetRatio float64, before, after []string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("llm shorten: text required")
	}
	if targetRatio <= 0 || targetRatio >= 1 {
		return "", fmt.Errorf("llm shorten: target ratio must be in (0, 1), got %v", targetRatio)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Target length: %.0f%% of the original character count\n\n", targetRatio*100)
	writeContextBlock(&sb, text, before, after, "rewrite this")

	content, err := c.CompleteJSON(ctx, shortenSystemPrompt, sb.String())
	if err != nil {
		return "", err
	}
	var parsed struct {
		ShortenedText string `json:"shortened_text"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return "", fmt.Errorf("llm shorten: parse payload: %w", err)
	}
	shortened := strings.TrimSpace(parsed.ShortenedText)
	if shortened == "" {
		return "", errors.New("llm shorten: oracle returned empty rewrite")
	}
	return shortened, nil
}

// Annotate asks the oracle to insert inline audio expression tags into text.
func (c *Client) Annotate(ctx context.Context, text string, before, after []string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("llm annotate: text required")
	}

	var sb strings.Builder
	writeContextBlock(&sb, text, before, after, "add tags to this")

	content, err := c.CompleteJSON(ctx, annotateSystemPrompt, sb.String())
	if err != nil {
		return "", err
	}
	var parsed struct {
		TaggedText string `json:"tagged_text"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return "", fmt.Errorf("llm annotate: parse payload: %w", err)
	}
	tagged := strings.TrimSpace(parsed.TaggedText)
	if tagged == "" {
		return text, nil
	}
	return tagged, nil
}

func writeContextBlock(sb *strings.Builder, target string, before, after []string, verb string) {
	if len(before) > 0 {
		sb.WriteString("## Previous entries (for context only):\n")
		for i, text := range before {
			fmt.Fprintf(sb, "[-%d] %s\n", len(before)-i, text)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(sb, "## TARGET text (%s):\n%s\n", verb, target)

	if len(after) > 0 {
		sb.WriteString("\n## Next entries (for context only):\n")
		for i, text := range after {
			fmt.Fprintf(sb, "[+%d] %s\n", i+1, text)
		}
	}
}
