// Package composer turns style exemplars and an inbound email into the
// system and user prompts sent to the completion service.
package composer

import (
	"fmt"
	"strings"

	"draftly/internal/model"
)

// MaxExemplars bounds how many sent bodies are inlined into the prompt.
const MaxExemplars = 5

const exemplarSeparator = "\n\n---\n\n"

const systemTemplate = `You are an AI email writing assistant.
You must mimic the user's writing structure and style from the examples provided.
Maintain the same vocabulary patterns, sentence structure, and formatting style.
However, adjust the tone to be %s as requested.
Write a professional and appropriate reply to the email.
Do NOT copy content from the original email.
Keep the reply concise and relevant.`

const userTemplate = `Here are examples of my past sent emails (use these to match writing style):

%s

Now write a reply to this email with a %s tone:

From: %s
Subject: %s
Body: %s`

// Original is the email being replied to.
type Original struct {
	From    string
	Subject string
	Body    string
}

// Prompt is the composed pair of completion inputs.
type Prompt struct {
	System string
	User   string
}

// ToneInstruction maps a tone to the phrase inserted into the prompts.
func ToneInstruction(tone model.Tone) string {
	switch tone {
	case model.ToneFormal:
		return "formal and professional"
	case model.ToneConcise:
		return "concise and direct"
	case model.ToneFriendly:
		return "friendly and warm"
	default:
		return "professional"
	}
}

// Compose builds the prompts. Only the first MaxExemplars exemplars are used.
func Compose(exemplars []string, tone model.Tone, original Original) Prompt {
	if len(exemplars) > MaxExemplars {
		exemplars = exemplars[:MaxExemplars]
	}
	instruction := ToneInstruction(tone)

	return Prompt{
		System: fmt.Sprintf(systemTemplate, instruction),
		User: fmt.Sprintf(userTemplate,
			strings.Join(exemplars, exemplarSeparator),
			strings.ToLower(instruction),
			original.From,
			original.Subject,
			original.Body,
		),
	}
}
