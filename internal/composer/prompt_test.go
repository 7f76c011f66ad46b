package composer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"draftly/internal/model"
)

func TestToneInstruction(t *testing.T) {
	assert.Equal(t, "formal and professional", ToneInstruction(model.ToneFormal))
	assert.Equal(t, "concise and direct", ToneInstruction(model.ToneConcise))
	assert.Equal(t, "friendly and warm", ToneInstruction(model.ToneFriendly))
	assert.Equal(t, "professional", ToneInstruction(model.ToneUnspecified))
}

func TestComposeFriendly(t *testing.T) {
	p := Compose([]string{"Hi there", "Cheers"}, model.ToneFriendly, Original{
		From:    "John <john@x.com>",
		Subject: "Lunch?",
		Body:    "Free on Friday?",
	})

	assert.True(t, strings.HasPrefix(p.System, "You are an AI email writing assistant.\n"))
	assert.Contains(t, p.System, "However, adjust the tone to be friendly and warm as requested.")
	assert.Contains(t, p.System, "Do NOT copy content from the original email.")

	assert.Contains(t, p.User, "Hi there\n\n---\n\nCheers")
	assert.Contains(t, p.User, "Now write a reply to this email with a friendly and warm tone:")
	assert.True(t, strings.HasSuffix(p.User, "From: John <john@x.com>\nSubject: Lunch?\nBody: Free on Friday?"))
}

func TestComposeNoExemplars(t *testing.T) {
	p := Compose(nil, model.ToneUnspecified, Original{From: "a@x.com"})
	assert.Contains(t, p.User, "match writing style):\n\n\n\nNow write a reply to this email with a professional tone:")
}

func TestProperty_AtMostFiveExemplars(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("exemplars beyond the fifth never appear", prop.ForAll(
		func(n int) bool {
			exemplars := make([]string, n)
			for i := range exemplars {
				exemplars[i] = fmt.Sprintf("exemplar-%02d", i)
			}
			p := Compose(exemplars, model.ToneConcise, Original{})
			for i := range exemplars {
				if strings.Contains(p.User, exemplars[i]) != (i < MaxExemplars) {
					return false
				}
			}
			want := n - 1
			if n > MaxExemplars {
				want = MaxExemplars - 1
			}
			if n == 0 {
				want = 0
			}
			return strings.Count(p.User, exemplarSeparator) == want
		},
		gen.IntRange(0, 12),
	))

	properties.TestingRun(t)
}
