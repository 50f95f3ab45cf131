package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_IncludesAbilityAndUtterance(t *testing.T) {
	p := Build("Psychology", "what is anxiety")
	assert.Equal(t,
		"You are an assistant who provides accurate and direct answers in the field of Psychology. User says: 'what is anxiety'. Answer as clearly and concisely as possible.",
		p)
}

func TestBuild_Deterministic(t *testing.T) {
	assert.Equal(t, Build("History", "who was Caesar"), Build("History", "who was Caesar"))
}

func TestBuild_EmptyAbility(t *testing.T) {
	p := Build("  ", "hello")
	assert.NotContains(t, p, "in the field of")
	assert.Contains(t, p, "User says: 'hello'")
}
