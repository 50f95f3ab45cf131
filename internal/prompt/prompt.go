// Package prompt composes the instruction text sent to a generation backend.
package prompt

import (
	"fmt"
	"strings"
)

const (
	withAbility    = "You are an assistant who provides accurate and direct answers in the field of %s. User says: '%s'. Answer as clearly and concisely as possible."
	withoutAbility = "You are an assistant who provides accurate and direct answers. User says: '%s'. Answer as clearly and concisely as possible."
)

// Build returns the prompt for utterance framed by the ability persona.
// It is deterministic; an empty ability drops the field clause.
func Build(ability, utterance string) string {
	ability = strings.TrimSpace(ability)
	utterance = strings.TrimSpace(utterance)
	if ability == "" {
		return fmt.Sprintf(withoutAbility, utterance)
	}
	return fmt.Sprintf(withAbility, ability, utterance)
}
