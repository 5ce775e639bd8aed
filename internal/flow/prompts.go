package flow

import (
	"strings"

	"github.com/m3rciful/raidbot/internal/domain"
)

var prompts = map[Step]string{
	StepAwaitingName: "What is the name of your project?",
	StepAwaitingDescription: "Tell me about your project! You can include details about the following (the more I know, the better):\n" +
		topicList(),
	StepAwaitingSocialHandle: "What is the X handle of your project?\nExample:\n@example",
	StepAwaitingWebsite:      "What is your project's website?\nExample:\nwww.example.ai",
	StepAwaitingTags:         "What are some tags for your project?\nExample:\n$EXAMPLE, #EXAMPLE",
	StepAwaitingTargetLink:   "Paste the X link to the raid target!",
	StepAwaitingLockDuration: "How many minutes to lock chat for?",
	StepAwaitingEditField:    "Which field do you want to change?",
	StepAwaitingEditValue:    "Send the new value.",
}

// Prompt returns the question asked when a session reaches step.
func Prompt(step Step) string {
	return prompts[step]
}

func topicList() string {
	lines := make([]string, 0, len(domain.TopicNames))
	for _, name := range domain.TopicNames {
		label := strings.ReplaceAll(name, "_", " ")
		lines = append(lines, strings.ToUpper(label[:1])+label[1:])
	}
	return strings.Join(lines, "\n")
}
