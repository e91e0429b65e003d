package llm

import (
	"strings"
	"testing"
)

func TestBuildDraftSystemPrompt(t *testing.T) {
	prompt := buildDraftSystemPrompt("World History", 10)

	if !strings.Contains(prompt, "World History") {
		t.Error("prompt should contain the subject")
	}
	if !strings.Contains(prompt, "NUMBER OF QUESTIONS: 10") {
		t.Error("prompt should contain the question count")
	}
	if !strings.Contains(prompt, "0-based index") {
		t.Error("prompt should pin down the answer index convention")
	}
	if !strings.Contains(prompt, `"questions"`) {
		t.Error("prompt should show the expected JSON shape")
	}
}
