package telegram

import (
	"testing"

	"nvc-coach/internal/botsession"
	"nvc-coach/internal/session"
)

func TestBuildContext(t *testing.T) {
	fresh, err := session.Upgrade(botsession.DialogChain, nil, session.Scope{ChatID: 1})
	if err != nil {
		t.Fatalf("bootstrap dialog: %v", err)
	}
	dialog := fresh.(*botsession.Dialog)
	dialog.Append("user", "my roommate ignores me")
	dialog.Append("assistant", "that sounds lonely")
	dialog.Append("user", "it is")

	msgs := buildContext("be kind", dialog)
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != "be kind" {
		t.Errorf("system prompt not first: %+v", msgs[0])
	}
	if msgs[3].Role != "user" || msgs[3].Content != "it is" {
		t.Errorf("latest user message not last: %+v", msgs[3])
	}
}

func TestBuildContextWithoutSystemPrompt(t *testing.T) {
	fresh, _ := session.Upgrade(botsession.DialogChain, nil, session.Scope{ChatID: 1})
	dialog := fresh.(*botsession.Dialog)
	dialog.Append("user", "hello")

	msgs := buildContext("", dialog)
	if len(msgs) != 1 || msgs[0].Role != "user" {
		t.Errorf("unexpected context: %+v", msgs)
	}
}

func TestStaleExerciseSceneDetection(t *testing.T) {
	// A stored scene can carry any step value; out-of-range ones must
	// be recognized before indexing into the wizard.
	raw := []byte(`{"version":1,"name":"exercise","step":9}`)
	loaded, err := session.Upgrade(botsession.SceneChain, raw, session.Scope{ChatID: 7, UserID: 42})
	if err != nil {
		t.Fatalf("load scene: %v", err)
	}
	scene := loaded.(*botsession.Scene)
	if !staleExerciseScene(scene) {
		t.Errorf("step %d not flagged as stale", scene.Step)
	}

	scene.Step = -1
	if !staleExerciseScene(scene) {
		t.Error("negative step not flagged as stale")
	}

	scene.Step = len(exerciseSteps) - 1
	if staleExerciseScene(scene) {
		t.Errorf("step %d flagged as stale", scene.Step)
	}

	scene.Name = ""
	scene.Step = 9
	if staleExerciseScene(scene) {
		t.Error("scene outside the exercise flagged as stale")
	}
}

func TestExerciseStepsCoverAllFour(t *testing.T) {
	if len(exerciseSteps) != 4 {
		t.Fatalf("exercise has %d steps, want 4", len(exerciseSteps))
	}
	want := []string{"observation", "feeling", "need", "request"}
	for i, step := range exerciseSteps {
		if step.Name != want[i] {
			t.Errorf("step %d is %q, want %q", i, step.Name, want[i])
		}
		if step.Prompt == "" {
			t.Errorf("step %q has no prompt", step.Name)
		}
	}
}
