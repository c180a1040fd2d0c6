package progress

import (
	"strings"
	"testing"
)

func TestProvisionParserPlanSummary(t *testing.T) {
	p := NewProvisionParser()

	update, ok := p.ParseLine("Plan: 3 to add, 1 to change, 2 to destroy.")
	if !ok {
		t.Fatal("expected plan summary to match")
	}
	if p.ExpectedTotal() != 6 {
		t.Errorf("expected total 6, got %d", p.ExpectedTotal())
	}
	if !update.Scaled {
		t.Error("expected scaled update after plan summary")
	}
	if update.Percent != 0 {
		t.Errorf("expected 0%% before any completion, got %.1f", update.Percent)
	}
}

func TestProvisionParserCountsCompletions(t *testing.T) {
	p := NewProvisionParser()

	lines := []string{
		"Plan: 2 to add, 0 to change, 0 to destroy.",
		"aws_instance.node_a: Creating...",
		"aws_instance.node_a: Creation complete after 31s [id=i-0abc]",
		"aws_instance.node_b: Creating...",
		"aws_instance.node_b: Creation complete after 28s [id=i-0def]",
	}

	var last Update
	for _, line := range lines {
		if u, ok := p.ParseLine(line); ok {
			last = u
		}
	}

	if p.CompletedCount() != 2 {
		t.Errorf("expected 2 completions, got %d", p.CompletedCount())
	}
	if last.Percent != 100 {
		t.Errorf("expected 100%%, got %.1f", last.Percent)
	}
	if !strings.Contains(last.Message, "2/2 resources") {
		t.Errorf("expected resource count in message, got %q", last.Message)
	}
}

func TestProvisionParserHalfway(t *testing.T) {
	p := NewProvisionParser()

	p.ParseLine("Plan: 4 to add, 0 to change, 0 to destroy.")
	p.ParseLine("a: Creating...")
	p.ParseLine("a: Creation complete after 1s")
	update, ok := p.ParseLine("b: Creation complete after 1s")
	if !ok {
		t.Fatal("expected completion line to match")
	}
	if update.Percent != 50 {
		t.Errorf("expected 50%%, got %.1f", update.Percent)
	}
}

func TestProvisionParserUnscaledBeforePlan(t *testing.T) {
	p := NewProvisionParser()

	update, ok := p.ParseLine("module.net.vpc: Creation complete after 5s")
	if !ok {
		t.Fatal("expected completion line to match")
	}
	if update.Scaled {
		t.Error("expected unscaled update before a plan summary")
	}
	if update.Percent != 1 {
		t.Errorf("expected raw count 1, got %.1f", update.Percent)
	}
	if !strings.Contains(update.Message, "1 resources complete") {
		t.Errorf("expected raw count in message, got %q", update.Message)
	}

	update, ok = p.ParseLine("module.net.subnet: Creation complete after 2s")
	if !ok {
		t.Fatal("expected completion line to match")
	}
	if !strings.Contains(update.Message, "2 resources complete") {
		t.Errorf("expected running count in message, got %q", update.Message)
	}
}

func TestProvisionParserDestroyMarkers(t *testing.T) {
	p := NewProvisionParser()

	p.ParseLine("Plan: 0 to add, 0 to change, 2 to destroy.")
	if _, ok := p.ParseLine("node_a: Destroying... [id=i-0abc]"); !ok {
		t.Error("expected destroying line to match")
	}
	update, ok := p.ParseLine("node_a: Destruction complete after 12s")
	if !ok {
		t.Fatal("expected destruction complete to match")
	}
	if update.Percent != 50 {
		t.Errorf("expected 50%%, got %.1f", update.Percent)
	}
}

func TestProvisionParserIgnoresChatter(t *testing.T) {
	p := NewProvisionParser()

	chatter := []string{
		"Initializing the backend...",
		"Terraform will perform the following actions:",
		"  # aws_instance.node_a will be created",
		"",
		"Apply complete! Resources: 2 added, 0 changed, 0 destroyed.",
	}
	for _, line := range chatter {
		if _, ok := p.ParseLine(line); ok {
			t.Errorf("expected chatter line to be ignored: %q", line)
		}
	}
}
