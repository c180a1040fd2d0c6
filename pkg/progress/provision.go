package progress

import (
	"fmt"
	"regexp"
	"strconv"
)

// Update is the progress extracted from one consumed output line.
type Update struct {
	// Percent is the completion percentage within the current step. When
	// the parser has not yet seen enough structure to scale, it reports an
	// unscaled running count instead (Scaled false).
	Percent float64

	// Scaled reports whether Percent is a real percentage or a raw count.
	Scaled bool

	// Message is the human-readable sub-step description.
	Message string
}

// LineParser extracts progress state from a tool's output, one line at a
// time. Implementations never consume the line: the caller forwards every
// line to its own output unmodified.
type LineParser interface {
	// ParseLine inspects one output line. It returns an update and true
	// when the line changed the progress state.
	ParseLine(line string) (Update, bool)
}

// Provisioning tool output markers. The plan summary declares the expected
// number of resource operations for the run; per-resource action lines and
// their completion counterparts are counted against it.
var (
	provisionPlanRe = regexp.MustCompile(
		`^\s*Plan:\s+(\d+)\s+to add,\s+(\d+)\s+to change,\s+(\d+)\s+to destroy`)
	provisionActionRe = regexp.MustCompile(
		`^([^\s:]+):\s+(Creating|Modifying|Destroying|Reading)\.{3}`)
	provisionDoneRe = regexp.MustCompile(
		`^([^\s:]+):\s+(Creation|Modifications|Destruction|Read)\s+complete`)
)

// ProvisionParser recognizes the structural markers of the provisioning
// tool's streaming output.
type ProvisionParser struct {
	expected  int
	completed int
	lastID    string
}

// NewProvisionParser creates a parser for one provisioning tool invocation.
func NewProvisionParser() *ProvisionParser {
	return &ProvisionParser{}
}

// ExpectedTotal returns the resource operation count declared by the plan
// summary, or zero if none has been seen.
func (p *ProvisionParser) ExpectedTotal() int {
	return p.expected
}

// CompletedCount returns the number of completed resource operations.
func (p *ProvisionParser) CompletedCount() int {
	return p.completed
}

// ParseLine implements LineParser.
func (p *ProvisionParser) ParseLine(line string) (Update, bool) {
	if m := provisionPlanRe.FindStringSubmatch(line); m != nil {
		add, _ := strconv.Atoi(m[1])
		change, _ := strconv.Atoi(m[2])
		destroy, _ := strconv.Atoi(m[3])
		p.expected = add + change + destroy
		return p.update(fmt.Sprintf("plan: %d to add, %d to change, %d to destroy", add, change, destroy)), true
	}

	if m := provisionActionRe.FindStringSubmatch(line); m != nil {
		p.lastID = m[1]
		return p.update(fmt.Sprintf("%s %s", actionVerb(m[2]), m[1])), true
	}

	if m := provisionDoneRe.FindStringSubmatch(line); m != nil {
		p.completed++
		p.lastID = m[1]
		return p.update(fmt.Sprintf("%s done", m[1])), true
	}

	return Update{}, false
}

// update builds the current progress for the step: the completed fraction
// of the expected total, or the raw completed count before a plan summary
// has been seen.
func (p *ProvisionParser) update(message string) Update {
	if p.expected > 0 {
		pct := float64(p.completed) / float64(p.expected) * 100
		if pct > 100 {
			pct = 100
		}
		return Update{
			Percent: pct,
			Scaled:  true,
			Message: fmt.Sprintf("%s (%d/%d resources)", message, p.completed, p.expected),
		}
	}
	return Update{
		Percent: float64(p.completed),
		Scaled:  false,
		Message: fmt.Sprintf("%s (%d resources complete)", message, p.completed),
	}
}

// actionVerb maps the tool's action gerund to a message verb.
func actionVerb(action string) string {
	switch action {
	case "Creating":
		return "creating"
	case "Modifying":
		return "modifying"
	case "Destroying":
		return "destroying"
	case "Reading":
		return "reading"
	default:
		return action
	}
}
