package progress

import (
	"fmt"
	"regexp"
	"strings"
)

// Phases of a configuration-management run, reported individually so the
// operator can see which one is active.
const (
	PhasePrepare  = "prepare"
	PhaseDownload = "download"
	PhaseInstall  = "install"
)

// Task weighting and phase classification are driven by ordered keyword
// tables evaluated in priority order, so the heuristic can be tested and
// tuned independently of the stream parser.
type keywordWeight struct {
	keywords []string
	weight   int
}

type keywordPhase struct {
	keywords []string
	phase    string
}

var taskWeightTable = []keywordWeight{
	{[]string{"download", "install", "unarchive", "extract", "get_url"}, 10},
	{[]string{"setup", "configure", "build", "compile", "template"}, 5},
	{[]string{"copy", "update", "restart", "reload", "enable"}, 3},
}

const defaultTaskWeight = 1

var taskPhaseTable = []keywordPhase{
	{[]string{"download", "get_url", "fetch"}, PhaseDownload},
	{[]string{"install", "unarchive", "extract"}, PhaseInstall},
	{[]string{"prepare", "setup", "configure"}, PhasePrepare},
}

const defaultTaskPhase = PhasePrepare

// lookaheadWeight pads the denominator of the completion fraction: tasks
// not yet announced still lie ahead, so the percentage stays conservative
// until the play summary proves the run is over.
const lookaheadWeight = 20

// Percent caps: the line-derived estimate never claims more than
// preRecapCap until the play summary marker is seen, then advances to
// postRecapPercent.
const (
	preRecapCap      = 95.0
	postRecapPercent = 98.0
)

// Configuration-management tool output markers.
var (
	configureTaskRe   = regexp.MustCompile(`^TASK \[(.+)\]`)
	configureResultRe = regexp.MustCompile(`^(ok|changed|skipping|failed):`)
	configureRecapRe  = regexp.MustCompile(`^PLAY RECAP`)
)

// TaskWeight returns the integer weight assigned to a task by keyword
// match against its name.
func TaskWeight(name string) int {
	lower := strings.ToLower(name)
	for _, entry := range taskWeightTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.weight
			}
		}
	}
	return defaultTaskWeight
}

// TaskPhase classifies a task into one of the three phases by keyword
// match, download and install keywords taking priority.
func TaskPhase(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range taskPhaseTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.phase
			}
		}
	}
	return defaultTaskPhase
}

// phaseState accumulates seen and completed weight for one phase.
type phaseState struct {
	seen      int
	completed int
}

// ConfigureParser recognizes task boundaries and task results in the
// configuration-management tool's streaming output and converts them into
// a weighted completion estimate with a per-phase breakdown.
type ConfigureParser struct {
	currentTask   string
	currentWeight int
	currentPhase  string

	seenWeight      int
	completedWeight int
	phases          map[string]*phaseState
	recapSeen       bool
}

// NewConfigureParser creates a parser for one configuration tool invocation.
func NewConfigureParser() *ConfigureParser {
	return &ConfigureParser{
		phases: map[string]*phaseState{
			PhasePrepare:  {},
			PhaseDownload: {},
			PhaseInstall:  {},
		},
	}
}

// ParseLine implements LineParser.
func (p *ConfigureParser) ParseLine(line string) (Update, bool) {
	if m := configureTaskRe.FindStringSubmatch(line); m != nil {
		p.currentTask = m[1]
		p.currentWeight = TaskWeight(m[1])
		p.currentPhase = TaskPhase(m[1])
		p.seenWeight += p.currentWeight
		p.phases[p.currentPhase].seen += p.currentWeight
		return p.update(), true
	}

	if configureResultRe.MatchString(line) && p.currentWeight > 0 {
		p.completedWeight += p.currentWeight
		p.phases[p.currentPhase].completed += p.currentWeight
		// A task may report one result per host; count the weight once.
		p.currentWeight = 0
		return p.update(), true
	}

	if configureRecapRe.MatchString(line) {
		p.recapSeen = true
		return p.update(), true
	}

	return Update{}, false
}

// update computes the current weighted percentage, capped until the play
// summary has been seen, together with the per-phase breakdown message.
func (p *ConfigureParser) update() Update {
	var pct float64
	if p.recapSeen {
		pct = postRecapPercent
	} else if p.seenWeight > 0 {
		pct = float64(p.completedWeight) / float64(p.seenWeight+lookaheadWeight) * 100
		if pct > preRecapCap {
			pct = preRecapCap
		}
	}

	msg := p.currentTask
	if msg == "" {
		msg = "configuring"
	}
	return Update{
		Percent: pct,
		Scaled:  true,
		Message: fmt.Sprintf("%s (%s)", msg, p.phaseBreakdown()),
	}
}

// phaseBreakdown renders per-phase completion percentages in a fixed order.
func (p *ConfigureParser) phaseBreakdown() string {
	parts := make([]string, 0, 3)
	for _, phase := range []string{PhasePrepare, PhaseDownload, PhaseInstall} {
		st := p.phases[phase]
		pct := 0.0
		if st.seen > 0 {
			pct = float64(st.completed) / float64(st.seen) * 100
		}
		parts = append(parts, fmt.Sprintf("%s %.0f%%", phase, pct))
	}
	return strings.Join(parts, " / ")
}
