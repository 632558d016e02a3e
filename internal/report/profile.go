package report

import (
	"sort"
	"strings"

	"github.com/spigell/gh-screener/internal/ai"
)

const technicalExpertise = "technical_expertise"

type metricName struct {
	key   string
	title string
}

// Metrics are printed in this order; unknown keys are ignored.
var metricNames = []metricName{
	{technicalExpertise, "Technical Expertise"},
	{"code_quality", "Code Quality"},
	{"problem_solving", "Problem-Solving"},
	{"consistency", "Consistency"},
	{"communication", "Communication"},
}

// NamedMetric is a metric with its display title.
type NamedMetric struct {
	Key   string
	Title string
	ai.Metric
}

// Metrics returns the known metrics of a in display order.
func Metrics(a ai.ProfileAnalysis) []NamedMetric {
	var out []NamedMetric
	for _, name := range metricNames {
		if m, ok := a.Metrics[name.key]; ok {
			out = append(out, NamedMetric{Key: name.key, Title: name.title, Metric: m})
		}
	}
	return out
}

// RoleFit is one role fit line with its mark.
type RoleFit struct {
	Mark string
	Role string
	Fit  string
}

// RoleFits returns the role fit entries of a sorted by role.
func RoleFits(a ai.ProfileAnalysis) []RoleFit {
	roles := make([]string, 0, len(a.RoleFit))
	for role := range a.RoleFit {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	out := make([]RoleFit, 0, len(roles))
	for _, role := range roles {
		fit := a.RoleFit[role]
		out = append(out, RoleFit{Mark: FitMark(fit), Role: role, Fit: fit})
	}
	return out
}

// Profile renders the rating report of a single developer.
func Profile(user string, reply ai.Reply[ai.ProfileAnalysis], totalCommits int) string {
	var l lines

	l.rule("=", profileWidth)
	l.text("GITHUB DEVELOPER PROFILE ANALYSIS")
	l.add("User: %s", user)
	l.add("Commits Analyzed: %d", totalCommits)
	l.rule("=", profileWidth)
	l.blank()

	if reply.Fallback {
		l.text("ANALYSIS (Raw Response):")
		l.text(reply.Raw)
		return l.String()
	}

	a := reply.Value

	l.add("DETECTED SPECIALIZATION: %s", orDefault(a.Specialization, "Unknown"))
	l.add("ESTIMATED EXPERIENCE: %s (%s years)",
		orDefault(a.ExperienceLevel, "Unknown"), orDefault(a.ExperienceYears, "Unknown"))
	l.blank()
	l.add("OVERALL SCORE: %s/10", Score(a.OverallScore))
	l.blank()

	section(&l, "DETAILED METRICS")
	l.blank()
	for _, m := range Metrics(a) {
		l.add("%s: %s/10", m.Title, Score(m.Score))
		if m.Key == technicalExpertise {
			if len(m.Languages) > 0 {
				l.add("  Languages: %s", strings.Join(m.Languages, ", "))
			}
			if len(m.Frameworks) > 0 {
				l.add("  Frameworks: %s", strings.Join(m.Frameworks, ", "))
			}
		}
		for _, obs := range m.Observations {
			l.add("  - %s", obs)
		}
		if m.Evidence != "" {
			l.add("  Evidence: %s", m.Evidence)
		}
		l.blank()
	}

	section(&l, "STRENGTHS")
	for _, s := range a.Strengths {
		l.add("  + %s", s)
	}
	l.blank()

	section(&l, "AREAS FOR GROWTH")
	for _, s := range a.AreasForGrowth {
		l.add("  - %s", s)
	}
	l.blank()

	if len(a.RedFlags) > 0 {
		section(&l, "RED FLAGS")
		for _, f := range a.RedFlags {
			l.add("  !! %s", f)
		}
		l.blank()
	}

	section(&l, "ROLE FIT ASSESSMENT")
	for _, rf := range RoleFits(a) {
		l.add("  %s %s: %s", rf.Mark, rf.Role, rf.Fit)
	}
	l.blank()

	section(&l, "SUMMARY")
	l.text(orDefault(a.Summary, "No summary available."))
	l.blank()
	l.rule("=", profileWidth)

	return l.String()
}

func section(l *lines, title string) {
	l.rule("-", profileWidth)
	l.text(title)
	l.rule("-", profileWidth)
}

// FitMark classifies a role fit: "+" for strong, "o" for good, "-" otherwise.
func FitMark(fit string) string {
	switch {
	case strings.Contains(fit, "Strong"):
		return "+"
	case strings.Contains(fit, "Good"):
		return "o"
	default:
		return "-"
	}
}
