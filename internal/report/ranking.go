package report

import (
	"strings"

	"github.com/spigell/gh-screener/internal/ai"
	"github.com/spigell/gh-screener/internal/screening"
)

const highlights = 3

// Ranking renders candidates in the given order against the job requirements.
func Ranking(results []screening.Candidate, reqs ai.JobRequirements) string {
	var l lines

	l.rule("=", rankingWidth)
	l.add("CANDIDATE RANKING FOR: %s", orDefault(reqs.Title, "Unspecified Role"))
	l.add("Required Skills: %s", strings.Join(reqs.RequiredSkills, ", "))
	l.add("Level: %s", orDefault(reqs.Level, "Unspecified"))
	l.add("Candidates Evaluated: %d", len(results))
	l.rule("=", rankingWidth)
	l.blank()

	if len(results) == 0 {
		l.text("No candidates evaluated.")
		return l.String()
	}

	for i, c := range results {
		m := c.Analysis.Value

		l.add("#%d. %s", i+1, c.Username)
		l.add("    Job Fit: %s/10 | Overall: %s/10", Score(m.JobFitScore), Score(m.OverallScore))
		l.add("    Recommendation: %s", orDefault(m.Recommendation, "N/A"))
		if m.Specialization != "" {
			l.add("    Specialization: %s (%s, %s years)", m.Specialization,
				orDefault(m.ExperienceLevel, "Unknown"), orDefault(m.ExperienceYears, "Unknown"))
		}
		if len(m.SkillMatch.Matched) > 0 {
			l.add("    Skills Matched: %s", strings.Join(m.SkillMatch.Matched, ", "))
		} else {
			l.text("    Skills Matched: None")
		}
		if len(m.SkillMatch.Missing) > 0 {
			l.add("    Skills Missing: %s", strings.Join(m.SkillMatch.Missing, ", "))
		}
		l.add("    Level Match: %s", orDefault(m.LevelMatch, "N/A"))
		if len(m.Strengths) > 0 {
			l.add("    Strengths: %s", strings.Join(top(m.Strengths), "; "))
		}
		if len(m.Weaknesses) > 0 {
			l.add("    Weaknesses: %s", strings.Join(top(m.Weaknesses), "; "))
		}
		l.add("    Commits Analyzed: %d", c.CommitsAnalyzed)
		l.blank()
	}

	l.rule("=", rankingWidth)

	return l.String()
}

func top(items []string) []string {
	if len(items) > highlights {
		return items[:highlights]
	}
	return items
}
