package ai

import "context"

// Evaluator turns commit summaries and job descriptions into structured
// assessments. A reply that is not valid JSON is not an error: it comes back
// as the Fallback variant of Reply.
type Evaluator interface {
	AnalyzeProfile(ctx context.Context, user string, commits []CommitSummary) (Reply[ProfileAnalysis], error)
	ParseJobDescription(ctx context.Context, text string) (Reply[JobRequirements], error)
	MatchCandidate(ctx context.Context, user string, commits []CommitSummary, reqs JobRequirements) (Reply[JobMatch], error)
}

type JobRequirements struct {
	Title               string   `json:"title"`
	Level               string   `json:"level"`
	YearsExperience     string   `json:"years_experience"`
	RequiredSkills      []string `json:"required_skills"`
	PreferredSkills     []string `json:"preferred_skills"`
	Domain              string   `json:"domain"`
	KeyResponsibilities []string `json:"key_responsibilities"`
}

// Metric is one scored dimension of a profile analysis.
type Metric struct {
	Score        *float64 `json:"score"`
	Languages    []string `json:"languages"`
	Frameworks   []string `json:"frameworks"`
	Observations []string `json:"observations"`
	Evidence     string   `json:"evidence"`
}

type ProfileAnalysis struct {
	Specialization  string            `json:"specialization"`
	ExperienceLevel string            `json:"experience_level"`
	ExperienceYears string            `json:"experience_years"`
	OverallScore    *float64          `json:"overall_score"`
	Metrics         map[string]Metric `json:"metrics"`
	Strengths       []string          `json:"strengths"`
	AreasForGrowth  []string          `json:"areas_for_growth"`
	RedFlags        []string          `json:"red_flags"`
	RoleFit         map[string]string `json:"role_fit"`
	Summary         string            `json:"summary"`
}

type SkillMatch struct {
	Required   []string `json:"required"`
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing"`
	Additional []string `json:"additional"`
}

type JobMatch struct {
	JobFitScore     *float64   `json:"job_fit_score"`
	OverallScore    *float64   `json:"overall_score"`
	SkillMatch      SkillMatch `json:"skill_match"`
	LevelMatch      string     `json:"level_match"`
	DomainMatch     string     `json:"domain_match"`
	Specialization  string     `json:"specialization"`
	ExperienceLevel string     `json:"experience_level"`
	ExperienceYears string     `json:"experience_years"`
	Strengths       []string   `json:"strengths"`
	Weaknesses      []string   `json:"weaknesses"`
	Recommendation  string     `json:"recommendation"`
}

// FitScore returns the job fit score, 0 when the model did not provide one.
func (m JobMatch) FitScore() float64 {
	if m.JobFitScore == nil {
		return 0
	}
	return *m.JobFitScore
}
