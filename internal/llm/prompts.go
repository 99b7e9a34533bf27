package llm

const (
	VarResumeText = "resume_text"
	VarSummary    = "summary"
)

var (
	SummaryPrompt = Prompt{
		Name:     "summary",
		System:   "You are a concise professional resume summarizer.",
		Template: "Summarize this resume focusing on skills, education, and experience:\n\n{resume_text}",
	}
	GapsPrompt = Prompt{
		Name:     "gaps",
		System:   "You analyze resumes and clearly identify gaps.",
		Template: "List missing skills, certifications, and experiences as bullet points:\n\n{resume_text}",
	}
	RoadmapPrompt = Prompt{
		Name:     "roadmap",
		System:   "You create practical 90-day improvement roadmaps.",
		Template: "Based on this resume, suggest a roadmap (skills, certifications, industry exposure):\n\n{resume_text}",
	}
	// KeywordsPrompt asks for a bare comma-separated list. Models do not
	// always comply; jobs.Planner tolerates prose and fences.
	KeywordsPrompt = Prompt{
		Name:     "keywords",
		System:   "Return ONLY a comma-separated list of job titles and search keywords. No extra text.",
		Template: "Based on this resume summary, output the list:\n\n{summary}",
	}
)

// Prompts returns the four prompts in pipeline order.
func Prompts() []Prompt {
	return []Prompt{SummaryPrompt, GapsPrompt, RoadmapPrompt, KeywordsPrompt}
}
