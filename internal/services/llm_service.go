package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/justsurfingit/jobtracker/internal/dtos"
	"github.com/justsurfingit/jobtracker/internal/models"
)

const maxPromptContent = 20000

// StatusNoChange and StatusUnknown are classifier outcomes that leave the
// application untouched.
const (
	StatusNoChange = "NO_CHANGE"
	StatusUnknown  = "UNKNOWN"
)

type LLMService struct {
	Client llms.Model
}

// NewLLMService initializes the Gemini client.
func NewLLMService(ctx context.Context, apiKey, model string) (*LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &LLMService{Client: llm}, nil
}

const jobExtractionPrompt = `
You are an expert Job Data Extraction Agent. Your task is to analyze the provided raw HTML/Text from a job posting and extract structured data.

### INSTRUCTIONS:
1. **Analyze** the text to identify the core job details.
2. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
3. **Extract** the following fields strictly.
4. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "company_name": "Name of the company (e.g., Google, StartupInc)",
    "role_title": "Job title (e.g., Senior Backend Engineer)",
    "location": "Job location or 'Remote'",
    "description": "A clean summary of the job. Focus on Responsibilities and Requirements. Remove HTML tags.",
    "tech_stack": ["Array", "of", "technologies", "mentioned", "e.g., Go, React, AWS"],
    "salary_range": "The salary string if explicitly mentioned (e.g., '$100k - $150k'), otherwise null"
}

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not hallucinate or guess.

### RAW CONTENT:
%s
`

// ExtractJobDetails takes raw HTML and returns the extracted posting as JSON.
func (s *LLMService) ExtractJobDetails(ctx context.Context, rawHTML string) (string, error) {
	prompt := fmt.Sprintf(jobExtractionPrompt, truncate(rawHTML))
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", err
	}

	cleaned := stripCodeFence(resp)
	if !json.Valid([]byte(cleaned)) {
		return "", fmt.Errorf("model returned invalid JSON")
	}
	return cleaned, nil
}

const emailStatusPrompt = `
You track job applications. Read the email below about an application to %s and decide what it means for the application status.

### ALLOWED STATUSES:
%s, NO_CHANGE (the email does not move the application, e.g. a receipt or newsletter), UNKNOWN (you cannot tell).

### OUTPUT:
Valid JSON only, no markdown: {"status": "<one allowed status>", "summary": "<one sentence>"}

### SUBJECT:
%s

### BODY:
%s
`

// AnalyzeEmailStatus classifies an email into an application status.
func (s *LLMService) AnalyzeEmailStatus(ctx context.Context, companyName, subject, body string) (*dtos.EmailAnalysis, error) {
	allowed := strings.Join([]string{models.StatusInterview, models.StatusOffer, models.StatusRejected}, ", ")
	prompt := fmt.Sprintf(emailStatusPrompt, companyName, allowed, subject, truncate(body))

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt, llms.WithTemperature(0))
	if err != nil {
		return nil, err
	}

	var analysis dtos.EmailAnalysis
	if err := json.Unmarshal([]byte(stripCodeFence(resp)), &analysis); err != nil {
		return nil, fmt.Errorf("parse email analysis: %w", err)
	}
	analysis.Status = strings.ToUpper(strings.TrimSpace(analysis.Status))
	if !knownAnalysisStatus(analysis.Status) {
		analysis.Status = StatusUnknown
	}
	return &analysis, nil
}

const jobRolePrompt = `
A candidate applied to several roles at the same company. Which role is this email about?

### ROLES:
%s

### SUBJECT:
%s

### BODY:
%s

Answer with the role number only. Answer -1 if the email does not identify a role.
`

// IdentifyJobRole picks which of titles an email refers to, or -1.
func (s *LLMService) IdentifyJobRole(ctx context.Context, titles []string, subject, body string) (int, error) {
	var roles strings.Builder
	for i, t := range titles {
		fmt.Fprintf(&roles, "%d. %s\n", i, t)
	}
	prompt := fmt.Sprintf(jobRolePrompt, roles.String(), subject, truncate(body))

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt, llms.WithTemperature(0))
	if err != nil {
		return -1, err
	}

	idx, err := strconv.Atoi(strings.Trim(strings.TrimSpace(resp), ".`"))
	if err != nil || idx < 0 || idx >= len(titles) {
		return -1, nil
	}
	return idx, nil
}

func knownAnalysisStatus(status string) bool {
	if status == StatusNoChange || status == StatusUnknown {
		return true
	}
	for _, s := range models.ApplicationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func truncate(content string) string {
	if len(content) > maxPromptContent {
		return content[:maxPromptContent]
	}
	return content
}

// stripCodeFence removes a ```json fence some models add despite instructions.
func stripCodeFence(resp string) string {
	s := strings.TrimSpace(resp)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
