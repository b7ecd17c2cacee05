package gateway

import (
	"encoding/json"

	"github.com/audio-transcribe/client/internal/core/domain"
)

const defaultErrorMessage = "An error occurred"

// --- Requests ---

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// --- Responses → domain ---

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type profileResponse struct {
	Username string `json:"username"`
	Disabled *bool  `json:"disabled"`
}

func (p profileResponse) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		Username: p.Username,
		Disabled: p.Disabled != nil && *p.Disabled,
	}
}

type jobResponse struct {
	JobID        string `json:"job_id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	Transcript   string `json:"transcript"`
	Owner        string `json:"owner"`
	ErrorMessage string `json:"error_message"`
}

// toDomain drops the transcript of unfinished jobs; the server fills it with
// placeholder text until processing completes.
func (j jobResponse) toDomain() domain.Job {
	job := domain.Job{
		ID:           j.JobID,
		Filename:     j.Filename,
		Status:       domain.JobStatus(j.Status),
		Owner:        j.Owner,
		ErrorMessage: j.ErrorMessage,
	}
	if job.Status == domain.JobStatusCompleted {
		job.Transcript = j.Transcript
	}
	return job
}

func toDomainJobs(in []jobResponse) []domain.Job {
	jobs := make([]domain.Job, 0, len(in))
	for _, j := range in {
		jobs = append(jobs, j.toDomain())
	}
	return jobs
}

// --- Error bodies ---

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message json.RawMessage `json:"message"`
}

type validationItem struct {
	Msg string `json:"msg"`
}

// errorDetail extracts the human-readable message from an error body:
// a string detail, then a string message, then the first entry of a
// validation list. It returns "" when none is present.
func errorDetail(body []byte) string {
	var eb errorBody
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil {
		return ""
	}

	var s string
	if json.Unmarshal(eb.Detail, &s) == nil && s != "" {
		return s
	}
	if json.Unmarshal(eb.Message, &s) == nil && s != "" {
		return s
	}

	var items []validationItem
	if json.Unmarshal(eb.Detail, &items) == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	return ""
}
