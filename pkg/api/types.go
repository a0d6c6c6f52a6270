// Package api defines the JSON wire types of the submission service.
package api

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code           string      `json:"code"`
	Message        string      `json:"message"`
	Issues         []string    `json:"issues,omitempty"`
	Diagnostics    interface{} `json:"diagnostics,omitempty"`
	UpstreamStatus int         `json:"upstream_status,omitempty"`
}

// Submission is the success payload of POST /api/v1/submissions.
type Submission struct {
	Decision     string  `json:"decision"`
	ActivityRef  string  `json:"activity_ref"`
	ActivityName string  `json:"activity_name,omitempty"`
	Location     string  `json:"location,omitempty"`
	Date         string  `json:"date,omitempty"`
	DistanceKm   float64 `json:"distance_km"`
	Duration     string  `json:"duration"`
	Pace         string  `json:"pace,omitempty"`
	ProofURL     string  `json:"proof_url"`
	SubmittedAt  string  `json:"submitted_at"`
}

// Scrape is the payload of the debug endpoint GET /api/v1/scrape.
type Scrape struct {
	ActivityRef string      `json:"activity_ref"`
	Fields      interface{} `json:"fields"`
	Diagnostics interface{} `json:"diagnostics"`
	DistanceKm  float64     `json:"distance_km,omitempty"`
	Duration    string      `json:"duration,omitempty"`
	Pace        string      `json:"pace,omitempty"`
}
