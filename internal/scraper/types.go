// internal/scraper/types.go
package scraper

// Credentials is a remote session token pair. The two values travel as
// cookies on authenticated fetches.
type Credentials struct {
	RememberID    string `json:"remember_id,omitempty"`
	RememberToken string `json:"remember_token,omitempty"`
}

// Empty reports whether no usable credential material is present.
func (c Credentials) Empty() bool {
	return c.RememberID == "" && c.RememberToken == ""
}

// ExtractedFields holds everything the extraction cascade recovered from
// one activity page. Every field is independently optional; an empty
// string means "not found", and no field's presence implies another's.
type ExtractedFields struct {
	ActivityName string `json:"activity_name,omitempty"`
	Location     string `json:"location,omitempty"`
	Date         string `json:"date,omitempty"`
	Description  string `json:"description,omitempty"`
	Distance     string `json:"distance,omitempty"`
	MovingTime   string `json:"moving_time,omitempty"`
	Pace         string `json:"pace,omitempty"`

	// Authenticated records whether session credentials were sent with
	// the fetch. AuthValid is the heuristic "the credentials worked":
	// credentials were sent and the page served real content.
	Authenticated bool `json:"authenticated"`
	AuthValid     bool `json:"auth_valid"`
}

// Diagnostics describes why extraction may have partially failed. It is
// per-call, never persisted, and drives user-facing guidance: a missing
// details container with a large document usually means a login wall or a
// JS-rendered shell, while a missing stats container with containers
// otherwise present means changed markup.
type Diagnostics struct {
	DetailsFound  bool `json:"details_found"`
	StatsFound    bool `json:"stats_found"`
	DocumentBytes int  `json:"document_bytes"`

	// UnmatchedStats retains stat-list items whose label matched no known
	// keyword. Not surfaced in the final record.
	UnmatchedStats map[string]string `json:"unmatched_stats,omitempty"`
}
