package domain

// PublishRequest is the inbound publish payload from the translation tool.
type PublishRequest struct {
	User        string `json:"user" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	Target      string `json:"target" validate:"required,langcode"`
	SourceTitle string `json:"sourcetitle" validate:"required,max=255"`
	Text        string `json:"text"`
	RevID       string `json:"revid"`
	Revision    string `json:"revision"`
	Campaign    string `json:"campaign"`

	// Captcha continuation fields, passed through to the edit call.
	CaptchaID   string `json:"wpCaptchaId"`
	CaptchaWord string `json:"wpCaptchaWord"`
}

// PublishOperation is the transient record that flows through the publish
// pipeline. Every operation, whatever its outcome, produces exactly one
// report row and one audit-log entry built from this value.
type PublishOperation struct {
	// Correlation id shared by the log lines, audit entry and report row
	// of a single publish attempt.
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Lang        string         `json:"lang"`
	User        string         `json:"user"`
	Campaign    string         `json:"campaign"`
	Result      string         `json:"result"`
	Edit        map[string]any `json:"edit"`
	SourceTitle string         `json:"sourcetitle"`

	RevID string `json:"revid,omitempty"`
	// Diagnostic note set when no revision id could be resolved.
	EmptyRevID string `json:"empty_revid,omitempty"`
	// "yes"/"no" depending on whether the reference fixer changed the text.
	FixRefs string `json:"fix_refs,omitempty"`

	// The full response returned to the translation tool.
	ResultToCX map[string]any `json:"result_to_cx,omitempty"`
}

// NewPublishOperation seeds an operation from a normalized request.
func NewPublishOperation(req *PublishRequest, user, title string) *PublishOperation {
	return &PublishOperation{
		Title:       title,
		Lang:        req.Target,
		User:        user,
		Campaign:    req.Campaign,
		Edit:        map[string]any{},
		SourceTitle: req.SourceTitle,
	}
}
