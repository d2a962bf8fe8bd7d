package model

// Webpage is a named front-end destination. Auth responses may be asked to
// carry the resolved URL (by webpage_key) so the client knows where to
// redirect after a successful sign-in.
type Webpage struct {
	ID          string `json:"webpage_id"          db:"id"`
	Name        string `json:"webpage_name"        db:"name"`
	Key         string `json:"webpage_key"         db:"key"`
	URL         string `json:"webpage_url"         db:"url"`
	Description string `json:"webpage_description" db:"description"`
}
