package domain

// ConfigEntry is a single name/value pair submitted from the dashboard form.
// It is consumed once per request and never persisted.
type ConfigEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
