package models

import "time"

// Credentials is a Kaggle username + API key pair. Values sourced from the
// process environment are global and shared ("system" credentials).
type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// Valid reports whether both halves of the pair are present.
func (c Credentials) Valid() bool {
	return c.Username != "" && c.Key != ""
}

// User is a per-user record: stored Kaggle credentials, stated interests and
// learning progress.
type User struct {
	ID                   string    `json:"id,omitempty"`
	KaggleUsername       string    `json:"kaggle_username,omitempty"`
	KaggleKey            string    `json:"kaggle_key,omitempty"`
	Interests            []string  `json:"interests,omitempty"`
	XP                   int       `json:"xp,omitempty"`
	Level                int       `json:"level,omitempty"`
	CompetitionsAnalysed int       `json:"competitions_analysed,omitempty"`
	UpdatedAt            time.Time `json:"updated_at,omitempty"`
}

// Credentials returns the user's stored credential pair.
func (u *User) Credentials() Credentials {
	if u == nil {
		return Credentials{}
	}
	return Credentials{Username: u.KaggleUsername, Key: u.KaggleKey}
}
