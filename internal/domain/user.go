// Package domain contains entity without logic, just meta-data
package domain

// Profile is the display metadata a participant presents when joining a call.
// It is fixed for the lifetime of a join.
type Profile struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}
