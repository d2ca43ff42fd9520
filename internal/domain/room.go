package domain

// CallID names a call room. Rooms exist only while they have members.
type CallID string
