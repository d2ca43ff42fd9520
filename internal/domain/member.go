package domain

// ConnID identifies one live transport channel. Assigned by the transport.
type ConnID string

// Member represents a connection's participation in a room.
type Member struct {
	ConnID  ConnID
	Profile Profile
}

func NewMember(conn ConnID, profile Profile) Member {
	return Member{ConnID: conn, Profile: profile}
}
