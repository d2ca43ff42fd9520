package core

import "github.com/dkeye/CallRoom/internal/domain"

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	ID          domain.CallID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SocketID domain.ConnID  `json:"socketId"`
	User     domain.Profile `json:"user"`
}

func NewMemberDTO(m domain.Member) MemberDTO {
	return MemberDTO{SocketID: m.ConnID, User: m.Profile}
}
