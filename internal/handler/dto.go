package handler

import (
	"time"

	"github.com/google/uuid"

	"oshikatsu/internal/model"
	"oshikatsu/internal/service"
)

const dateLayout = "2006-01-02"

// AuthResponse represents an authentication response.
type AuthResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
}

func newAuthResponse(s *service.AuthSession) AuthResponse {
	return AuthResponse{
		Token:     s.Token,
		Type:      "Bearer",
		ExpiresAt: s.ExpiresAt,
		UserID:    s.UserID,
		Username:  s.Username,
		Email:     s.Email,
	}
}

// UserResponse is the caller's own profile.
type UserResponse struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// GroupResponse is the client projection of a group.
type GroupResponse struct {
	GroupID     uuid.UUID `json:"groupId"`
	UserID      uuid.UUID `json:"userId"`
	GroupName   string    `json:"groupName"`
	Company     string    `json:"company"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newGroupResponse(g *model.Group) GroupResponse {
	return GroupResponse{
		GroupID:     g.ID,
		UserID:      g.UserID,
		GroupName:   g.Name,
		Company:     g.Company,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func newGroupResponses(groups []model.Group) []GroupResponse {
	out := make([]GroupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, newGroupResponse(&groups[i]))
	}
	return out
}

// MemberResponse is the client projection of a member.
type MemberResponse struct {
	MemberID       uuid.UUID `json:"memberId"`
	UserID         uuid.UUID `json:"userId"`
	GroupID        uuid.UUID `json:"groupId"`
	GroupName      string    `json:"groupName"`
	MemberName     string    `json:"memberName"`
	MemberNameKana string    `json:"memberNameKana"`
	Gender         uint8     `json:"gender"`
	BirthDay       string    `json:"birthDay,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func newMemberResponse(m *model.Member) MemberResponse {
	resp := MemberResponse{
		MemberID:       m.ID,
		UserID:         m.UserID,
		GroupID:        m.GroupID,
		MemberName:     m.Name,
		MemberNameKana: m.NameKana,
		Gender:         uint8(m.Gender),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Group != nil {
		resp.GroupName = m.Group.Name
	}
	if !m.BirthDay.IsZero() {
		resp.BirthDay = m.BirthDay.Format(dateLayout)
	}
	return resp
}

func newMemberResponses(members []model.Member) []MemberResponse {
	out := make([]MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, newMemberResponse(&members[i]))
	}
	return out
}

// parseDate accepts an empty string as "no date".
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
