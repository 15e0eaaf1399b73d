package model

import (
	"time"

	"github.com/google/uuid"
)

// GroupChanges carries the client-editable fields of a Group.
type GroupChanges struct {
	Name        string
	Company     string
	Description *string
}

// MemberChanges carries the client-editable fields of a Member.
type MemberChanges struct {
	Name     string
	NameKana string
	Gender   Gender
	BirthDay time.Time
}

// NewGroup returns a group snapshot owned by owner, ready to insert.
func NewGroup(owner uuid.UUID, c GroupChanges, now time.Time) Group {
	return Group{
		UserID:      owner,
		Name:        c.Name,
		Company:     c.Company,
		Description: cloneString(c.Description),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyGroupUpdate returns a copy of g with c applied and UpdatedAt refreshed.
// Identity, owner, version and CreatedAt are carried over unchanged.
func ApplyGroupUpdate(g Group, c GroupChanges, now time.Time) Group {
	next := g
	next.Name = c.Name
	next.Company = c.Company
	next.Description = cloneString(c.Description)
	next.UpdatedAt = laterOf(g.CreatedAt, now)
	next.User = nil
	return next
}

// NewMember returns a member snapshot in groupID owned by owner, ready to insert.
func NewMember(owner, groupID uuid.UUID, c MemberChanges, now time.Time) Member {
	return Member{
		UserID:    owner,
		GroupID:   groupID,
		Name:      c.Name,
		NameKana:  c.NameKana,
		Gender:    c.Gender,
		BirthDay:  dateOnly(c.BirthDay),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyMemberUpdate returns a copy of m with c applied and UpdatedAt refreshed.
// The parent group never changes through an update.
func ApplyMemberUpdate(m Member, c MemberChanges, now time.Time) Member {
	next := m
	next.Name = c.Name
	next.NameKana = c.NameKana
	next.Gender = c.Gender
	next.BirthDay = dateOnly(c.BirthDay)
	next.UpdatedAt = laterOf(m.CreatedAt, now)
	next.User = nil
	next.Group = nil
	return next
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
