package main

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/samber/oops"

	"oshikatsu/internal/model"
)

type fixture struct {
	User   fixtureUser    `json:"user"`
	Groups []fixtureGroup `json:"groups"`
}

type fixtureUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type fixtureGroup struct {
	Name        string          `json:"name"`
	Company     string          `json:"company"`
	Description *string         `json:"description"`
	Members     []fixtureMember `json:"members"`
}

func (g fixtureGroup) changes() model.GroupChanges {
	return model.GroupChanges{Name: g.Name, Company: g.Company, Description: g.Description}
}

type fixtureMember struct {
	Name     string `json:"name"`
	NameKana string `json:"nameKana"`
	Gender   uint8  `json:"gender"`
	BirthDay string `json:"birthDay"`
}

func (m fixtureMember) changes() (model.MemberChanges, error) {
	c := model.MemberChanges{Name: m.Name, NameKana: m.NameKana, Gender: model.Gender(m.Gender)}
	if m.BirthDay != "" {
		birthDay, err := time.Parse("2006-01-02", m.BirthDay)
		if err != nil {
			return c, oops.Code("FIXTURE_INVALID").With("member", m.Name).Wrap(err)
		}
		c.BirthDay = birthDay
	}
	return c, nil
}

// loadFixture decodes and sanity-checks a seed fixture. Password policy and
// uniqueness are left to the services.
func loadFixture(r io.Reader) (*fixture, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var fx fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, oops.Code("FIXTURE_INVALID").Wrap(err)
	}

	invalid := oops.Code("FIXTURE_INVALID")
	if strings.TrimSpace(fx.User.Username) == "" || strings.TrimSpace(fx.User.Email) == "" || fx.User.Password == "" {
		return nil, invalid.Errorf("user needs username, email and password")
	}
	for _, g := range fx.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return nil, invalid.Errorf("every group needs a name")
		}
		for _, m := range g.Members {
			if strings.TrimSpace(m.Name) == "" {
				return nil, invalid.With("group", g.Name).Errorf("every member needs a name")
			}
			if !model.Gender(m.Gender).Valid() {
				return nil, invalid.With("group", g.Name).With("member", m.Name).Errorf("gender must be 0 or 1")
			}
			if _, err := m.changes(); err != nil {
				return nil, err
			}
		}
	}
	return &fx, nil
}
