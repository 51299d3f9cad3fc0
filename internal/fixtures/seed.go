package fixtures

import (
	"fmt"
	"io"
	"strings"

	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML document loaded by cmd/seed.
//
//	users:
//	  - email: owner@example.com
//	    full_name: Demo Owner
//	    password: changeme123
//	    role: owner
//	locations:
//	  - owner: owner@example.com
//	    name: Main Branch
//	    timezone: Asia/Jakarta
//	    counters:
//	      - {name: Teller, prefix: T, capacity_per_day: 100, open_time: "08:00", close_time: "16:00"}
//	    staff: [teller@example.com]
type Seed struct {
	Users     []SeedUser     `yaml:"users"`
	Locations []SeedLocation `yaml:"locations"`
}

type SeedUser struct {
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type SeedLocation struct {
	Owner    string        `yaml:"owner"`
	Name     string        `yaml:"name"`
	Slug     string        `yaml:"slug"`
	Address  *string       `yaml:"address"`
	Timezone string        `yaml:"timezone"`
	Counters []SeedCounter `yaml:"counters"`
	Staff    []string      `yaml:"staff"`
}

type SeedCounter struct {
	Name           string  `yaml:"name"`
	Prefix         string  `yaml:"prefix"`
	CapacityPerDay int     `yaml:"capacity_per_day"`
	OpenTime       *string `yaml:"open_time"`
	CloseTime      *string `yaml:"close_time"`
}

// LoadSeed decodes and checks a seed document. Unknown keys are rejected
// so typos do not silently drop data.
func LoadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return Seed{}, nil
		}
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

func (s *Seed) Validate() error {
	var errs validator.ValidationErrors

	emails := make(map[string]user.Role, len(s.Users))
	for i := range s.Users {
		u := &s.Users[i]
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		field := fmt.Sprintf("users[%d]", i)
		if !validator.IsValidEmail(u.Email) {
			errs.Add(field+".email", "email must be a valid email address")
		}
		if len(u.Password) < 8 {
			errs.Add(field+".password", "password must be at least 8 characters long")
		}
		role := user.Role(strings.ToLower(u.Role))
		if !role.Valid() {
			errs.Add(field+".role", "role must be one of: admin, owner, staff, visitor")
		}
		if _, dup := emails[u.Email]; dup {
			errs.Add(field+".email", "email is listed twice")
		}
		emails[u.Email] = role
	}

	for i := range s.Locations {
		l := &s.Locations[i]
		l.Owner = strings.ToLower(strings.TrimSpace(l.Owner))
		field := fmt.Sprintf("locations[%d]", i)
		if role, ok := emails[l.Owner]; !ok || role != user.RoleOwner {
			errs.Add(field+".owner", "owner must reference a user with role owner")
		}
		if validator.IsEmpty(l.Name) {
			errs.Add(field+".name", "name is required")
		}
		if l.Timezone != "" && !validator.IsValidTimezone(l.Timezone) {
			errs.Add(field+".timezone", "timezone must be a valid IANA time zone")
		}
		for j, staff := range l.Staff {
			staff = strings.ToLower(strings.TrimSpace(staff))
			l.Staff[j] = staff
			if role, ok := emails[staff]; !ok || role != user.RoleStaff {
				errs.Add(fmt.Sprintf("%s.staff[%d]", field, j), "staff must reference a user with role staff")
			}
		}
	}

	return errs.Err()
}
