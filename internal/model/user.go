package model

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusPending:
		return true
	}
	return false
}

// normalizeStatus maps an absent status to active. Unknown values are treated as
// pending so the record shows up for review instead of passing as verified.
func normalizeStatus(s Status) Status {
	s = Status(strings.ToLower(strings.TrimSpace(string(s))))
	if s == "" {
		return StatusActive
	}
	if !s.Valid() {
		return StatusPending
	}
	return s
}

var ErrUnknownUserType = errors.New("unknown user type")

type UserType string

const (
	UserTypeCustomer   UserType = "customer"
	UserTypeFreelancer UserType = "freelancer"
)

func ParseUserType(s string) (UserType, error) {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case UserTypeCustomer:
		return UserTypeCustomer, nil
	case UserTypeFreelancer:
		return UserTypeFreelancer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUserType, s)
}

// Table returns the remote table that stores users of this type.
func (t UserType) Table() (Table, error) {
	switch t {
	case UserTypeCustomer:
		return TableCustomer, nil
	case UserTypeFreelancer:
		return TableFreelancer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUserType, string(t))
}

type Customer struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	FirstName  string  `json:"firstName"`
	MiddleName *string `json:"middleName"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email"`
	Status     Status  `json:"status"`

	Contact *Contact `json:"contact"`
	Avatar  *Avatar  `json:"Avatar"`
}

// Normalize fills the derived fields the remote store may omit.
func (c *Customer) Normalize() {
	c.Status = normalizeStatus(c.Status)
}

// FullName joins first, middle and last name, skipping empty parts.
func (c Customer) FullName() string {
	return fullName(c.FirstName, c.MiddleName, c.LastName)
}

type Freelancer struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	FirstName    string   `json:"firstName"`
	MiddleName   *string  `json:"middleName"`
	LastName     string   `json:"lastName"`
	Email        string   `json:"email"`
	Availability bool     `json:"availibility"`
	HourlyRate   *float64 `json:"hourlyRate"`
	DailyRate    *float64 `json:"dailyRate"`
	Description  *string  `json:"description"`
	Status       Status   `json:"status"`

	Contact        *Contact         `json:"contact"`
	Avatar         *Avatar          `json:"Avatar"`
	Skills         []SkillSet       `json:"skills"`
	WorkExperience []WorkExperience `json:"workExperience"`
}

// Normalize fills a missing status and guarantees skills and work history are
// never nil, so callers can range over them unconditionally.
func (f *Freelancer) Normalize() {
	f.Status = normalizeStatus(f.Status)
	if f.Skills == nil {
		f.Skills = []SkillSet{}
	}
	if f.WorkExperience == nil {
		f.WorkExperience = []WorkExperience{}
	}
}

func (f Freelancer) FullName() string {
	return fullName(f.FirstName, f.MiddleName, f.LastName)
}

// SkillNames returns the freelancer's skills in stored order.
func (f Freelancer) SkillNames() []string {
	names := make([]string, 0, len(f.Skills))
	for _, s := range f.Skills {
		names = append(names, s.SkillName)
	}
	return names
}

func fullName(first string, middle *string, last string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{first, deref(middle), last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
