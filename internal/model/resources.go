package model

import (
	"errors"
	"strings"
	"time"
)

type Table string

const (
	TableCustomer       Table = "Customer"
	TableFreelancer     Table = "Freelancer"
	TableContact        Table = "Contact"
	TableAvatar         Table = "Avatar"
	TableSkillSet       Table = "SkillSet"
	TableWorkExperience Table = "WorkExperience"
)

// WatchedTables lists every table whose changes affect the user directory.
var WatchedTables = []Table{
	TableCustomer,
	TableFreelancer,
	TableContact,
	TableAvatar,
	TableSkillSet,
	TableWorkExperience,
}

var ErrInvalidOwner = errors.New("row must reference exactly one of customer or freelancer")

type Contact struct {
	ID             string   `json:"id"`
	PhoneNumber    []string `json:"phoneNumber"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	Country        string   `json:"country"`
	SecondaryEmail string   `json:"secondaryEmail"`
	CustomerID     *string  `json:"customerId"`
	FreelancerID   *string  `json:"freelancerId"`
}

// Owner reports which parent the contact belongs to.
func (c Contact) Owner() (UserType, string, error) {
	return owner(c.CustomerID, c.FreelancerID)
}

type Avatar struct {
	ID           string  `json:"id"`
	Image        string  `json:"image"`
	CustomerID   *string `json:"customerId"`
	FreelancerID *string `json:"freelancerId"`
}

func (a Avatar) Owner() (UserType, string, error) {
	return owner(a.CustomerID, a.FreelancerID)
}

func owner(customerID, freelancerID *string) (UserType, string, error) {
	c, f := deref(customerID), deref(freelancerID)
	switch {
	case c != "" && f == "":
		return UserTypeCustomer, c, nil
	case f != "" && c == "":
		return UserTypeFreelancer, f, nil
	}
	return "", "", ErrInvalidOwner
}

type SkillSet struct {
	ID           string  `json:"id"`
	SkillName    string  `json:"skillName"`
	FreelancerID *string `json:"freelancerId"`
}

type WorkExperience struct {
	ID           string     `json:"id"`
	CompanyName  string     `json:"companyName"`
	Designation  string     `json:"designation"`
	Location     string     `json:"location"`
	JoinedDate   Timestamp  `json:"joinedDate"`
	EndDate      *Timestamp `json:"endDate"`
	FreelancerID *string    `json:"freelancerId"`
}

// Current reports whether the position has no end date.
func (w WorkExperience) Current() bool {
	return w.EndDate == nil || w.EndDate.IsZero()
}

// Timestamp decodes the time renderings produced by the remote store: RFC 3339
// for timestamptz columns and zone-less values for plain timestamp columns.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return err
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}
