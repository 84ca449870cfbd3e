package service

import (
	"strings"

	"github.com/Prototype-1/UserDirectory/internal/model"
)

type StatusCounts struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Suspended int `json:"suspended"`
	Pending   int `json:"pending"`
}

func (c *StatusCounts) add(s model.Status) {
	c.Total++
	switch s {
	case model.StatusActive:
		c.Active++
	case model.StatusSuspended:
		c.Suspended++
	case model.StatusPending:
		c.Pending++
	}
}

// Overview holds the headline numbers of the admin dashboard.
type Overview struct {
	TotalUsers           int          `json:"totalUsers"`
	Customers            StatusCounts `json:"customers"`
	Freelancers          StatusCounts `json:"freelancers"`
	AvailableFreelancers int          `json:"availableFreelancers"`
	PendingVerifications int          `json:"pendingVerifications"`
	AverageHourlyRate    float64      `json:"averageHourlyRate"`
	Loading              bool         `json:"loading"`
	Error                string       `json:"error,omitempty"`
}

func (d *DirectoryService) Overview() Overview {
	snap := d.Snapshot()
	ov := Overview{Loading: snap.Loading, Error: snap.Error}

	for _, c := range snap.Customers {
		ov.Customers.add(c.Status)
	}

	var rateSum float64
	var rated int
	for _, f := range snap.Freelancers {
		ov.Freelancers.add(f.Status)
		if f.Availability && f.Status == model.StatusActive {
			ov.AvailableFreelancers++
		}
		if f.HourlyRate != nil {
			rateSum += *f.HourlyRate
			rated++
		}
	}
	if rated > 0 {
		ov.AverageHourlyRate = rateSum / float64(rated)
	}

	ov.TotalUsers = ov.Customers.Total + ov.Freelancers.Total
	ov.PendingVerifications = ov.Customers.Pending + ov.Freelancers.Pending
	return ov
}

// UserFilter narrows a snapshot. Zero fields match everything.
type UserFilter struct {
	Type   model.UserType
	Status model.Status
	Query  string
}

// Filter returns the snapshot restricted to the records matching f. The
// query matches name, username and email case-insensitively.
func (d *DirectoryService) Filter(f UserFilter) Snapshot {
	snap := d.Snapshot()
	q := strings.ToLower(strings.TrimSpace(f.Query))

	customers := make([]model.Customer, 0, len(snap.Customers))
	if f.Type == "" || f.Type == model.UserTypeCustomer {
		for _, c := range snap.Customers {
			if matches(f.Status, q, c.Status, c.FullName(), c.Username, c.Email) {
				customers = append(customers, c)
			}
		}
	}

	freelancers := make([]model.Freelancer, 0, len(snap.Freelancers))
	if f.Type == "" || f.Type == model.UserTypeFreelancer {
		for _, fr := range snap.Freelancers {
			if matches(f.Status, q, fr.Status, fr.FullName(), fr.Username, fr.Email) {
				freelancers = append(freelancers, fr)
			}
		}
	}

	snap.Customers = customers
	snap.Freelancers = freelancers
	return snap
}

func matches(want model.Status, q string, status model.Status, fields ...string) bool {
	if want != "" && status != want {
		return false
	}
	if q == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
