package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name string
		in   Status
		want Status
	}{
		{"missing defaults to active", "", StatusActive},
		{"active preserved", StatusActive, StatusActive},
		{"suspended preserved", StatusSuspended, StatusSuspended},
		{"pending preserved", StatusPending, StatusPending},
		// Explicit statuses outside the canonical spelling are rewritten,
		// not passed through.
		{"rewritten: case folded", "SUSPENDED", StatusSuspended},
		{"rewritten: mixed case trimmed", " Suspended ", StatusSuspended},
		{"rewritten: unknown value held for review as pending", "banned", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Customer{Status: tt.in}
			c.Normalize()
			assert.Equal(t, tt.want, c.Status)

			f := Freelancer{Status: tt.in}
			f.Normalize()
			assert.Equal(t, tt.want, f.Status)
		})
	}
}

func TestFreelancerNormalize_DefaultsCollections(t *testing.T) {
	var f Freelancer
	require.NoError(t, json.Unmarshal([]byte(`{"id":"f1","username":"ana"}`), &f))
	assert.Nil(t, f.Skills)

	f.Normalize()
	assert.NotNil(t, f.Skills)
	assert.Empty(t, f.Skills)
	assert.NotNil(t, f.WorkExperience)
	assert.Empty(t, f.WorkExperience)

	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"skills":[]`)
	assert.Contains(t, string(out), `"workExperience":[]`)
}

func TestFreelancerNormalize_KeepsExistingCollections(t *testing.T) {
	f := Freelancer{Skills: []SkillSet{{ID: "s1", SkillName: "go"}, {ID: "s2", SkillName: "sql"}}}
	f.Normalize()
	assert.Equal(t, []string{"go", "sql"}, f.SkillNames())
}

func TestParseUserType(t *testing.T) {
	ut, err := ParseUserType("Customer")
	require.NoError(t, err)
	assert.Equal(t, UserTypeCustomer, ut)

	table, err := ut.Table()
	require.NoError(t, err)
	assert.Equal(t, TableCustomer, table)

	ut, err = ParseUserType("freelancer")
	require.NoError(t, err)
	table, err = ut.Table()
	require.NoError(t, err)
	assert.Equal(t, TableFreelancer, table)

	_, err = ParseUserType("client")
	assert.True(t, errors.Is(err, ErrUnknownUserType))

	_, err = UserType("admin").Table()
	assert.True(t, errors.Is(err, ErrUnknownUserType))
}

func TestFullName(t *testing.T) {
	middle := "Q"
	c := Customer{FirstName: "John", MiddleName: &middle, LastName: "Doe"}
	assert.Equal(t, "John Q Doe", c.FullName())

	f := Freelancer{FirstName: "Jane", LastName: " Smith "}
	assert.Equal(t, "Jane Smith", f.FullName())
}

func TestOwner(t *testing.T) {
	id := "c1"
	other := "f1"

	ut, ref, err := Contact{CustomerID: &id}.Owner()
	require.NoError(t, err)
	assert.Equal(t, UserTypeCustomer, ut)
	assert.Equal(t, "c1", ref)

	ut, ref, err = Avatar{FreelancerID: &other}.Owner()
	require.NoError(t, err)
	assert.Equal(t, UserTypeFreelancer, ut)
	assert.Equal(t, "f1", ref)

	_, _, err = Avatar{CustomerID: &id, FreelancerID: &other}.Owner()
	assert.ErrorIs(t, err, ErrInvalidOwner)

	_, _, err = Contact{}.Owner()
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	want := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	inputs := []string{
		`"2024-01-15T09:30:00Z"`,
		`"2024-01-15T09:30:00+00:00"`,
		`"2024-01-15T09:30:00"`,
		`"2024-01-15T09:30:00.000"`,
		`"2024-01-15 09:30:00"`,
	}
	for _, in := range inputs {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.True(t, want.Equal(ts.Time), in)
	}

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-15"`), &ts))
	assert.Equal(t, 15, ts.Day())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestWorkExperience_Current(t *testing.T) {
	var w WorkExperience
	require.NoError(t, json.Unmarshal([]byte(`{"id":"w1","joinedDate":"2023-02-01T00:00:00","endDate":null}`), &w))
	assert.True(t, w.Current())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"w2","joinedDate":"2023-02-01T00:00:00","endDate":"2024-02-01T00:00:00"}`), &w))
	assert.False(t, w.Current())
}
