package entity

import (
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
)

var ErrProfileRoleMismatch = errors.New("profile does not match user role")

// RoleProfile is the role-specific half of a user record. It is implemented
// only by FreelancerProfile and ClientProfile.
type RoleProfile interface {
	ProfileRole() Role
}

type FreelancerProfile struct {
	Bio          string   `json:"bio"`
	Skills       []string `json:"skills"`
	HourlyRate   int      `json:"hourlyRate"`
	Portfolio    []string `json:"portfolio"`
	Location     string   `json:"location"`
	Availability string   `json:"availability"`
}

func (FreelancerProfile) ProfileRole() Role { return RoleFreelancer }

type ClientProfile struct {
	Bio            string `json:"bio"`
	Company        string `json:"company"`
	Location       string `json:"location"`
	ProjectsPosted int    `json:"projectsPosted"`
}

func (ClientProfile) ProfileRole() Role { return RoleClient }

// DefaultProfile returns the profile a freshly registered user starts with.
func DefaultProfile(role Role) RoleProfile {
	if role == RoleFreelancer {
		return &FreelancerProfile{
			Skills:       []string{},
			Portfolio:    []string{},
			Availability: "available",
		}
	}
	return &ClientProfile{}
}

// SetProfile stores p on the user. The profile must belong to the user's role.
func (u *User) SetProfile(p RoleProfile) error {
	if p == nil || p.ProfileRole() != u.Role {
		return ErrProfileRoleMismatch
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	u.Profile = datatypes.JSON(raw)
	return nil
}

// DecodeProfile returns the typed profile for the user's role. A user with an
// empty profile column gets the role default.
func (u *User) DecodeProfile() (RoleProfile, error) {
	switch u.Role {
	case RoleFreelancer:
		return u.FreelancerProfile()
	case RoleClient:
		return u.ClientProfile()
	default:
		return nil, ErrProfileRoleMismatch
	}
}

func (u *User) FreelancerProfile() (*FreelancerProfile, error) {
	if u.Role != RoleFreelancer {
		return nil, ErrProfileRoleMismatch
	}
	p := DefaultProfile(RoleFreelancer).(*FreelancerProfile)
	if len(u.Profile) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(u.Profile, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *User) ClientProfile() (*ClientProfile, error) {
	if u.Role != RoleClient {
		return nil, ErrProfileRoleMismatch
	}
	p := &ClientProfile{}
	if len(u.Profile) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(u.Profile, p); err != nil {
		return nil, err
	}
	return p, nil
}
