package models

import (
	"errors"
	"time"
)

type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleTeam   UserRole = "TEAM"
	RoleClient UserRole = "CLIENT"
)

// ClientAccount is a portal user profile. Client-role profiles may carry the
// ad-account id of the advertiser they represent.
type ClientAccount struct {
	ID          string    `json:"id" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	Email       string    `json:"email" firestore:"email"`
	Role        UserRole  `json:"role" firestore:"role"`
	CompanyName string    `json:"company_name,omitempty" firestore:"companyName,omitempty"`
	AdAccountID string    `json:"ad_account_id,omitempty" firestore:"adAccountId,omitempty"`
	CreatedAt   time.Time `json:"created_at" firestore:"-"`
}

func (a *ClientAccount) Validate() error {
	if a == nil {
		return errors.New("client is nil")
	}
	if a.ID == "" {
		return errors.New("id is required")
	}
	if a.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
