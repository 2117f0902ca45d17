package models

// UserDetails is the normalized attribute record a connector returns for one
// identifier. Source responses are decoded into it field by field at the
// connector boundary; every field beyond Username/Source is optional and
// omitted from JSON when empty.
type UserDetails struct {
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Title       string `json:"title,omitempty"`
	Department  string `json:"department,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Status      string `json:"status,omitempty"`
	AccountType string `json:"account_type,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	Source      string `json:"source"`
}

// GetName returns the best human-readable name for the record.
func (u *UserDetails) GetName() string {
	if len(u.Name) > 0 {
		return u.Name
	}
	if len(u.DisplayName) > 0 {
		return u.DisplayName
	}
	if len(u.FirstName) > 0 || len(u.LastName) > 0 {
		if len(u.FirstName) > 0 && len(u.LastName) > 0 {
			return u.FirstName + " " + u.LastName
		}
		return u.FirstName + u.LastName
	}
	if len(u.Username) > 0 {
		return u.Username
	}
	return u.Email
}

// GetIdentity returns the identifier the record is keyed by across sources.
func (u *UserDetails) GetIdentity() string {
	if len(u.Email) > 0 {
		return u.Email
	}
	if len(u.Username) > 0 {
		return u.Username
	}
	return u.SourceID
}
