package models

// Company represents a tenant. Every business row belongs to exactly one company.
type Company struct {
	BaseModel

	Name     string `json:"name" db:"name"`
	Document string `json:"document" db:"document"`
	Email    string `json:"email" db:"email"`
	Phone    string `json:"phone" db:"phone"`
	Address  string `json:"address" db:"address"`

	Settings Variables `json:"settings" db:"settings"`
}
