package address

import "time"

type Address struct {
	ID         int       `json:"id"`
	UserID     int       `json:"userId"`
	FullName   string    `json:"fullName"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone"`
	IsDefault  bool      `json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Input is the payload for a new address, also used inline at checkout.
type Input struct {
	FullName   string `json:"fullName" validate:"required,max=100"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=56"`
	Phone      string `json:"phone" validate:"max=32"`
	IsDefault  bool   `json:"isDefault"`
}

func (in Input) toAddress(userID int) Address {
	return Address{
		UserID:     userID,
		FullName:   in.FullName,
		Line1:      in.Line1,
		Line2:      in.Line2,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		Phone:      in.Phone,
		IsDefault:  in.IsDefault,
	}
}

// Patch changes only the fields that are present.
type Patch struct {
	FullName   *string `json:"fullName" validate:"omitempty,min=1,max=100"`
	Line1      *string `json:"line1" validate:"omitempty,min=1,max=200"`
	Line2      *string `json:"line2" validate:"omitempty,max=200"`
	City       *string `json:"city" validate:"omitempty,min=1,max=100"`
	State      *string `json:"state" validate:"omitempty,max=100"`
	PostalCode *string `json:"postalCode" validate:"omitempty,min=1,max=20"`
	Country    *string `json:"country" validate:"omitempty,min=1,max=56"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	IsDefault  *bool   `json:"isDefault"`
}

func (p Patch) apply(a Address) Address {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.FullName, p.FullName)
	set(&a.Line1, p.Line1)
	set(&a.Line2, p.Line2)
	set(&a.City, p.City)
	set(&a.State, p.State)
	set(&a.PostalCode, p.PostalCode)
	set(&a.Country, p.Country)
	set(&a.Phone, p.Phone)
	if p.IsDefault != nil {
		a.IsDefault = *p.IsDefault
	}
	return a
}
