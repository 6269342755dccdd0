package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryFood           Category = "Food"
	CategoryRent           Category = "Rent"
	CategoryUtilities      Category = "Utilities"
	CategoryEntertainment  Category = "Entertainment"
	CategoryTransportation Category = "Transportation"
	CategoryOther          Category = "Other"
)

const (
	RoleUser = "user"

	MinPasswordLength = 6
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryRent,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryTransportation,
	CategoryOther,
}

type (
	Category string

	User struct {
		ID           string
		Username     string
		Email        string
		PasswordHash string
		GoogleID     string
		Role         string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// PublicUser is the subset of User returned to clients.
	PublicUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
		Email    string `json:"email,omitempty"`
	}

	// Principal is the authenticated caller of a request.
	Principal struct {
		UserID string
		Role   string
	}

	BudgetEntry struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		Category  Category  `json:"category"`
		Amount    Money     `json:"amount"`
		Month     string    `json:"month"`
		Period    int       `json:"-"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// EntryFields holds raw, possibly partial, entry input. Nil means the
	// field was not supplied.
	EntryFields struct {
		Category *string
		Amount   *decimal.Decimal
		Month    *string
	}

	// EntryPatch holds validated changes for an entry.
	EntryPatch struct {
		Category *Category
		Amount   *Money
		Month    *MonthLabel
	}
)

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsFederated reports whether the user can only sign in through Google.
func (u User) IsFederated() bool {
	return u.GoogleID != "" && u.PasswordHash == ""
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Email:    u.Email,
	}
}

// Validate checks the supplied fields in the order category, amount, month
// and returns the first failure.
func (f EntryFields) Validate() (EntryPatch, error) {
	var p EntryPatch
	if f.Category != nil {
		c, err := ParseCategory(*f.Category)
		if err != nil {
			return EntryPatch{}, err
		}
		p.Category = &c
	}
	if f.Amount != nil {
		m, err := MoneyFromDecimal(*f.Amount)
		if err != nil {
			return EntryPatch{}, err
		}
		p.Amount = &m
	}
	if f.Month != nil {
		ml, err := ParseMonthLabel(*f.Month)
		if err != nil {
			return EntryPatch{}, err
		}
		p.Month = &ml
	}
	return p, nil
}

// ValidateNew is Validate for creation: every field is required.
func (f EntryFields) ValidateNew() (EntryPatch, error) {
	switch {
	case f.Category == nil || strings.TrimSpace(*f.Category) == "":
		return EntryPatch{}, ErrInvalidCategory
	case f.Amount == nil:
		return EntryPatch{}, ErrInvalidAmount
	case f.Month == nil || strings.TrimSpace(*f.Month) == "":
		return EntryPatch{}, ErrInvalidMonth
	}
	return f.Validate()
}

func (p EntryPatch) Empty() bool {
	return p.Category == nil && p.Amount == nil && p.Month == nil
}

// Apply copies the patched fields onto e, keeping Month and Period in sync.
func (p EntryPatch) Apply(e *BudgetEntry) {
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Month != nil {
		e.Month = p.Month.String()
		e.Period = p.Month.Period()
	}
}
