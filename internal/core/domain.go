package core

import (
	"regexp"
	"strings"
	"time"
)

type (
	// TransactionType tells expenses and income apart. Categories carry the
	// same type and a transaction may only use a category of its own type.
	TransactionType string

	// UserStatus tracks onboarding. A user is New until the first monthly
	// goal is set. Nothing currently moves a user to Inactive; the value
	// exists so stored rows round-trip.
	UserStatus string
)

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"

	StatusNew      UserStatus = "new"
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

// ParseTransactionType normalizes a type coming from outside the process.
// The intent provider answers in Portuguese ("gasto"/"receita"), the API in
// English; both map onto the two domain types.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "gasto":
		return TypeExpense, nil
	case "income", "receita":
		return TypeIncome, nil
	default:
		return "", ErrInvalidType
	}
}

// ParseUserStatus validates a stored status value.
func ParseUserStatus(s string) (UserStatus, error) {
	switch UserStatus(s) {
	case StatusNew, StatusActive, StatusInactive:
		return UserStatus(s), nil
	default:
		return "", ErrInvalidType
	}
}

var (
	phonePattern = regexp.MustCompile(`^\d{10,15}$`)
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Category is a named, typed bucket for transactions. UserID zero means the
// category is a global default shared by everyone.
type Category struct {
	ID     int64
	Name   string
	Icon   string
	Color  string
	Type   TransactionType
	UserID int64
}

// NewCategory validates and builds a category.
func NewCategory(name, icon, color string, typ TransactionType, userID int64) (Category, error) {
	if len(name) < 2 {
		return Category{}, ErrNameTooShort
	}
	if !colorPattern.MatchString(color) {
		return Category{}, ErrInvalidColor
	}
	if typ != TypeExpense && typ != TypeIncome {
		return Category{}, ErrInvalidType
	}
	return Category{Name: name, Icon: icon, Color: color, Type: typ, UserID: userID}, nil
}

// IsDefault reports whether the category is a global default.
func (c Category) IsDefault() bool {
	return c.UserID == 0
}

// Transaction is an immutable, dated financial event. There is no update or
// delete; the ledger is append-only.
type Transaction struct {
	ID             int64
	UserID         int64
	Description    string
	Amount         Money
	Type           TransactionType
	Category       Category
	Date           time.Time
	AutoRegistered bool
}

// NewTransaction validates and builds a transaction. The category's type must
// match the transaction's type; that invariant is enforced here, at
// construction, not left to callers.
func NewTransaction(userID int64, description string, amount Money, typ TransactionType, category Category, autoRegistered bool, now time.Time) (Transaction, error) {
	if userID <= 0 {
		return Transaction{}, ErrMissingUser
	}
	if len(strings.TrimSpace(description)) < 3 {
		return Transaction{}, ErrDescriptionTooShort
	}
	if amount.Cents <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if typ != TypeExpense && typ != TypeIncome {
		return Transaction{}, ErrInvalidType
	}
	if category.Type != typ {
		return Transaction{}, ErrCategoryTypeMismatch
	}
	return Transaction{
		UserID:         userID,
		Description:    description,
		Amount:         amount,
		Type:           typ,
		Category:       category,
		Date:           now,
		AutoRegistered: autoRegistered,
	}, nil
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// User is a chat identity with onboarding state and an optional monthly
// spending goal. Values are immutable: WithGoal returns a new User.
type User struct {
	ID          int64
	Phone       string
	Name        string
	Status      UserStatus
	MonthlyGoal *Money
	CreatedAt   time.Time
}

// NewUser validates and builds a user in status New. Phone must already be
// normalized (transport suffix stripped, digits only).
func NewUser(phone, name string, now time.Time) (User, error) {
	if !phonePattern.MatchString(phone) {
		return User{}, ErrInvalidPhone
	}
	if len(name) < 2 {
		return User{}, ErrNameTooShort
	}
	return User{Phone: phone, Name: name, Status: StatusNew, CreatedAt: now}, nil
}

// WithGoal returns a copy of the user with the monthly goal set. Setting the
// first goal activates a New user; see statusAfterGoal.
func (u User) WithGoal(goal Money) (User, error) {
	if goal.Cents <= 0 {
		return User{}, ErrInvalidGoal
	}
	next := u
	g := goal
	next.MonthlyGoal = &g
	next.Status = statusAfterGoal(u.Status)
	return next, nil
}

// statusAfterGoal is the status transition rule for goal setting, kept as a
// pure function so it can be tested on its own.
func statusAfterGoal(s UserStatus) UserStatus {
	if s == StatusNew {
		return StatusActive
	}
	return s
}

// IsNew reports whether the user still needs first-contact onboarding.
func (u User) IsNew() bool {
	return u.Status == StatusNew
}

// CanReceiveAlerts holds iff the user is active and has a goal set.
func (u User) CanReceiveAlerts() bool {
	return u.Status == StatusActive && u.MonthlyGoal != nil
}
