package finance_api

import (
	"github.com/shopspring/decimal"
)

// Amount is a decimal that is always written as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// AmountPtr returns nil for an invalid NullDecimal so that omitempty drops the field.
func AmountPtr(d decimal.NullDecimal) *Amount {
	if !d.Valid {
		return nil
	}
	a := NewAmount(d.Decimal)
	return &a
}

type PersonalInfo struct {
	FullName     string `json:"full_name"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email"`
	Dob          string `json:"dob,omitempty"`
	Gender       string `json:"gender,omitempty"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
}

type EmploymentInfo struct {
	Status        string `json:"status"`
	CompanyName   string `json:"company_name,omitempty"`
	MonthlySalary Amount `json:"monthly_salary"`
	SalaryDate    *int   `json:"salary_date,omitempty"`
}

type UserUpdate struct {
	PersonalInfo        PersonalInfo   `json:"personal_info"`
	EmploymentInfo      EmploymentInfo `json:"employment_info"`
	OnboardingCompleted bool           `json:"onboarding_completed"`
}

type BankAccount struct {
	UserId        string `json:"userId"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	IfscCode      string `json:"ifscCode"`
	AccountType   string `json:"accountType"`
	BranchName    string `json:"branchName"`
	IsPrimary     bool   `json:"isPrimary"`
}

type Card struct {
	UserId             string  `json:"userId"`
	CardType           string  `json:"cardType"`
	CardNumber         string  `json:"cardNumber"`
	CardHolderName     string  `json:"cardHolderName"`
	BankName           string  `json:"bankName"`
	ExpiryDate         string  `json:"expiryDate"`
	CardProvider       string  `json:"cardProvider"`
	CreditLimit        *Amount `json:"creditLimit,omitempty"`
	CurrentOutstanding Amount  `json:"currentOutstanding"`
	BillingDate        *int    `json:"billingDate,omitempty"`
	DueDate            *int    `json:"dueDate,omitempty"`
	DailyLimit         *Amount `json:"dailyLimit,omitempty"`
}

type Budget struct {
	UserId      string            `json:"userId"`
	MonthYear   string            `json:"monthYear"`
	TotalBudget Amount            `json:"totalBudget"`
	SavingsGoal Amount            `json:"savingsGoal"`
	Categories  map[string]Amount `json:"categories"`
}
