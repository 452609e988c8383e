package onboarding

import (
	"github.com/shopspring/decimal"
)

// Draft store keys, all under the user's namespace.
const (
	KeyStep      = "onboarding_step"
	KeyCompleted = "onboarding_completed"
	KeyData      = "onboarding_data"
	KeySubmitted = "onboarding_submitted"
	KeyAttempt   = "onboarding_attempt"
)

type EmploymentStatus string

const (
	Employed     EmploymentStatus = "Employed"
	SelfEmployed EmploymentStatus = "Self-Employed"
	Unemployed   EmploymentStatus = "Unemployed"
	Student      EmploymentStatus = "Student"
)

// RequiresCompany reports whether the status needs a company name.
func (s EmploymentStatus) RequiresCompany() bool {
	return s == Employed || s == SelfEmployed
}

func (s EmploymentStatus) Known() bool {
	switch s {
	case Employed, SelfEmployed, Unemployed, Student:
		return true
	}
	return false
}

type CardType string

const (
	CreditCard CardType = "Credit Card"
	DebitCard  CardType = "Debit Card"
)

type PersonalInfo struct {
	FullName     string `json:"fullName,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Email        string `json:"email,omitempty"`
	Dob          string `json:"dob,omitempty"` // YYYY-MM-DD
	Gender       string `json:"gender,omitempty"`
	ProfilePhoto string `json:"profilePhoto,omitempty"` // data URL
}

type EmploymentInfo struct {
	Status        EmploymentStatus    `json:"status,omitempty"`
	CompanyName   string              `json:"companyName,omitempty"`
	MonthlySalary decimal.NullDecimal `json:"monthlySalary"`
	SalaryDate    *int                `json:"salaryDate,omitempty"`
}

// IsEmpty reports whether the employment step produced no data at all.
func (e EmploymentInfo) IsEmpty() bool {
	return e.Status == "" && e.CompanyName == "" && !e.MonthlySalary.Valid && e.SalaryDate == nil
}

type BankAccount struct {
	LocalId       string `json:"localId"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	IfscCode      string `json:"ifscCode"`
	AccountType   string `json:"accountType"`
	BranchName    string `json:"branchName"`
	IsPrimary     bool   `json:"isPrimary"`
}

type Card struct {
	LocalId            string              `json:"localId"`
	CardType           CardType            `json:"cardType"`
	CardNumber         string              `json:"cardNumber"`
	CardHolderName     string              `json:"cardHolderName"`
	BankName           string              `json:"bankName"`
	ExpiryDate         string              `json:"expiryDate"` // MM/YY
	CreditLimit        decimal.NullDecimal `json:"creditLimit"`
	CurrentOutstanding decimal.NullDecimal `json:"currentOutstanding"`
	BillingDate        *int                `json:"billingDate,omitempty"`
	DueDate            *int                `json:"dueDate,omitempty"`
	DailyLimit         decimal.NullDecimal `json:"dailyLimit"`
}

type Category struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Color  string          `json:"color"`
}

type Budget struct {
	TotalBudget decimal.NullDecimal `json:"totalBudget"`
	SavingsGoal decimal.NullDecimal `json:"savingsGoal"`
	Categories  []Category          `json:"categories"`
}

// Draft is everything entered so far, one slice per step.
type Draft struct {
	PersonalInfo   PersonalInfo   `json:"personalInfo"`
	EmploymentInfo EmploymentInfo `json:"employmentInfo"`
	BankAccounts   []BankAccount  `json:"bankAccounts"`
	CardDetails    []Card         `json:"cardDetails"`
	Budget         Budget         `json:"budget"`
}

func NewDraft() Draft {
	d := Draft{}
	d.normalize()
	return d
}

// normalize fills absent lists so a loaded draft looks like a fresh one.
func (d *Draft) normalize() {
	if d.BankAccounts == nil {
		d.BankAccounts = []BankAccount{}
	}
	if d.CardDetails == nil {
		d.CardDetails = []Card{}
	}
	if d.Budget.Categories == nil {
		d.Budget.Categories = DefaultCategories()
	}
}

// Progress is the wizard position.
type Progress struct {
	CurrentStep    Step   `json:"currentStep"`
	CompletedSteps []Step `json:"completedSteps"`
}

func (p Progress) IsCompleted(step Step) bool {
	for _, s := range p.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}
