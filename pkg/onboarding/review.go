package onboarding

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReviewPersonalInfo struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Dob         string `json:"dob,omitempty"`
	Age         *int   `json:"age,omitempty"`
}

type ReviewEmployment struct {
	Status        EmploymentStatus `json:"status"`
	CompanyName   string           `json:"companyName,omitempty"`
	MonthlySalary *decimal.Decimal `json:"monthlySalary,omitempty"`
}

type ReviewBankAccount struct {
	LocalId     string `json:"localId"`
	BankName    string `json:"bankName"`
	AccountType string `json:"accountType"`
	Last4       string `json:"last4"`
	IsPrimary   bool   `json:"isPrimary"`
}

type ReviewCard struct {
	LocalId      string   `json:"localId"`
	CardType     CardType `json:"cardType"`
	BankName     string   `json:"bankName"`
	CardProvider string   `json:"cardProvider"`
	Last4        string   `json:"last4"`
}

type ReviewBudget struct {
	TotalBudget          decimal.Decimal `json:"totalBudget"`
	SavingsGoal          decimal.Decimal `json:"savingsGoal"`
	Allocated            decimal.Decimal `json:"allocated"`
	Remaining            decimal.Decimal `json:"remaining"`
	ConfiguredCategories int             `json:"configuredCategories"`
}

// Review is the summary shown on the last step. Card and account numbers are reduced to their
// last four digits.
type Review struct {
	PersonalInfo ReviewPersonalInfo  `json:"personalInfo"`
	Employment   ReviewEmployment    `json:"employment"`
	BankAccounts []ReviewBankAccount `json:"bankAccounts"`
	Cards        []ReviewCard        `json:"cards"`
	Budget       ReviewBudget        `json:"budget"`
}

func BuildReview(d Draft, now time.Time) Review {
	r := Review{
		PersonalInfo: ReviewPersonalInfo{
			FullName:    d.PersonalInfo.FullName,
			Email:       d.PersonalInfo.Email,
			PhoneNumber: d.PersonalInfo.PhoneNumber,
			Dob:         d.PersonalInfo.Dob,
		},
		Employment:   ReviewEmployment{Status: d.EmploymentInfo.Status},
		BankAccounts: make([]ReviewBankAccount, 0, len(d.BankAccounts)),
		Cards:        make([]ReviewCard, 0, len(d.CardDetails)),
		Budget: ReviewBudget{
			TotalBudget:          d.Budget.Total(),
			SavingsGoal:          orZero(d.Budget.SavingsGoal),
			Allocated:            d.Budget.Allocated(),
			Remaining:            d.Budget.Remaining(),
			ConfiguredCategories: len(d.Budget.ConfiguredCategories()),
		},
	}
	if age, ok := Age(d.PersonalInfo.Dob, now); ok {
		r.PersonalInfo.Age = &age
	}
	if e := d.EmploymentInfo; e.Status != Unemployed && e.Status != Student {
		r.Employment.CompanyName = e.CompanyName
		if e.MonthlySalary.Valid {
			salary := e.MonthlySalary.Decimal
			r.Employment.MonthlySalary = &salary
		}
	}
	for _, a := range d.BankAccounts {
		r.BankAccounts = append(r.BankAccounts, ReviewBankAccount{
			LocalId:     a.LocalId,
			BankName:    a.BankName,
			AccountType: a.AccountType,
			Last4:       Last4(a.AccountNumber),
			IsPrimary:   a.IsPrimary,
		})
	}
	for _, c := range d.CardDetails {
		r.Cards = append(r.Cards, ReviewCard{
			LocalId:      c.LocalId,
			CardType:     c.CardType,
			BankName:     c.BankName,
			CardProvider: CardProvider(c.CardNumber),
			Last4:        Last4(c.CardNumber),
		})
	}
	return r
}

// Age returns the completed years between a YYYY-MM-DD birth date and now.
func Age(dob string, now time.Time) (int, bool) {
	born, err := time.Parse(time.DateOnly, dob)
	if err != nil || born.After(now) {
		return 0, false
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, true
}
