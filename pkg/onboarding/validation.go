package onboarding

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var ErrUnknownField = errors.New("unknown field")

// FieldContext carries what a rule needs beyond the value itself.
type FieldContext struct {
	EmploymentStatus EmploymentStatus `json:"employmentStatus,omitempty"`
	CardType         CardType         `json:"cardType,omitempty"`
}

// FieldRule returns an error message for value, or "" when it is valid.
type FieldRule func(value string, fc FieldContext) string

type RuleSet map[string]FieldRule

// FieldErrors maps a field key to its message. List items use "<localId>-<field>" keys.
type FieldErrors map[string]string

// Err returns a *ValidationError when there is at least one error.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("validation failed: %s", strings.Join(keys, ", "))
}

var (
	phoneRe         = regexp.MustCompile(`^\d{10}$`)
	emailRe         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	accountNumberRe = regexp.MustCompile(`^\d{9,18}$`)
	ifscRe          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	cardExpiryRe    = regexp.MustCompile(`^(0[1-9]|1[0-2])\/?([0-9]{2})$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	patterns := map[string]*regexp.Regexp{
		"phone10":        phoneRe,
		"simple_email":   emailRe,
		"account_number": accountNumberRe,
		"ifsc":           ifscRe,
		"card_expiry":    cardExpiryRe,
	}
	for tag, re := range patterns {
		mustRegister(v, tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
	}
	mustRegister(v, "positive_amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && d.IsPositive()
	})
	mustRegister(v, "non_negative_amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && !d.IsNegative()
	})
	mustRegister(v, "day_of_month", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
		return err == nil && n >= 1 && n <= 31
	})
	return v
}

// mustRegister panics when a custom tag cannot be registered.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register validation %q: %v", tag, err))
	}
}

func passes(value, tags string) bool {
	return validate.Var(value, tags) == nil
}

func rule(tags, message string) FieldRule {
	return func(value string, _ FieldContext) string {
		if !passes(value, tags) {
			return message
		}
		return ""
	}
}

func requiredThen(tags, missing, invalid string) FieldRule {
	return func(value string, _ FieldContext) string {
		if value == "" {
			return missing
		}
		if !passes(value, tags) {
			return invalid
		}
		return ""
	}
}

var personalInfoRules = RuleSet{
	"fullName":    rule("min=3", "Name must be at least 3 characters"),
	"phoneNumber": rule("phone10", "Phone number must be exactly 10 digits"),
	"email":       rule("simple_email", "Invalid email address"),
}

var employmentRules = RuleSet{
	"status":        rule("required,oneof=Employed Self-Employed Unemployed Student", "Employment status is required"),
	"monthlySalary": rule("positive_amount", "Valid income is required"),
	"companyName": func(value string, fc FieldContext) string {
		if fc.EmploymentStatus.RequiresCompany() && !passes(value, "min=2") {
			return "Company name is required"
		}
		return ""
	},
	"salaryDate": func(value string, fc FieldContext) string {
		if fc.EmploymentStatus != Unemployed && !passes(value, "day_of_month") {
			return "Valid date (1-31) required"
		}
		return ""
	},
}

var bankAccountRules = RuleSet{
	"bankName":      rule("required", "Select a bank"),
	"accountNumber": requiredThen("account_number", "Account Number is required", "Invalid Account Number (9-18 digits)"),
	"ifscCode":      requiredThen("ifsc", "IFSC Code is required", "Invalid IFSC Code format"),
}

var cardRules = RuleSet{
	"cardNumber":     rule("min=16", "Enter valid 16-digit number"),
	"cardHolderName": rule("required", "Required"),
	"bankName":       rule("required", "Required"),
	"expiryDate":     rule("card_expiry", "Format MM/YY"),
	"creditLimit": func(value string, fc FieldContext) string {
		if fc.CardType == CreditCard && !passes(value, "positive_amount") {
			return "Required"
		}
		return ""
	},
	"dueDate": func(value string, fc FieldContext) string {
		if fc.CardType == CreditCard && value == "" {
			return "Required"
		}
		return ""
	},
}

var budgetRules = RuleSet{
	"totalBudget": rule("positive_amount", "Please enter a valid monthly budget"),
	"savingsGoal": func(value string, _ FieldContext) string {
		if value != "" && !passes(value, "non_negative_amount") {
			return "Savings goal cannot be negative"
		}
		return ""
	},
}

var stepRules = map[Step]RuleSet{
	StepPersonalInfo: personalInfoRules,
	StepEmployment:   employmentRules,
	StepBankAccounts: bankAccountRules,
	StepCards:        cardRules,
	StepBudget:       budgetRules,
}

// ValidateField runs the rule for one field, as done when a field loses focus.
func ValidateField(step Step, field, value string, fc FieldContext) (string, error) {
	r, ok := stepRules[step][field]
	if !ok {
		return "", fmt.Errorf("%w: %q on step %d", ErrUnknownField, field, step)
	}
	return r(value, fc), nil
}

func apply(errs FieldErrors, rules RuleSet, prefix string, values map[string]string, fc FieldContext) {
	for field, r := range rules {
		if msg := r(values[field], fc); msg != "" {
			errs[prefix+field] = msg
		}
	}
}

// ValidateStep checks every field of step's draft slice. The review step has no fields.
func ValidateStep(step Step, d Draft) FieldErrors {
	errs := FieldErrors{}
	switch step {
	case StepPersonalInfo:
		p := d.PersonalInfo
		apply(errs, personalInfoRules, "", map[string]string{
			"fullName":    p.FullName,
			"phoneNumber": p.PhoneNumber,
			"email":       p.Email,
		}, FieldContext{})
	case StepEmployment:
		e := d.EmploymentInfo
		apply(errs, employmentRules, "", map[string]string{
			"status":        string(e.Status),
			"companyName":   e.CompanyName,
			"monthlySalary": nullDecimalString(e.MonthlySalary),
			"salaryDate":    intString(e.SalaryDate),
		}, FieldContext{EmploymentStatus: e.Status})
	case StepBankAccounts:
		if len(d.BankAccounts) == 0 {
			errs[SectionBankAccounts] = "Add at least one bank account"
		}
		for _, a := range d.BankAccounts {
			apply(errs, bankAccountRules, a.LocalId+"-", map[string]string{
				"bankName":      a.BankName,
				"accountNumber": a.AccountNumber,
				"ifscCode":      a.IfscCode,
			}, FieldContext{})
		}
	case StepCards:
		for _, c := range d.CardDetails {
			apply(errs, cardRules, c.LocalId+"-", map[string]string{
				"cardNumber":     c.CardNumber,
				"cardHolderName": c.CardHolderName,
				"bankName":       c.BankName,
				"expiryDate":     c.ExpiryDate,
				"creditLimit":    nullDecimalString(c.CreditLimit),
				"dueDate":        intString(c.DueDate),
			}, FieldContext{CardType: c.CardType})
		}
	case StepBudget:
		b := d.Budget
		apply(errs, budgetRules, "", map[string]string{
			"totalBudget": nullDecimalString(b.TotalBudget),
			"savingsGoal": nullDecimalString(b.SavingsGoal),
		}, FieldContext{})
		for i, c := range b.Categories {
			if c.Amount.IsNegative() {
				errs[fmt.Sprintf("categories-%d", i)] = "Amount cannot be negative"
			}
		}
		if _, ok := errs["totalBudget"]; !ok {
			if msg := allocationError(b); msg != "" {
				errs["allocation"] = msg
			}
		}
	}
	return errs
}

func allocationError(b Budget) string {
	if over, exceeded := b.Exceeded(); exceeded {
		return fmt.Sprintf("Budget exceeded by %s", over.String())
	}
	return ""
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func intString(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
