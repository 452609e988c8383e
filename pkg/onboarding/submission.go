package onboarding

import (
	"context"
	"fmt"

	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/finance_api"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const DashboardPath = "/dashboard"

// idempotencyNamespace scopes the name-based UUIDs sent as Idempotency-Key.
var idempotencyNamespace = uuid.MustParse("8c1f6a52-4f7e-4d0b-9a63-0e2b7d4c91a5")

// IdempotencyKey is stable for a given user, submission attempt and operation, so a replayed request
// carries the same key while a new onboarding after a reset does not.
func IdempotencyKey(userId, attempt, operationKey string) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(userId+"\x00"+attempt+"\x00"+operationKey)).String()
}

// Operation is one backend call of a submission. Key identifies it in the submission ledger.
type Operation struct {
	Key  string
	call func(ctx context.Context, client finance_api.Client, idempotencyKey string) error
}

// SubmissionError reports the operation that stopped a submission.
type SubmissionError struct {
	Operation string
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed at %s: %v", e.Operation, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

type SubmissionResult struct {
	Executed []string
	Skipped  []string
}

type Submitter struct {
	client finance_api.Client
	clock  utils.Clock
}

func NewSubmitter(client finance_api.Client, clock utils.Clock) *Submitter {
	return &Submitter{client: client, clock: clock}
}

// Plan lists the calls that materialize d, in the order they must run: user update, bank
// accounts, cards, then the budget when a total is set.
func (s *Submitter) Plan(userId string, d Draft) []Operation {
	ops := []Operation{userOperation(userId, d)}
	for _, a := range d.BankAccounts {
		ops = append(ops, bankAccountOperation(userId, a))
	}
	for _, c := range d.CardDetails {
		ops = append(ops, cardOperation(userId, c))
	}
	if d.Budget.TotalBudget.Valid {
		ops = append(ops, budgetOperation(userId, d.Budget, s.clock.Now().Format("2006-01")))
	}
	return ops
}

// Submit runs the plan one call at a time. Operations whose key is in done are skipped; after each
// successful call onDone is told its key. The first failing call stops the run and nothing already
// created is rolled back. attempt must stay the same across retries of one onboarding.
func (s *Submitter) Submit(ctx context.Context, userId, attempt string, d Draft, done map[string]bool,
	onDone func(key string)) (SubmissionResult, error) {
	result := SubmissionResult{}
	for _, op := range s.Plan(userId, d) {
		if done[op.Key] {
			log.Debugf("skipping %s for user %s, already submitted", op.Key, userId)
			result.Skipped = append(result.Skipped, op.Key)
			continue
		}
		if err := op.call(ctx, s.client, IdempotencyKey(userId, attempt, op.Key)); err != nil {
			log.Errorf("onboarding submission for user %s failed at %s: %v", userId, op.Key, err)
			return result, &SubmissionError{Operation: op.Key, Err: err}
		}
		result.Executed = append(result.Executed, op.Key)
		if onDone != nil {
			onDone(op.Key)
		}
	}
	return result, nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func userOperation(userId string, d Draft) Operation {
	p := d.PersonalInfo
	update := finance_api.UserUpdate{
		PersonalInfo: finance_api.PersonalInfo{
			FullName:     p.FullName,
			PhoneNumber:  p.PhoneNumber,
			Email:        p.Email,
			Dob:          p.Dob,
			Gender:       p.Gender,
			ProfilePhoto: p.ProfilePhoto,
		},
		EmploymentInfo: finance_api.EmploymentInfo{
			Status:        string(Unemployed),
			MonthlySalary: finance_api.NewAmount(decimal.Zero),
		},
		OnboardingCompleted: true,
	}
	if e := d.EmploymentInfo; !e.IsEmpty() {
		update.EmploymentInfo = finance_api.EmploymentInfo{
			Status:        string(e.Status),
			CompanyName:   e.CompanyName,
			MonthlySalary: finance_api.NewAmount(orZero(e.MonthlySalary)),
			SalaryDate:    e.SalaryDate,
		}
	}
	return Operation{
		Key: "user",
		call: func(ctx context.Context, client finance_api.Client, key string) error {
			return client.UpdateUser(ctx, userId, update, key)
		},
	}
}

func bankAccountOperation(userId string, a BankAccount) Operation {
	accountType := a.AccountType
	if accountType == "" {
		accountType = defaultAccountType
	}
	body := finance_api.BankAccount{
		UserId:        userId,
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		IfscCode:      a.IfscCode,
		AccountType:   accountType,
		BranchName:    a.BranchName,
		IsPrimary:     a.IsPrimary,
	}
	return Operation{
		Key: "bank-account:" + a.LocalId,
		call: func(ctx context.Context, client finance_api.Client, key string) error {
			return client.CreateBankAccount(ctx, body, key)
		},
	}
}

func cardOperation(userId string, c Card) Operation {
	body := finance_api.Card{
		UserId:             userId,
		CardType:           string(c.CardType),
		CardNumber:         c.CardNumber,
		CardHolderName:     c.CardHolderName,
		BankName:           c.BankName,
		ExpiryDate:         c.ExpiryDate,
		CardProvider:       CardProvider(c.CardNumber),
		CurrentOutstanding: finance_api.NewAmount(orZero(c.CurrentOutstanding)),
	}
	switch c.CardType {
	case CreditCard:
		body.CreditLimit = finance_api.AmountPtr(c.CreditLimit)
		body.BillingDate = c.BillingDate
		body.DueDate = c.DueDate
	case DebitCard:
		body.DailyLimit = finance_api.AmountPtr(c.DailyLimit)
	}
	return Operation{
		Key: "card:" + c.LocalId,
		call: func(ctx context.Context, client finance_api.Client, key string) error {
			return client.CreateCard(ctx, body, key)
		},
	}
}

func budgetOperation(userId string, b Budget, monthYear string) Operation {
	categories := make(map[string]finance_api.Amount)
	for name, amount := range b.ConfiguredCategories() {
		categories[name] = finance_api.NewAmount(amount)
	}
	body := finance_api.Budget{
		UserId:      userId,
		MonthYear:   monthYear,
		TotalBudget: finance_api.NewAmount(b.Total()),
		SavingsGoal: finance_api.NewAmount(orZero(b.SavingsGoal)),
		Categories:  categories,
	}
	return Operation{
		Key: "budget:" + monthYear,
		call: func(ctx context.Context, client finance_api.Client, key string) error {
			return client.CreateBudget(ctx, body, key)
		},
	}
}
