package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/draft_store"
	"github.com/fintrack/fintrack/pkg/finance_api"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserId = "user-1"

var testNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

type wizardFixture struct {
	store  *draft_store.MemoryStore
	client *finance_api.ClientStub
	clock  *utils.MockClock
	wizard *Wizard
}

func newWizardFixture() wizardFixture {
	store := draft_store.NewMemoryStore()
	client := finance_api.NewClientStub()
	clock := &utils.MockClock{FixedNow: testNow}
	return wizardFixture{
		store:  store,
		client: client,
		clock:  clock,
		wizard: NewWizard(store, testUserId, NewSubmitter(client, clock)),
	}
}

// completeDraft passes validation on every step.
func completeDraft() Draft {
	d := NewDraft()
	d.PersonalInfo = PersonalInfo{FullName: "Asha Rao", PhoneNumber: "9876543210", Email: "asha@example.com", Dob: "1990-06-20"}
	d.EmploymentInfo = EmploymentInfo{Status: Employed, CompanyName: "Acme", MonthlySalary: amount("85000"), SalaryDate: intPtr(1)}
	d.BankAccounts = []BankAccount{
		{LocalId: "a1", BankName: "HDFC", AccountNumber: "123456789012", IfscCode: "HDFC0001234", AccountType: "Savings", IsPrimary: true},
		{LocalId: "a2", BankName: "SBI", AccountNumber: "987654321", IfscCode: "SBIN0004321", AccountType: "Current"},
	}
	d.CardDetails = []Card{
		{LocalId: "c1", CardType: CreditCard, CardNumber: "4111111111111111", CardHolderName: "ASHA RAO", BankName: "HDFC",
			ExpiryDate: "09/29", CreditLimit: amount("200000"), CurrentOutstanding: amount("1500"), DueDate: intPtr(5), BillingDate: intPtr(20)},
	}
	d.Budget.TotalBudget = amount("40000")
	d.Budget.SavingsGoal = amount("10000")
	d.Budget.Categories[0].Amount = decimal.NewFromInt(12000)
	d.Budget.Categories[2].Amount = decimal.NewFromInt(8000)
	return d
}

func (f wizardFixture) onReviewStep(t *testing.T, d Draft) {
	ctx := context.Background()
	require.NoError(t, draft_store.Set(ctx, f.store, testUserId, KeyData, d))
	require.NoError(t, draft_store.Set(ctx, f.store, testUserId, KeyStep, StepReview))
	require.NoError(t, draft_store.Set(ctx, f.store, testUserId, KeyCompleted, []Step{1, 2, 3, 4, 5}))
}

func TestWizard_Navigation(t *testing.T) {
	ctx := context.Background()

	t.Run("should start on the first step", func(t *testing.T) {
		f := newWizardFixture()

		p := f.wizard.Progress(ctx)

		assert.Equal(t, Progress{CurrentStep: StepPersonalInfo, CompletedSteps: []Step{}}, p)
	})

	t.Run("should not go back from the first step", func(t *testing.T) {
		f := newWizardFixture()

		p, err := f.wizard.Back(ctx)

		require.NoError(t, err)
		assert.Equal(t, StepPersonalInfo, p.CurrentStep)
	})

	t.Run("should complete steps in order and stay on review", func(t *testing.T) {
		// given
		f := newWizardFixture()

		// when
		var p Progress
		var newly bool
		var err error
		for i := 0; i < 6; i++ {
			p, newly, err = f.wizard.Next(ctx)
			require.NoError(t, err)
		}

		// then
		assert.True(t, newly)
		assert.Equal(t, StepReview, p.CurrentStep)
		assert.Equal(t, []Step{1, 2, 3, 4, 5, 6}, p.CompletedSteps)

		p, newly, err = f.wizard.Next(ctx)
		require.NoError(t, err)
		assert.False(t, newly)
		assert.Equal(t, StepReview, p.CurrentStep)
		assert.Len(t, p.CompletedSteps, 6)
	})

	t.Run("should keep completed steps when going back", func(t *testing.T) {
		f := newWizardFixture()
		_, _, _ = f.wizard.Next(ctx)
		_, _, _ = f.wizard.Next(ctx)

		p, err := f.wizard.Back(ctx)

		require.NoError(t, err)
		assert.Equal(t, StepEmployment, p.CurrentStep)
		assert.Equal(t, []Step{1, 2}, p.CompletedSteps)

		p, newly, err := f.wizard.Next(ctx)
		require.NoError(t, err)
		assert.False(t, newly)
		assert.Equal(t, StepBankAccounts, p.CurrentStep)
	})

	t.Run("should reject a jump to a step not reached", func(t *testing.T) {
		// given
		f := newWizardFixture()
		_, _, _ = f.wizard.Next(ctx)
		_, _, _ = f.wizard.Next(ctx)
		_, _ = f.wizard.Back(ctx)
		before := f.wizard.Progress(ctx)

		// when
		p, ok, err := f.wizard.JumpTo(ctx, StepBudget)

		// then
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, p)
		assert.Equal(t, before, f.wizard.Progress(ctx))
	})

	t.Run("should jump to completed or earlier steps", func(t *testing.T) {
		f := newWizardFixture()
		for i := 0; i < 3; i++ {
			_, _, _ = f.wizard.Next(ctx)
		}
		_, _ = f.wizard.Back(ctx)
		_, _ = f.wizard.Back(ctx)

		p, ok, err := f.wizard.JumpTo(ctx, StepBankAccounts)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, StepBankAccounts, p.CurrentStep)

		p, ok, err = f.wizard.JumpTo(ctx, StepPersonalInfo)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, StepPersonalInfo, p.CurrentStep)
	})

	t.Run("should edit any valid step", func(t *testing.T) {
		f := newWizardFixture()

		p, err := f.wizard.EditStep(ctx, StepCards)
		require.NoError(t, err)
		assert.Equal(t, StepCards, p.CurrentStep)

		_, err = f.wizard.EditStep(ctx, Step(7))
		assert.ErrorIs(t, err, ErrInvalidStep)
	})

	t.Run("should restart on the first step when the stored step is out of range", func(t *testing.T) {
		f := newWizardFixture()
		require.NoError(t, draft_store.Set(ctx, f.store, testUserId, KeyStep, 9))

		assert.Equal(t, StepPersonalInfo, f.wizard.Progress(ctx).CurrentStep)
	})
}

func TestWizard_Persistence(t *testing.T) {
	ctx := context.Background()

	t.Run("should restore draft and progress in a new wizard", func(t *testing.T) {
		// given
		f := newWizardFixture()
		d := completeDraft()
		require.NoError(t, f.wizard.saveDraft(ctx, d))
		for i := 0; i < 3; i++ {
			_, _, err := f.wizard.Next(ctx)
			require.NoError(t, err)
		}

		// when
		reloaded := NewWizard(f.store, testUserId, nil)

		// then
		want, err := json.Marshal(d)
		require.NoError(t, err)
		got, err := json.Marshal(reloaded.Draft(ctx))
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
		assert.Equal(t, Progress{CurrentStep: StepCards, CompletedSteps: []Step{1, 2, 3}}, reloaded.Progress(ctx))
	})

	t.Run("should fall back to a fresh draft when stored data is corrupt", func(t *testing.T) {
		f := newWizardFixture()
		require.NoError(t, f.store.Save(ctx, testUserId, KeyData, []byte("{not json")))

		d := f.wizard.Draft(ctx)

		assert.Empty(t, d.BankAccounts)
		assert.Len(t, d.Budget.Categories, 9)
	})

	t.Run("should keep users apart", func(t *testing.T) {
		f := newWizardFixture()
		_, _, _ = f.wizard.Next(ctx)
		other := NewWizard(f.store, "user-2", nil)

		assert.Equal(t, StepPersonalInfo, other.Progress(ctx).CurrentStep)
	})
}

func TestWizard_UpdateSection(t *testing.T) {
	ctx := context.Background()

	t.Run("should merge object sections field by field", func(t *testing.T) {
		// given
		f := newWizardFixture()
		_, err := f.wizard.UpdateSection(ctx, SectionPersonalInfo, json.RawMessage(`{"fullName":"Asha","email":"a@b.co"}`))
		require.NoError(t, err)

		// when
		d, err := f.wizard.UpdateSection(ctx, SectionPersonalInfo, json.RawMessage(`{"phoneNumber":"9876543210"}`))

		// then
		require.NoError(t, err)
		assert.Equal(t, PersonalInfo{FullName: "Asha", Email: "a@b.co", PhoneNumber: "9876543210"}, d.PersonalInfo)
		assert.Equal(t, d.PersonalInfo, f.wizard.Draft(ctx).PersonalInfo)
	})

	t.Run("should merge budget and keep categories", func(t *testing.T) {
		f := newWizardFixture()

		d, err := f.wizard.UpdateSection(ctx, SectionBudget, json.RawMessage(`{"totalBudget":30000}`))

		require.NoError(t, err)
		assert.True(t, d.Budget.TotalBudget.Decimal.Equal(decimal.NewFromInt(30000)))
		assert.Len(t, d.Budget.Categories, 9)
	})

	t.Run("should reseed categories when set to null", func(t *testing.T) {
		f := newWizardFixture()

		d, err := f.wizard.UpdateSection(ctx, SectionBudget, json.RawMessage(`{"categories":null}`))

		require.NoError(t, err)
		assert.Equal(t, DefaultCategories()[0].Name, d.Budget.Categories[0].Name)
	})

	t.Run("should replace list sections and fix primary flags", func(t *testing.T) {
		f := newWizardFixture()
		_, err := f.wizard.AddBankAccount(ctx, BankAccount{BankName: "HDFC"})
		require.NoError(t, err)

		d, err := f.wizard.UpdateSection(ctx, SectionBankAccounts,
			json.RawMessage(`[{"localId":"x1","bankName":"SBI","isPrimary":true},{"localId":"x2","bankName":"ICICI","isPrimary":true}]`))

		require.NoError(t, err)
		require.Len(t, d.BankAccounts, 2)
		assert.Equal(t, "x1", d.BankAccounts[0].LocalId)
		assert.Equal(t, []bool{true, false}, primaryFlags(d.BankAccounts))
	})

	t.Run("should clear a money field sent as an empty string", func(t *testing.T) {
		// given
		f := newWizardFixture()
		_, err := f.wizard.UpdateSection(ctx, SectionBudget, json.RawMessage(`{"totalBudget":"20000","savingsGoal":"5000"}`))
		require.NoError(t, err)

		// when
		d, err := f.wizard.UpdateSection(ctx, SectionBudget, json.RawMessage(`{"totalBudget":"","savingsGoal":" "}`))

		// then
		require.NoError(t, err)
		assert.False(t, d.Budget.TotalBudget.Valid)
		assert.False(t, d.Budget.SavingsGoal.Valid)
		assert.False(t, f.wizard.Draft(ctx).Budget.TotalBudget.Valid)
		assert.Equal(t, "Please enter a valid monthly budget", ValidateStep(StepBudget, f.wizard.Draft(ctx))["totalBudget"])
	})

	t.Run("should accept numeric strings and blanks in employment fields", func(t *testing.T) {
		// given
		f := newWizardFixture()

		// when
		d, err := f.wizard.UpdateSection(ctx, SectionEmploymentInfo,
			json.RawMessage(`{"status":"Employed","monthlySalary":"85000.50","salaryDate":"15"}`))

		// then
		require.NoError(t, err)
		assert.True(t, d.EmploymentInfo.MonthlySalary.Decimal.Equal(decimal.RequireFromString("85000.50")))
		require.NotNil(t, d.EmploymentInfo.SalaryDate)
		assert.Equal(t, 15, *d.EmploymentInfo.SalaryDate)

		d, err = f.wizard.UpdateSection(ctx, SectionEmploymentInfo, json.RawMessage(`{"monthlySalary":"","salaryDate":""}`))

		require.NoError(t, err)
		assert.False(t, d.EmploymentInfo.MonthlySalary.Valid)
		assert.Nil(t, d.EmploymentInfo.SalaryDate)
		assert.Equal(t, Employed, d.EmploymentInfo.Status)
	})

	t.Run("should accept numeric strings and blanks in cards and categories", func(t *testing.T) {
		f := newWizardFixture()

		d, err := f.wizard.UpdateSection(ctx, SectionCardDetails, json.RawMessage(
			`[{"localId":"c1","cardType":"Credit Card","creditLimit":"","currentOutstanding":"1500","billingDate":"20","dueDate":"5"}]`))
		require.NoError(t, err)
		require.Len(t, d.CardDetails, 1)
		assert.False(t, d.CardDetails[0].CreditLimit.Valid)
		assert.True(t, d.CardDetails[0].CurrentOutstanding.Decimal.Equal(decimal.NewFromInt(1500)))
		assert.Equal(t, intPtr(20), d.CardDetails[0].BillingDate)
		assert.Equal(t, intPtr(5), d.CardDetails[0].DueDate)

		d, err = f.wizard.UpdateSection(ctx, SectionBudget,
			json.RawMessage(`{"categories":[{"name":"Groceries","amount":"","color":"#10B981"},{"name":"Rent","amount":"900","color":"#000"}]}`))
		require.NoError(t, err)
		require.Len(t, d.Budget.Categories, 2)
		assert.True(t, d.Budget.Categories[0].Amount.IsZero())
		assert.True(t, d.Budget.Categories[1].Amount.Equal(decimal.NewFromInt(900)))
	})

	t.Run("should reject unknown section and malformed payload", func(t *testing.T) {
		f := newWizardFixture()

		_, err := f.wizard.UpdateSection(ctx, "consent", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrUnknownSection)

		_, err = f.wizard.UpdateSection(ctx, SectionCardDetails, json.RawMessage(`{"cardType":"x"}`))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestWizard_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("should require the review step", func(t *testing.T) {
		f := newWizardFixture()
		require.NoError(t, f.wizard.saveDraft(ctx, completeDraft()))

		_, _, err := f.wizard.Complete(ctx, true)

		assert.ErrorIs(t, err, ErrNotOnReviewStep)
		assert.Empty(t, f.client.Calls())
	})

	t.Run("should require consent", func(t *testing.T) {
		f := newWizardFixture()
		f.onReviewStep(t, completeDraft())

		_, _, err := f.wizard.Complete(ctx, false)

		assert.ErrorIs(t, err, ErrConsentRequired)
		assert.Empty(t, f.client.Calls())
	})

	t.Run("should refuse an over allocated budget", func(t *testing.T) {
		f := newWizardFixture()
		d := completeDraft()
		d.Budget.Categories[1].Amount = decimal.NewFromInt(25000)
		f.onReviewStep(t, d)

		_, _, err := f.wizard.Complete(ctx, true)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "Budget exceeded by 5000", validationErr.Fields["allocation"])
		assert.Empty(t, f.client.Calls())
	})

	t.Run("should submit in order and clear all state", func(t *testing.T) {
		// given
		f := newWizardFixture()
		f.onReviewStep(t, completeDraft())

		// when
		redirect, result, err := f.wizard.Complete(ctx, true)

		// then
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", redirect)
		assert.Equal(t, []string{"UpdateUser", "CreateBankAccount", "CreateBankAccount", "CreateCard", "CreateBudget"}, f.client.Operations())
		assert.Equal(t, []string{"user", "bank-account:a1", "bank-account:a2", "card:c1", "budget:2026-03"}, result.Executed)
		assert.Empty(t, result.Skipped)
		assert.Empty(t, f.store.Keys(testUserId))
	})

	t.Run("should stop on the first failure and keep the draft", func(t *testing.T) {
		// given
		f := newWizardFixture()
		d := completeDraft()
		f.onReviewStep(t, d)
		f.client.FailWhen(func(call finance_api.Call) error {
			if call.Operation == "UpdateUser" {
				return finance_api.ErrUnexpectedStatus
			}
			return nil
		})

		// when
		redirect, _, err := f.wizard.Complete(ctx, true)

		// then
		var submissionErr *SubmissionError
		require.ErrorAs(t, err, &submissionErr)
		assert.Equal(t, "user", submissionErr.Operation)
		assert.ErrorIs(t, err, finance_api.ErrUnexpectedStatus)
		assert.Empty(t, redirect)
		assert.Equal(t, []string{"UpdateUser"}, f.client.Operations())
		assert.Equal(t, StepReview, f.wizard.Progress(ctx).CurrentStep)
		assert.Equal(t, d.PersonalInfo, f.wizard.Draft(ctx).PersonalInfo)
	})

	t.Run("should skip already created resources on retry with the same keys", func(t *testing.T) {
		// given
		f := newWizardFixture()
		f.onReviewStep(t, completeDraft())
		f.client.FailWhen(func(call finance_api.Call) error {
			if call.Operation == "CreateCard" {
				return errors.New("connection reset")
			}
			return nil
		})
		_, _, err := f.wizard.Complete(ctx, true)
		require.Error(t, err)
		firstKeys := map[string]string{}
		for _, call := range f.client.Calls() {
			firstKeys[call.Operation] = call.IdempotencyKey
		}
		f.client.Reset()

		// when
		_, result, err := f.wizard.Complete(ctx, true)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"user", "bank-account:a1", "bank-account:a2"}, result.Skipped)
		assert.Equal(t, []string{"card:c1", "budget:2026-03"}, result.Executed)
		assert.Equal(t, []string{"CreateCard", "CreateBudget"}, f.client.Operations())
		assert.Equal(t, firstKeys["CreateCard"], f.client.Calls()[0].IdempotencyKey)
	})

	t.Run("should use new keys when onboarding again after completion", func(t *testing.T) {
		// given
		f := newWizardFixture()
		f.onReviewStep(t, completeDraft())
		_, _, err := f.wizard.Complete(ctx, true)
		require.NoError(t, err)
		firstKeys := map[string]string{}
		for _, call := range f.client.Calls() {
			firstKeys[call.Operation] = call.IdempotencyKey
		}
		f.client.Reset()
		f.onReviewStep(t, completeDraft())

		// when
		_, result, err := f.wizard.Complete(ctx, true)

		// then
		require.NoError(t, err)
		assert.Empty(t, result.Skipped)
		for _, call := range f.client.Calls() {
			assert.NotEqual(t, firstKeys[call.Operation], call.IdempotencyKey, call.Operation)
		}
		assert.Empty(t, f.store.Keys(testUserId))
	})

	t.Run("should file the budget under the month of the retry", func(t *testing.T) {
		// given
		f := newWizardFixture()
		f.onReviewStep(t, completeDraft())
		f.client.FailWhen(func(call finance_api.Call) error {
			if call.Operation == "CreateBudget" {
				return finance_api.ErrUnexpectedStatus
			}
			return nil
		})
		_, _, err := f.wizard.Complete(ctx, true)
		require.Error(t, err)
		f.client.Reset()
		f.clock.Advance(31 * 24 * time.Hour)

		// when
		_, result, err := f.wizard.Complete(ctx, true)

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"budget:2026-04"}, result.Executed)
		budget := f.client.Calls()[0].Body.(finance_api.Budget)
		assert.Equal(t, "2026-04", budget.MonthYear)
	})
}

func TestWizard_Reset(t *testing.T) {
	ctx := context.Background()
	f := newWizardFixture()
	f.onReviewStep(t, completeDraft())
	require.NoError(t, draft_store.Set(ctx, f.store, testUserId, KeySubmitted, []string{"user"}))
	require.NoError(t, draft_store.Set(ctx, f.store, testUserId, KeyAttempt, "attempt-1"))

	require.NoError(t, f.wizard.Reset(ctx))

	assert.Empty(t, f.store.Keys(testUserId))
	assert.Equal(t, Progress{CurrentStep: StepPersonalInfo, CompletedSteps: []Step{}}, f.wizard.Progress(ctx))
}
