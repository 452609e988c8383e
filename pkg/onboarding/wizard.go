package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fintrack/fintrack/pkg/draft_store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUnknownSection   = errors.New("unknown draft section")
	ErrInvalidPayload   = errors.New("invalid section payload")
	ErrInvalidStep      = errors.New("invalid step")
	ErrNotOnReviewStep  = errors.New("onboarding can only be completed from the review step")
	ErrConsentRequired  = errors.New("consent to the terms and privacy policy is required")
	ErrStepNotReachable = errors.New("step has not been reached yet")
)

// Wizard is the onboarding state machine of one user. It reads and writes through the draft store
// on every call and holds no state of its own; callers serialize access per user.
type Wizard struct {
	store     draft_store.Store
	userId    string
	submitter *Submitter
}

func NewWizard(store draft_store.Store, userId string, submitter *Submitter) *Wizard {
	return &Wizard{store: store, userId: userId, submitter: submitter}
}

func (w *Wizard) Progress(ctx context.Context) Progress {
	step := draft_store.Get(ctx, w.store, w.userId, KeyStep, FirstStep)
	if !step.Valid() {
		log.Warnf("stored step %d for user %s is out of range, restarting at step %d", step, w.userId, FirstStep)
		step = FirstStep
	}
	completed := draft_store.Get(ctx, w.store, w.userId, KeyCompleted, []Step{})
	if completed == nil {
		completed = []Step{}
	}
	return Progress{CurrentStep: step, CompletedSteps: completed}
}

func (w *Wizard) Draft(ctx context.Context) Draft {
	d := draft_store.Get(ctx, w.store, w.userId, KeyData, NewDraft())
	d.normalize()
	return d
}

func (w *Wizard) saveStep(ctx context.Context, step Step) error {
	return draft_store.Set(ctx, w.store, w.userId, KeyStep, step)
}

func (w *Wizard) saveDraft(ctx context.Context, d Draft) error {
	return draft_store.Set(ctx, w.store, w.userId, KeyData, d)
}

// Next marks the current step completed and moves forward; on the last step only the completion
// is recorded. The caller validates the step first.
func (w *Wizard) Next(ctx context.Context) (Progress, bool, error) {
	p := w.Progress(ctx)
	newlyCompleted := !p.IsCompleted(p.CurrentStep)
	if newlyCompleted {
		p.CompletedSteps = append(p.CompletedSteps, p.CurrentStep)
		sort.Slice(p.CompletedSteps, func(i, j int) bool { return p.CompletedSteps[i] < p.CompletedSteps[j] })
		if err := draft_store.Set(ctx, w.store, w.userId, KeyCompleted, p.CompletedSteps); err != nil {
			return p, false, err
		}
	}
	if p.CurrentStep < LastStep {
		p.CurrentStep++
		if err := w.saveStep(ctx, p.CurrentStep); err != nil {
			return p, newlyCompleted, err
		}
	}
	return p, newlyCompleted, nil
}

func (w *Wizard) Back(ctx context.Context) (Progress, error) {
	p := w.Progress(ctx)
	if p.CurrentStep > FirstStep {
		p.CurrentStep--
		if err := w.saveStep(ctx, p.CurrentStep); err != nil {
			return p, err
		}
	}
	return p, nil
}

// CanJumpTo reports whether step was already completed or lies behind the current step.
func (p Progress) CanJumpTo(step Step) bool {
	return step.Valid() && (p.IsCompleted(step) || step < p.CurrentStep)
}

// JumpTo moves to step if it can be reached. A rejected jump returns false and changes nothing.
func (w *Wizard) JumpTo(ctx context.Context, step Step) (Progress, bool, error) {
	p := w.Progress(ctx)
	if !p.CanJumpTo(step) {
		log.Debugf("user %s cannot jump from step %d to step %d", w.userId, p.CurrentStep, step)
		return p, false, nil
	}
	p.CurrentStep = step
	if err := w.saveStep(ctx, step); err != nil {
		return p, false, err
	}
	return p, true, nil
}

// EditStep moves to any step, as requested from the review summary.
func (w *Wizard) EditStep(ctx context.Context, step Step) (Progress, error) {
	p := w.Progress(ctx)
	if !step.Valid() {
		return p, fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}
	p.CurrentStep = step
	if err := w.saveStep(ctx, step); err != nil {
		return p, err
	}
	return p, nil
}

// UpdateSection applies a partial update to one draft section. Object sections are merged field by
// field onto the stored value; list sections are replaced.
func (w *Wizard) UpdateSection(ctx context.Context, section string, partial json.RawMessage) (Draft, error) {
	d := w.Draft(ctx)
	var err error
	switch section {
	case SectionPersonalInfo:
		d.PersonalInfo, err = mergeJSON(d.PersonalInfo, partial)
	case SectionEmploymentInfo:
		d.EmploymentInfo, err = mergeJSON(d.EmploymentInfo, partial)
	case SectionBudget:
		d.Budget, err = mergeJSON(d.Budget, partial)
		if d.Budget.Categories == nil {
			d.Budget.Categories = DefaultCategories()
		}
	case SectionBankAccounts:
		var accounts []BankAccount
		if err = json.Unmarshal(partial, &accounts); err == nil {
			d.BankAccounts = normalizeAccounts(accounts)
		}
	case SectionCardDetails:
		var cards []Card
		if err = json.Unmarshal(relaxList(partial), &cards); err == nil {
			d.CardDetails = normalizeCards(cards)
		}
	default:
		return d, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
	if err != nil {
		return d, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, section, err)
	}
	d.normalize()
	if err := w.saveDraft(ctx, d); err != nil {
		return d, err
	}
	return d, nil
}

// mergeJSON overlays the top-level keys of partial onto current.
func mergeJSON[T any](current T, partial json.RawMessage) (T, error) {
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(partial, &overlay); err != nil {
		return current, err
	}
	relaxNumbers(overlay)
	raw, err := json.Marshal(current)
	if err != nil {
		return current, err
	}
	base := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &base); err != nil {
		return current, err
	}
	for k, v := range overlay {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return current, err
	}
	var result T
	if err := json.Unmarshal(merged, &result); err != nil {
		return current, err
	}
	return result, nil
}

// numericFields are the draft fields form inputs may send as strings.
var numericFields = map[string]bool{
	"monthlySalary": true, "salaryDate": true,
	"creditLimit": true, "currentOutstanding": true, "billingDate": true, "dueDate": true, "dailyLimit": true,
	"totalBudget": true, "savingsGoal": true, "amount": true,
}

// relaxNumbers rewrites string values of numeric fields in place: a blank string becomes null and a
// numeric string becomes the number. Budget categories are rewritten the same way.
func relaxNumbers(fields map[string]json.RawMessage) {
	for k, v := range fields {
		if k == "categories" {
			fields[k] = relaxList(v)
			continue
		}
		if !numericFields[k] {
			continue
		}
		var s string
		if json.Unmarshal(v, &s) != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			fields[k] = json.RawMessage("null")
		} else if n, err := decimal.NewFromString(s); err == nil {
			fields[k] = json.RawMessage(n.String())
		}
	}
}

// relaxList applies relaxNumbers to every object of a JSON array. Anything else is returned as is.
func relaxList(raw json.RawMessage) json.RawMessage {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return raw
	}
	for _, item := range items {
		relaxNumbers(item)
	}
	relaxed, err := json.Marshal(items)
	if err != nil {
		return raw
	}
	return relaxed
}

func (w *Wizard) AddBankAccount(ctx context.Context, a BankAccount) (BankAccount, error) {
	d := w.Draft(ctx)
	var added BankAccount
	d.BankAccounts, added = addBankAccount(d.BankAccounts, a)
	return added, w.saveDraft(ctx, d)
}

func (w *Wizard) RemoveBankAccount(ctx context.Context, localId string) ([]BankAccount, error) {
	d := w.Draft(ctx)
	accounts, err := removeBankAccount(d.BankAccounts, localId)
	if err != nil {
		return d.BankAccounts, err
	}
	d.BankAccounts = accounts
	return accounts, w.saveDraft(ctx, d)
}

func (w *Wizard) SetPrimaryBankAccount(ctx context.Context, localId string) ([]BankAccount, error) {
	d := w.Draft(ctx)
	accounts, err := setPrimaryAccount(d.BankAccounts, localId)
	if err != nil {
		return d.BankAccounts, err
	}
	d.BankAccounts = accounts
	return accounts, w.saveDraft(ctx, d)
}

func (w *Wizard) AddCard(ctx context.Context, c Card) (Card, error) {
	d := w.Draft(ctx)
	cards, added, err := addCard(d.CardDetails, c)
	if err != nil {
		return Card{}, err
	}
	d.CardDetails = cards
	return added, w.saveDraft(ctx, d)
}

func (w *Wizard) RemoveCard(ctx context.Context, localId string) ([]Card, error) {
	d := w.Draft(ctx)
	cards, err := removeCard(d.CardDetails, localId)
	if err != nil {
		return d.CardDetails, err
	}
	d.CardDetails = cards
	return cards, w.saveDraft(ctx, d)
}

// Complete submits the draft. It only runs from the review step with consent given and the budget
// allocation within the total. On success all onboarding state is cleared and the redirect target
// is returned; on failure draft and progress are left as they were.
func (w *Wizard) Complete(ctx context.Context, consent bool) (string, SubmissionResult, error) {
	p := w.Progress(ctx)
	if p.CurrentStep != LastStep {
		return "", SubmissionResult{}, ErrNotOnReviewStep
	}
	if !consent {
		return "", SubmissionResult{}, ErrConsentRequired
	}
	d := w.Draft(ctx)
	if msg := allocationError(d.Budget); msg != "" {
		return "", SubmissionResult{}, FieldErrors{"allocation": msg}.Err()
	}

	attempt, err := w.attempt(ctx)
	if err != nil {
		return "", SubmissionResult{}, err
	}
	ledger := draft_store.Get(ctx, w.store, w.userId, KeySubmitted, []string{})
	done := make(map[string]bool, len(ledger))
	for _, key := range ledger {
		done[key] = true
	}
	result, err := w.submitter.Submit(ctx, w.userId, attempt, d, done, func(key string) {
		ledger = append(ledger, key)
		if err := draft_store.Set(ctx, w.store, w.userId, KeySubmitted, ledger); err != nil {
			log.Warnf("failed to record %s as submitted for user %s: %v", key, w.userId, err)
		}
	})
	if err != nil {
		return "", result, err
	}

	if err := w.Reset(ctx); err != nil {
		log.Errorf("onboarding of user %s submitted but state was not cleared: %v", w.userId, err)
	}
	return DashboardPath, result, nil
}

// attempt returns the id of the current submission attempt, creating it on the first submit.
func (w *Wizard) attempt(ctx context.Context) (string, error) {
	if id := draft_store.Get(ctx, w.store, w.userId, KeyAttempt, ""); id != "" {
		return id, nil
	}
	id := uuid.NewString()
	if err := draft_store.Set(ctx, w.store, w.userId, KeyAttempt, id); err != nil {
		return "", fmt.Errorf("failed to store submission attempt: %w", err)
	}
	return id, nil
}

// Reset deletes every onboarding key of the user.
func (w *Wizard) Reset(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyData, KeyCompleted, KeyStep, KeySubmitted, KeyAttempt} {
		if err := w.store.Delete(ctx, w.userId, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
