package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fintrack/fintrack/internal/event_bus"
	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/draft_store"
	"github.com/fintrack/fintrack/pkg/user"
	log "github.com/sirupsen/logrus"
)

type StepState struct {
	StepInfo
	Completed bool `json:"completed"`
	Current   bool `json:"current"`
	Clickable bool `json:"clickable"`
}

type State struct {
	Progress
	Draft Draft       `json:"draft"`
	Steps []StepState `json:"steps"`
}

type Service interface {
	State(ctx context.Context) (State, error)
	UpdateSection(ctx context.Context, section string, partial json.RawMessage) (Draft, error)
	ValidateField(ctx context.Context, step Step, field, value string, fc FieldContext) (string, error)
	Next(ctx context.Context) (Progress, error)
	Back(ctx context.Context) (Progress, error)
	JumpTo(ctx context.Context, step Step) (Progress, error)
	EditStep(ctx context.Context, step Step) (Progress, error)
	AddBankAccount(ctx context.Context, account BankAccount) (BankAccount, error)
	RemoveBankAccount(ctx context.Context, localId string) ([]BankAccount, error)
	SetPrimaryBankAccount(ctx context.Context, localId string) ([]BankAccount, error)
	AddCard(ctx context.Context, cardType CardType) (Card, error)
	RemoveCard(ctx context.Context, localId string) ([]Card, error)
	Review(ctx context.Context) (Review, error)
	Complete(ctx context.Context, consent bool) (string, error)
	Reset(ctx context.Context) error
}

type ServiceImpl struct {
	store     draft_store.Store
	submitter *Submitter
	bus       *event_bus.EventBus
	clock     utils.Clock
	locks     sync.Map // userId -> *sync.Mutex
}

func NewService(store draft_store.Store, submitter *Submitter, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		store:     store,
		submitter: submitter,
		bus:       bus,
		clock:     clock,
	}
}

// withWizard runs fn with the current user's wizard while holding that user's lock, so requests of
// one user never interleave.
func (s *ServiceImpl) withWizard(ctx context.Context, fn func(userId string, w *Wizard) error) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	lock, _ := s.locks.LoadOrStore(userId, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return fn(userId, NewWizard(s.store, userId, s.submitter))
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}

func buildState(p Progress, d Draft) State {
	infos := Steps()
	states := make([]StepState, len(infos))
	for i, info := range infos {
		states[i] = StepState{
			StepInfo:  info,
			Completed: p.IsCompleted(info.Id),
			Current:   p.CurrentStep == info.Id,
			Clickable: p.CanJumpTo(info.Id),
		}
	}
	return State{Progress: p, Draft: d, Steps: states}
}

func (s *ServiceImpl) State(ctx context.Context) (State, error) {
	var state State
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		state = buildState(w.Progress(ctx), w.Draft(ctx))
		return nil
	})
	return state, err
}

func (s *ServiceImpl) UpdateSection(ctx context.Context, section string, partial json.RawMessage) (Draft, error) {
	var d Draft
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var err error
		d, err = w.UpdateSection(ctx, section, partial)
		return err
	})
	return d, err
}

func (s *ServiceImpl) ValidateField(ctx context.Context, step Step, field, value string, fc FieldContext) (string, error) {
	if _, err := user.CurrentId(ctx); err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return ValidateField(step, field, value, fc)
}

// Next validates the current step against the stored draft and only then advances.
func (s *ServiceImpl) Next(ctx context.Context) (Progress, error) {
	var p Progress
	err := s.withWizard(ctx, func(userId string, w *Wizard) error {
		current := w.Progress(ctx)
		if err := ValidateStep(current.CurrentStep, w.Draft(ctx)).Err(); err != nil {
			p = current
			return err
		}
		var newlyCompleted bool
		var err error
		p, newlyCompleted, err = w.Next(ctx)
		if err != nil {
			return err
		}
		if newlyCompleted {
			s.publish(ctx, event_bus.OnboardingStepCompleted, event_bus.StepCompleted{
				UserId: userId,
				Step:   int(current.CurrentStep),
				Title:  current.CurrentStep.Info().Title,
			})
		}
		return nil
	})
	return p, err
}

func (s *ServiceImpl) Back(ctx context.Context) (Progress, error) {
	var p Progress
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var err error
		p, err = w.Back(ctx)
		return err
	})
	return p, err
}

func (s *ServiceImpl) JumpTo(ctx context.Context, step Step) (Progress, error) {
	var p Progress
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var ok bool
		var err error
		p, ok, err = w.JumpTo(ctx, step)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrStepNotReachable, step)
		}
		return nil
	})
	return p, err
}

func (s *ServiceImpl) EditStep(ctx context.Context, step Step) (Progress, error) {
	var p Progress
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var err error
		p, err = w.EditStep(ctx, step)
		return err
	})
	return p, err
}

func (s *ServiceImpl) AddBankAccount(ctx context.Context, account BankAccount) (BankAccount, error) {
	var added BankAccount
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var err error
		added, err = w.AddBankAccount(ctx, account)
		return err
	})
	return added, err
}

func (s *ServiceImpl) RemoveBankAccount(ctx context.Context, localId string) ([]BankAccount, error) {
	var accounts []BankAccount
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var err error
		accounts, err = w.RemoveBankAccount(ctx, localId)
		return err
	})
	return accounts, err
}

func (s *ServiceImpl) SetPrimaryBankAccount(ctx context.Context, localId string) ([]BankAccount, error) {
	var accounts []BankAccount
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var err error
		accounts, err = w.SetPrimaryBankAccount(ctx, localId)
		return err
	})
	return accounts, err
}

func (s *ServiceImpl) AddCard(ctx context.Context, cardType CardType) (Card, error) {
	var added Card
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var err error
		added, err = w.AddCard(ctx, Card{CardType: cardType})
		return err
	})
	return added, err
}

func (s *ServiceImpl) RemoveCard(ctx context.Context, localId string) ([]Card, error) {
	var cards []Card
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		var err error
		cards, err = w.RemoveCard(ctx, localId)
		return err
	})
	return cards, err
}

func (s *ServiceImpl) Review(ctx context.Context) (Review, error) {
	var r Review
	err := s.withWizard(ctx, func(_ string, w *Wizard) error {
		r = BuildReview(w.Draft(ctx), s.clock.Now())
		return nil
	})
	return r, err
}

func (s *ServiceImpl) Complete(ctx context.Context, consent bool) (string, error) {
	var redirect string
	err := s.withWizard(ctx, func(userId string, w *Wizard) error {
		var result SubmissionResult
		var err error
		redirect, result, err = w.Complete(ctx, consent)
		if err != nil {
			return err
		}
		log.Infof("user %s completed onboarding (%d calls, %d already submitted)", userId,
			len(result.Executed), len(result.Skipped))
		s.publish(ctx, event_bus.OnboardingCompleted, event_bus.Completed{
			UserId:   userId,
			Executed: result.Executed,
			Skipped:  result.Skipped,
		})
		return nil
	})
	return redirect, err
}

// Reset discards the current user's draft, progress and submission ledger.
func (s *ServiceImpl) Reset(ctx context.Context) error {
	return s.withWizard(ctx, func(userId string, w *Wizard) error {
		if err := w.Reset(ctx); err != nil {
			return err
		}
		s.publish(ctx, event_bus.OnboardingReset, event_bus.Reset{UserId: userId})
		return nil
	})
}
