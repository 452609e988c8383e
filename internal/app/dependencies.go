package app

import (
	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/event_bus"
	"github.com/fintrack/fintrack/internal/utils"
	"github.com/fintrack/fintrack/pkg/draft_store"
	"github.com/fintrack/fintrack/pkg/finance_api"
	"github.com/fintrack/fintrack/pkg/onboarding"
	"github.com/fintrack/fintrack/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	TokenValidator *user.TokenValidator

	DraftStore    draft_store.Store
	FinanceClient finance_api.Client
	EventBus      *event_bus.EventBus

	Submitter         *onboarding.Submitter
	OnboardingService *onboarding.ServiceImpl
	OnboardingHandler *onboarding.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(store draft_store.Store, cfg config.Application) *Dependencies {
	return buildDependencies(store, finance_api.NewClient(cfg.FinanceApi), cfg)
}

func buildDependencies(store draft_store.Store, client finance_api.Client, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.TokenValidator = user.NewTokenValidator(cfg.Auth.JwtSecret)

	deps.DraftStore = store
	deps.FinanceClient = client
	deps.EventBus = event_bus.NewEventBus()
	subscribeAuditLog(deps.EventBus)

	deps.Clock = &utils.SystemClock{}
	deps.Submitter = onboarding.NewSubmitter(deps.FinanceClient, deps.Clock)
	deps.OnboardingService = onboarding.NewService(deps.DraftStore, deps.Submitter, deps.EventBus, deps.Clock)
	deps.OnboardingHandler = onboarding.NewHandler(deps.OnboardingService)

	return deps
}

func subscribeAuditLog(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.OnboardingStepCompleted, func(e event_bus.EventT[event_bus.StepCompleted]) error {
		log.Infof("user %s completed step %d (%s)", e.Data.UserId, e.Data.Step, e.Data.Title)
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.OnboardingCompleted, func(e event_bus.EventT[event_bus.Completed]) error {
		log.WithFields(log.Fields{
			"user":     e.Data.UserId,
			"executed": e.Data.Executed,
			"skipped":  e.Data.Skipped,
		}).Info("onboarding completed")
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.OnboardingReset, func(e event_bus.EventT[event_bus.Reset]) error {
		log.Infof("onboarding of user %s was reset", e.Data.UserId)
		return nil
	})
}
