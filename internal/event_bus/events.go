package event_bus

const (
	OnboardingStepCompleted EventType = "onboarding.step.completed"
	OnboardingCompleted     EventType = "onboarding.completed"
	OnboardingReset         EventType = "onboarding.reset"
)

// StepCompleted is published the first time a user moves past a wizard step.
type StepCompleted struct {
	UserId string
	Step   int
	Title  string
}

// Completed is published after a successful submission. Executed and Skipped hold operation keys;
// skipped operations had already been submitted by an earlier attempt.
type Completed struct {
	UserId   string
	Executed []string
	Skipped  []string
}

type Reset struct {
	UserId string
}
