package onboarding

type Step int

const (
	StepPersonalInfo Step = iota + 1
	StepEmployment
	StepBankAccounts
	StepCards
	StepBudget
	StepReview
)

const (
	FirstStep = StepPersonalInfo
	LastStep  = StepReview
)

// Draft sections, as used in the HTTP API and the persisted draft.
const (
	SectionPersonalInfo   = "personalInfo"
	SectionEmploymentInfo = "employmentInfo"
	SectionBankAccounts   = "bankAccounts"
	SectionCardDetails    = "cardDetails"
	SectionBudget         = "budget"
)

type StepInfo struct {
	Id          Step   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Section     string `json:"section,omitempty"`
}

var steps = []StepInfo{
	{Id: StepPersonalInfo, Title: "Personal Info", Description: "Basic details about you", Section: SectionPersonalInfo},
	{Id: StepEmployment, Title: "Employment", Description: "Work and income details", Section: SectionEmploymentInfo},
	{Id: StepBankAccounts, Title: "Bank Accounts", Description: "Link your accounts", Section: SectionBankAccounts},
	{Id: StepCards, Title: "Cards", Description: "Credit & Debit cards", Section: SectionCardDetails},
	{Id: StepBudget, Title: "Budget & Goals", Description: "Plan your finances", Section: SectionBudget},
	{Id: StepReview, Title: "Review", Description: "Confirm details"},
}

func Steps() []StepInfo {
	result := make([]StepInfo, len(steps))
	copy(result, steps)
	return result
}

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

func (s Step) Info() StepInfo {
	if !s.Valid() {
		return StepInfo{Id: s}
	}
	return steps[s-1]
}
