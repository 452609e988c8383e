package onboarding

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound = errors.New("bank account not found")
	ErrCardNotFound    = errors.New("card not found")
	ErrUnknownCardType = errors.New("unknown card type")
)

const defaultAccountType = "Savings"

var newLocalId = uuid.NewString

// addBankAccount appends a, assigning a local id and defaults. The first account becomes primary.
func addBankAccount(accounts []BankAccount, a BankAccount) ([]BankAccount, BankAccount) {
	if a.LocalId == "" {
		a.LocalId = newLocalId()
	}
	if a.AccountType == "" {
		a.AccountType = defaultAccountType
	}
	requestedPrimary := a.IsPrimary
	a.IsPrimary = len(accounts) == 0
	accounts = append(accounts, a)
	if requestedPrimary && !a.IsPrimary {
		accounts, _ = setPrimaryAccount(accounts, a.LocalId)
		a.IsPrimary = true
	}
	return accounts, a
}

// removeBankAccount drops the account. If it was primary, the first remaining account takes over.
func removeBankAccount(accounts []BankAccount, localId string) ([]BankAccount, error) {
	result := make([]BankAccount, 0, len(accounts))
	var removed *BankAccount
	for i := range accounts {
		if accounts[i].LocalId == localId {
			removed = &accounts[i]
			continue
		}
		result = append(result, accounts[i])
	}
	if removed == nil {
		return accounts, ErrAccountNotFound
	}
	if removed.IsPrimary && len(result) > 0 {
		result[0].IsPrimary = true
	}
	return result, nil
}

// setPrimaryAccount flags one account as primary and clears the flag on all others.
func setPrimaryAccount(accounts []BankAccount, localId string) ([]BankAccount, error) {
	found := false
	result := make([]BankAccount, len(accounts))
	for i, a := range accounts {
		a.IsPrimary = a.LocalId == localId
		found = found || a.IsPrimary
		result[i] = a
	}
	if !found {
		return accounts, ErrAccountNotFound
	}
	return result, nil
}

// normalizeAccounts fills local ids and keeps only the first primary flag of a replaced list.
func normalizeAccounts(accounts []BankAccount) []BankAccount {
	seenPrimary := false
	for i := range accounts {
		if accounts[i].LocalId == "" {
			accounts[i].LocalId = newLocalId()
		}
		if accounts[i].AccountType == "" {
			accounts[i].AccountType = defaultAccountType
		}
		if accounts[i].IsPrimary {
			if seenPrimary {
				accounts[i].IsPrimary = false
			}
			seenPrimary = true
		}
	}
	return accounts
}

func addCard(cards []Card, c Card) ([]Card, Card, error) {
	if c.CardType == "" {
		c.CardType = CreditCard
	}
	if c.CardType != CreditCard && c.CardType != DebitCard {
		return cards, Card{}, ErrUnknownCardType
	}
	if c.LocalId == "" {
		c.LocalId = newLocalId()
	}
	return append(cards, c), c, nil
}

func removeCard(cards []Card, localId string) ([]Card, error) {
	result := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.LocalId != localId {
			result = append(result, c)
		}
	}
	if len(result) == len(cards) {
		return cards, ErrCardNotFound
	}
	return result, nil
}

func normalizeCards(cards []Card) []Card {
	for i := range cards {
		if cards[i].LocalId == "" {
			cards[i].LocalId = newLocalId()
		}
	}
	return cards
}

// Last4 returns the last four digits of a card or account number.
func Last4(number string) string {
	digits := digitsOnly(number)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CardProvider names the network of a card from its number prefix.
func CardProvider(number string) string {
	n := digitsOnly(number)
	prefix := func(length int) int {
		if len(n) < length {
			return -1
		}
		v := 0
		for _, r := range n[:length] {
			v = v*10 + int(r-'0')
		}
		return v
	}
	switch {
	case prefix(2) == 34 || prefix(2) == 37:
		return "Amex"
	case prefix(1) == 4:
		return "Visa"
	case prefix(2) >= 51 && prefix(2) <= 55, prefix(4) >= 2221 && prefix(4) <= 2720:
		return "Mastercard"
	case prefix(2) == 60 || prefix(2) == 65 || prefix(2) == 81 || prefix(2) == 82 || prefix(3) == 508:
		return "RuPay"
	}
	return "Other"
}
