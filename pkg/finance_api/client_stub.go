package finance_api

import (
	"context"
	"sync"
)

// Call is one request recorded by ClientStub.
type Call struct {
	Operation      string // UpdateUser, CreateBankAccount, CreateCard or CreateBudget
	UserId         string
	Body           any
	IdempotencyKey string
}

type ClientStub struct {
	mu    sync.Mutex
	calls []Call
	fail  func(call Call) error
}

func NewClientStub() *ClientStub {
	return &ClientStub{}
}

// FailWhen makes every call for which fn returns a non-nil error fail with that error. Failed
// calls are recorded too.
func (c *ClientStub) FailWhen(fn func(call Call) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fn
}

func (c *ClientStub) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Call, len(c.calls))
	copy(result, c.calls)
	return result
}

func (c *ClientStub) Operations() []string {
	calls := c.Calls()
	ops := make([]string, len(calls))
	for i, call := range calls {
		ops[i] = call.Operation
	}
	return ops
}

func (c *ClientStub) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.fail = nil
}

func (c *ClientStub) record(call Call) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	if c.fail != nil {
		return c.fail(call)
	}
	return nil
}

func (c *ClientStub) UpdateUser(_ context.Context, userId string, update UserUpdate, idempotencyKey string) error {
	return c.record(Call{Operation: "UpdateUser", UserId: userId, Body: update, IdempotencyKey: idempotencyKey})
}

func (c *ClientStub) CreateBankAccount(_ context.Context, account BankAccount, idempotencyKey string) error {
	return c.record(Call{Operation: "CreateBankAccount", UserId: account.UserId, Body: account, IdempotencyKey: idempotencyKey})
}

func (c *ClientStub) CreateCard(_ context.Context, card Card, idempotencyKey string) error {
	return c.record(Call{Operation: "CreateCard", UserId: card.UserId, Body: card, IdempotencyKey: idempotencyKey})
}

func (c *ClientStub) CreateBudget(_ context.Context, budget Budget, idempotencyKey string) error {
	return c.record(Call{Operation: "CreateBudget", UserId: budget.UserId, Body: budget, IdempotencyKey: idempotencyKey})
}
