package broadcast

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockRecipient struct {
	id    int64
	err   error
	delay time.Duration
	got   atomic.Int32
}

func (m *mockRecipient) GetID() int64 { return m.id }

func (m *mockRecipient) Send(v interface{}) error {
	time.Sleep(m.delay)
	if m.err != nil {
		return m.err
	}
	m.got.Add(1)
	return nil
}

func TestFanout_IsolatesFailures(t *testing.T) {
	closed := errors.New("use of closed connection")
	a := &mockRecipient{id: 1}
	b := &mockRecipient{id: 2, err: closed}
	c := &mockRecipient{id: 3}

	report := Fanout([]*mockRecipient{a, b, c}, "hello")

	assert.Len(t, report.Deliveries, 3)
	assert.Equal(t, 2, report.Delivered())
	assert.Equal(t, int32(1), a.got.Load())
	assert.Equal(t, int32(1), c.got.Load())

	failures := report.Failures()
	if assert.Len(t, failures, 1) {
		assert.Equal(t, int64(2), failures[0].RecipientID)
		assert.Same(t, b, failures[0].Recipient)
		assert.Equal(t, Failed, failures[0].Status)
		assert.ErrorIs(t, failures[0].Err, closed)
	}
	assert.Equal(t, int64(3), report.Deliveries[2].RecipientID)
}

func TestFanout_SlowRecipientDoesNotSerialize(t *testing.T) {
	recipients := make([]*mockRecipient, 5)
	for i := range recipients {
		recipients[i] = &mockRecipient{id: int64(i), delay: 50 * time.Millisecond}
	}

	start := time.Now()
	report := Fanout(recipients, "x")

	assert.Equal(t, 5, report.Delivered())
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestFanout_Empty(t *testing.T) {
	report := Fanout([]*mockRecipient{}, "x")
	assert.Empty(t, report.Deliveries)
	assert.Empty(t, report.Failures())
}
