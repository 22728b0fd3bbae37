// broadcast/broadcast.go
package broadcast

import (
	"sync"
)

// Recipient is anything a message can be delivered to.
type Recipient interface {
	GetID() int64
	Send(v interface{}) error
}

// Status is the outcome of one delivery.
type Status int

const (
	Delivered Status = iota
	Failed
)

func (s Status) String() string {
	if s == Delivered {
		return "delivered"
	}
	return "failed"
}

// Delivery is the per-recipient result of a fan-out.
type Delivery struct {
	Recipient   Recipient
	RecipientID int64
	Status      Status
	Err         error
}

// Report lists one Delivery per recipient, in recipient order.
type Report struct {
	Deliveries []Delivery
}

func (r Report) Delivered() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Status == Delivered {
			n++
		}
	}
	return n
}

func (r Report) Failures() []Delivery {
	var failed []Delivery
	for _, d := range r.Deliveries {
		if d.Status == Failed {
			failed = append(failed, d)
		}
	}
	return failed
}

// Deliver sends msg to a single recipient and reports the result.
func Deliver(to Recipient, msg interface{}) Delivery {
	if err := to.Send(msg); err != nil {
		return Delivery{Recipient: to, RecipientID: to.GetID(), Status: Failed, Err: err}
	}
	return Delivery{Recipient: to, RecipientID: to.GetID(), Status: Delivered}
}

// Fanout sends msg to every recipient concurrently. A failure on one
// recipient never blocks or aborts delivery to the others.
func Fanout[R Recipient](recipients []R, msg interface{}) Report {
	report := Report{Deliveries: make([]Delivery, len(recipients))}

	var wg sync.WaitGroup
	for i, r := range recipients {
		wg.Add(1)
		go func(i int, r R) {
			defer wg.Done()
			report.Deliveries[i] = Deliver(r, msg)
		}(i, r)
	}
	wg.Wait()

	return report
}
