package services

import (
	"context"

	"github.com/sahilchouksey/fee-management/model"
)

// FeeEvents observes changes to fee records. Implementations must not fail
// the change they are told about; they log their own errors.
type FeeEvents interface {
	FeeAssigned(ctx context.Context, student *model.Student, fee *model.StudentFee)
	PaymentRecorded(ctx context.Context, student *model.Student, fee *model.StudentFee, payment *model.Payment)
}

// MultiFeeEvents fans every event out to each non-nil observer in order
func MultiFeeEvents(observers ...FeeEvents) FeeEvents {
	out := make(multiFeeEvents, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiFeeEvents []FeeEvents

func (m multiFeeEvents) FeeAssigned(ctx context.Context, student *model.Student, fee *model.StudentFee) {
	for _, o := range m {
		o.FeeAssigned(ctx, student, fee)
	}
}

func (m multiFeeEvents) PaymentRecorded(ctx context.Context, student *model.Student, fee *model.StudentFee, payment *model.Payment) {
	for _, o := range m {
		o.PaymentRecorded(ctx, student, fee, payment)
	}
}
