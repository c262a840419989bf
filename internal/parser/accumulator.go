package parser

import "github.com/insightdelivered/smartspend/internal/models"

type accState int

const (
	stateIdle accState = iota
	stateAccumulating
)

// accumulator holds at most one pending record. A record is flushed exactly
// once: when the next record starts or when input ends.
type accumulator struct {
	state   accState
	pending models.PendingRecord
	flush   func(models.PendingRecord)
}

func (a *accumulator) feed(line Line) {
	switch line.Kind {
	case LineHeader:
		return
	case LineRecordStart:
		if a.state == stateAccumulating {
			a.flush(a.pending)
		}
		a.pending = models.PendingRecord{Date: line.Date, Text: line.Text}
		a.state = stateAccumulating
	case LineContinuation:
		if a.state == stateIdle {
			return
		}
		a.pending.Text += " " + line.Text
	}
}

// finish flushes the last pending record, if any.
func (a *accumulator) finish() {
	if a.state != stateAccumulating {
		return
	}
	rec := a.pending
	a.pending = models.PendingRecord{}
	a.state = stateIdle
	a.flush(rec)
}
