package event

// Recorder is the outbound fact queue embedded in every aggregate. Mutating
// methods record facts here; the owning service drains the queue after a
// successful save and hands the facts to the bus. Facts recorded on an
// aggregate that is never saved are discarded along with it.
type Recorder struct {
	pending []Fact
}

func (r *Recorder) Record(f Fact) {
	r.pending = append(r.pending, f)
}

// PendingFacts returns the queued facts without draining them.
func (r *Recorder) PendingFacts() []Fact {
	return r.pending
}

// DrainFacts returns the queued facts and empties the queue.
func (r *Recorder) DrainFacts() []Fact {
	facts := r.pending
	r.pending = nil
	return facts
}
