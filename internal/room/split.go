package room

// Split is the derived bill view: the total, the number of participants
// (the local user plus everyone else online), and the per-person share.
// It is computed on demand and never stored.
type Split struct {
	Total        float64
	Participants int
	Share        float64
}

// ComputeSplit divides total across the local user and the given number
// of other online participants. A non-positive participant count degenerates to
// the raw total rather than dividing by zero.
func ComputeSplit(total float64, others int) Split {
	count := 1 + others
	if count <= 0 {
		return Split{Total: total, Participants: count, Share: total}
	}
	return Split{Total: total, Participants: count, Share: total / float64(count)}
}
