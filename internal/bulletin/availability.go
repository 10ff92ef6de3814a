package bulletin

// Availability is the outcome of looking for next month's bulletin
type Availability int

const (
	// NextUndetermined covers every link set the decision table does not name
	NextUndetermined Availability = iota
	// NextPending means the current bulletin resolves but the next one does not yet
	NextPending
	// NextAvailable means both the current and the next bulletin resolve
	NextAvailable
)

func (a Availability) String() string {
	switch a {
	case NextPending:
		return "pending"
	case NextAvailable:
		return "available"
	default:
		return "undetermined"
	}
}

// Available reports whether a notification signal should be emitted
func (a Availability) Available() bool {
	return a == NextAvailable
}

// EvaluateNext classifies the index link set by counting links with and without a URL.
// One of each means the next bulletin is still pending; two resolvable links and no
// empty one means it has been published. Anything else is undetermined.
func EvaluateNext(links []PageLink) Availability {
	resolvable, empty := 0, 0
	for _, link := range links {
		if link.Resolvable() {
			resolvable++
		} else {
			empty++
		}
	}

	switch {
	case resolvable == 1 && empty == 1:
		return NextPending
	case resolvable == 2 && empty == 0:
		return NextAvailable
	default:
		return NextUndetermined
	}
}

// MarshalText encodes the availability by name
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
