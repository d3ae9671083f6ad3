package payment

import (
	"github.com/go-faster/errors"
)

// Test card numbers understood by the sandbox processor.
const (
	SandboxApproved = "4242 4242 4242 4242"
	SandboxDeclined = "4000 0000 0000 0002"
)

// CardPolicy decides whether a normalized card number may be sent to the
// processor at all.
type CardPolicy interface {
	Accepts(number string) bool
}

// Sandbox accepts only the sandbox processor's test cards.
type Sandbox struct{}

func (Sandbox) Accepts(number string) bool {
	return number == SandboxApproved || number == SandboxDeclined
}

// AnyWellFormed accepts every sixteen digit number and leaves the decision to
// a real processor.
type AnyWellFormed struct{}

func (AnyWellFormed) Accepts(number string) bool {
	return len(number) == 19 && NormalizeNumber(number) == number
}

// PolicyByName resolves a policy from configuration.
func PolicyByName(name string) (CardPolicy, error) {
	switch name {
	case "", "sandbox":
		return Sandbox{}, nil
	case "any":
		return AnyWellFormed{}, nil
	default:
		return nil, errors.Errorf("unknown card policy %q", name)
	}
}
