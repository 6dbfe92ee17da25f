package challenge

import "time"

// Policy controls how delivered codes are generated and how long they live.
// TOTP purposes are not covered by a Policy; their shape is fixed by the
// authenticator-app convention (6 digits, 30-second period).
type Policy struct {
	Digits int
	TTL    time.Duration
	// RollbackOnDeliveryFailure marks a freshly issued artifact consumed when
	// its code could not be delivered, instead of leaving it verifiable for a
	// retried send.
	RollbackOnDeliveryFailure bool
}

// DefaultPolicy is the issuing policy used unless configuration overrides it.
var DefaultPolicy = Policy{
	Digits: 6,
	TTL:    10 * time.Minute,
}
