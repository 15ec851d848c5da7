package enums

// CheckoutIntentStatus tracks the lifecycle of a buyer's checkout attempt.
type CheckoutIntentStatus string

const (
	CheckoutIntentStatusIntent   CheckoutIntentStatus = "intent"
	CheckoutIntentStatusLocked   CheckoutIntentStatus = "locked"
	CheckoutIntentStatusConsumed CheckoutIntentStatus = "consumed"
	CheckoutIntentStatusExpired  CheckoutIntentStatus = "expired"
)

func (s CheckoutIntentStatus) String() string {
	return string(s)
}
