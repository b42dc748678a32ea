package ledger

// Config holds connection settings for one blockchain node. BridgeContract
// and the event filter only apply to the source ledger; the destination
// ledger is dialed with an empty contract address and used solely for its
// chain identity.
type Config struct {
	Name           string `validate:"required"`
	RPCURL         string `validate:"required,uri"`
	BridgeContract string `validate:"omitempty,eth_addr"`

	DialMaxRetryAttempts      int     `validate:"gte=0"`
	DialRetryInitialBackoffMS int     `validate:"gte=0"`
	DialRetryMaxBackoffMS     int     `validate:"gte=0"`
	DialRetryJitter           float64 `validate:"gte=0"`
	RequestTimeoutSeconds     int     `validate:"gte=0"`
}
