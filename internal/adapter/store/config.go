package store

// FileConfig configures the JSON-file DedupStore.
type FileConfig struct {
	Path string `validate:"required"`
}

// RedisConfig contains connection options for the Redis-backed DedupStore.
// The struct is validated via go-playground/validator tags.
type RedisConfig struct {
	Host               string `validate:"required,hostname|ip"`
	Port               string `validate:"required,numeric"`
	Password           string
	DB                 int `validate:"gte=0"`
	UseTLS             bool
	PoolSize           int `validate:"gte=0"`
	MaxRetries         int `validate:"gte=0"`
	DialTimeoutSeconds int `validate:"gte=0"`
	// DedupKey is the Redis set holding processed transaction ids.
	DedupKey string `validate:"required"`
}
