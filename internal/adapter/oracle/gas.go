package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
)

const requestTimeout = 10 * time.Second

// GasOracle fetches a suggested gas price from an external tracker API.
// The value is informational only; callers must tolerate failure.
type GasOracle struct {
	log    applog.AppLogger
	url    string
	client *http.Client
}

func NewGasOracle(log applog.AppLogger, url string) *GasOracle {
	return &GasOracle{
		log:    log,
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// SuggestedGasPrice returns the tracker's proposed gas price in gwei.
func (o *GasOracle) SuggestedGasPrice(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return "", err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gas oracle returned status %d", resp.StatusCode)
	}

	var body struct {
		Result struct {
			ProposeGasPrice string `json:"ProposeGasPrice"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Result.ProposeGasPrice == "" {
		return "", fmt.Errorf("gas oracle response missing ProposeGasPrice")
	}
	return body.Result.ProposeGasPrice, nil
}
