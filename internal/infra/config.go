package infra

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitConfig loads the service configuration file and enables environment
// variable overrides (BRIDGE_RELAY_SOURCE_RPC_URL overrides source.rpc_url).
func InitConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")

	viper.SetEnvPrefix("BRIDGE_RELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
