// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/starload/starload/internal/backoff"
)

var errMissingPolicyFile = errors.New("no policy file provided")

func Load() error {
	return LoadFile(viper.GetString("config"))
}

func LoadFile(file string) error {
	if file != "" {
		viper.SetConfigFile(file)
		viper.SetConfigType(filepath.Ext(file)[1:])
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func LogLevel() string {
	switch {
	case viper.GetString("log-level") != "":
		// CLI argument
		return viper.GetString("log-level")
	case viper.GetString("STARLOAD_LOG_LEVEL") != "":
		// env config
		return viper.GetString("STARLOAD_LOG_LEVEL")
	default:
		return "info"
	}
}

func PostgresURL() string {
	switch {
	case viper.GetString("store.postgres.url") != "":
		// yaml config
		return viper.GetString("store.postgres.url")
	case viper.GetString("STARLOAD_POSTGRES_URL") != "":
		// env config
		return viper.GetString("STARLOAD_POSTGRES_URL")
	default:
		// CLI argument
		return viper.GetString("pgurl")
	}
}

func PolicyFile() (string, error) {
	switch {
	case viper.GetString("policy") != "":
		// CLI argument
		return viper.GetString("policy"), nil
	case viper.GetString("run.policy_file") != "":
		// yaml config
		return viper.GetString("run.policy_file"), nil
	case viper.GetString("STARLOAD_POLICY_FILE") != "":
		// env config
		return viper.GetString("STARLOAD_POLICY_FILE"), nil
	default:
		return "", errMissingPolicyFile
	}
}

// HashSalt returns the process-wide secret used by salted hash rules. It is
// deployment configuration and must never be logged or persisted.
func HashSalt() string {
	if salt := viper.GetString("run.hash_salt"); salt != "" {
		return salt
	}
	return viper.GetString("STARLOAD_HASH_SALT")
}

func DimensionWorkers() uint {
	if workers := viper.GetUint("run.dimension_workers"); workers > 0 {
		return workers
	}
	if workers := viper.GetUint("dimension-workers"); workers > 0 {
		return workers
	}
	return 1
}

func FailOnUnresolved() bool {
	return viper.GetBool("run.fail_on_unresolved") || viper.GetBool("fail-on-unresolved")
}

// ConnectBackoff configures the retry policy for establishing the store
// connection at startup.
func ConnectBackoff() *backoff.Config {
	return &backoff.Config{
		Exponential: &backoff.ExponentialConfig{
			InitialInterval: time.Second,
			MaxInterval:     time.Minute,
			MaxRetries:      5,
		},
	}
}
