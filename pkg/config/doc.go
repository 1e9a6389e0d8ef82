// Package config loads environment-based configuration structs.
//
// Configuration is declared with env tags and loaded once per type for the
// process lifetime:
//
//	type GatewayConfig struct {
//		BaseURL string        `env:"AUTH_GATEWAY_URL,required"`
//		Timeout time.Duration `env:"AUTH_GATEWAY_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg GatewayConfig
//	if err := config.Load(&cfg); err != nil { ... }
//
// A .env file in the working directory is loaded on first use; a missing
// file is not an error.
package config
