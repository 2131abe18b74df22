// Package config loads typed configuration structs from environment
// variables, with an optional .env file for local development.
//
// Each struct type is parsed once per process; repeated Load calls for the
// same type return the cached value. Required settings are declared with the
// `env:"NAME,required"` tag so that a missing value fails startup instead of
// surfacing mid-flow.
//
//	type OAuthConfig struct {
//		ClientID     string `env:"SSO_CLIENT_ID,required"`
//		ClientSecret string `env:"SSO_CLIENT_SECRET,required"`
//	}
//
//	var cfg OAuthConfig
//	config.MustLoad(&cfg)
package config
