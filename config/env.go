package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment variable values
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// SubstituteEnvVarsInOperational applies ${VAR} substitution to the
// non-secret operational settings only; the cryptographic key material in
// Keys is always read directly from its own named environment variable,
// never through a YAML overlay.
func SubstituteEnvVarsInOperational(op *Operational) {
	if op == nil {
		return
	}
	op.ListenAddr = SubstituteEnvVars(op.ListenAddr)
	op.LogLevel = SubstituteEnvVars(op.LogLevel)
	op.Environment = SubstituteEnvVars(op.Environment)
	op.MailerSMTPHost = SubstituteEnvVars(op.MailerSMTPHost)
	op.MailerFrom = SubstituteEnvVars(op.MailerFrom)
}

// GetEnvironment returns the current environment from HASHRAND_ENV or
// falls back to ENVIRONMENT, defaulting to development.
func GetEnvironment() string {
	env := os.Getenv("HASHRAND_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction returns true if running in the production environment
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment returns true if running in development or local environment
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
