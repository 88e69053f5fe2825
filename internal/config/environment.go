package config

import (
	"os"
	"strings"
)

// Environment names a deployment target whose override document is merged
// over the base document.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// selectorVariables pick the environment document. They are never overlaid
// as configuration values even when they carry the override prefix.
var selectorVariables = []string{"TEST_ENVIRONMENT", "ENVIRONMENT"}

func isSelectorVariable(name string) bool {
	for _, selector := range selectorVariables {
		if name == selector {
			return true
		}
	}
	return false
}

// EnvironmentFromProcess reads TEST_ENVIRONMENT, then ENVIRONMENT, and falls
// back to Development.
func EnvironmentFromProcess() Environment {
	for _, key := range selectorVariables {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return Environment(value)
		}
	}
	return Development
}

// Environment returns the resolved environment name: the environment.name
// field when the documents define it, otherwise the name passed to Load.
func (r *Resolver) Environment() Environment {
	if name, ok := r.Get("environment.name").(string); ok && name != "" {
		return Environment(name)
	}
	return r.env
}

// IsEnvironment compares name to the resolved environment. The comparison is
// case-sensitive.
func (r *Resolver) IsEnvironment(name string) bool {
	return string(r.Environment()) == name
}

// IsProduction matches "production" and "prod".
func (r *Resolver) IsProduction() bool {
	return r.IsEnvironment(string(Production)) || r.IsEnvironment("prod")
}

// IsStaging matches "staging" and "stage".
func (r *Resolver) IsStaging() bool {
	return r.IsEnvironment(string(Staging)) || r.IsEnvironment("stage")
}

// IsDevelopment matches "development" and "dev".
func (r *Resolver) IsDevelopment() bool {
	return r.IsEnvironment(string(Development)) || r.IsEnvironment("dev")
}
