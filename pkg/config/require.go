package config

import (
	"bytes"
	"log"
)

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// MustDistinctSecrets stops startup when access and refresh tokens would share a key.
func MustDistinctSecrets(access, refresh []byte, accessEnv, refreshEnv string) {
	if bytes.Equal(access, refresh) {
		log.Fatalf("%s and %s must differ", accessEnv, refreshEnv)
	}
}
