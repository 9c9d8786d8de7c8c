package config

import "time"

func GetEnvAsBool(key string, defaultValue bool) bool {
	return getEnvAsBool(key, defaultValue)
}

func ParseEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	var env envParser
	val := env.duration(key, defaultValue)
	return val, env.err()
}

func AllNonEmpty(keyValues map[string]string) error {
	return allNonEmpty(keyValues)
}

func AllNumbers(keyValues map[string]string) error {
	return allNumbers(keyValues)
}
