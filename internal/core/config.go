package core

import "time"

// Configuration keys persisted alongside the records.
const (
	ConfigCurrency           = "currency"
	ConfigDateFormat         = "dateFormat"
	ConfigOnboardingComplete = "onboardingComplete"
	ConfigLastUpdate         = "lastUpdate"
	ConfigVersion            = "version"
	ConfigLocale             = "locale"
)

const SchemaVersion = "1.0.0"

// DefaultConfig returns the entries written when a store is initialised.
func DefaultConfig(now time.Time) []ConfigEntry {
	return []ConfigEntry{
		{Key: ConfigCurrency, Value: DefaultCurrency},
		{Key: ConfigDateFormat, Value: "DD/MM/YYYY"},
		{Key: ConfigOnboardingComplete, Value: "false"},
		{Key: ConfigLastUpdate, Value: now.UTC().Format(time.RFC3339)},
		{Key: ConfigVersion, Value: SchemaVersion},
		{Key: ConfigLocale, Value: "fr-FR"},
	}
}

// DefaultConfigMap is DefaultConfig as a map.
func DefaultConfigMap(now time.Time) map[string]string {
	m := make(map[string]string)
	for _, e := range DefaultConfig(now) {
		m[e.Key] = e.Value
	}
	return m
}
