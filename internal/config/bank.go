package config

import (
	"os"
	"time"
)

// BankConfig carries the operational knobs of the core ledger service:
// channel provisioning defaults, session lifetimes for card-present
// channels, and receipt retention.
type BankConfig struct {
	ATMInitialFloat   string
	SessionTTL        time.Duration
	ReceiptTTL        time.Duration
	StatementBIC      string
	StatementCurrency string
}

func LoadBankConfig() *BankConfig {
	return &BankConfig{
		ATMInitialFloat:   getEnv("BANK_ATM_INITIAL_FLOAT", "100000"),
		SessionTTL:        getEnvAsDuration("BANK_SESSION_TTL", 5*time.Minute),
		ReceiptTTL:        getEnvAsDuration("BANK_RECEIPT_TTL", 24*time.Hour),
		StatementBIC:      getEnv("BANK_STATEMENT_BIC", "KRTHTHBK"),
		StatementCurrency: getEnv("BANK_STATEMENT_CURRENCY", "THB"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
