// Package config resolves the process-level options from spec.md §6: an
// env-var-first, explicit-default, required-field-errors-out loader in
// the same style as the teacher's identity-file resolution, flattened to
// the apply core's much smaller option set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the resolved process configuration.
type Config struct {
	LedgerName           string
	LedgerRegion         string
	MaxSessionsPerLambda int
	MaxOCCRetries        int
	StrictMode           bool
	RevisionWriter       string
	LoadEventMapper      string
	BeforeImageFieldName string
	DispatchChannel      string
	MappingFile          string
}

const (
	envLedgerName      = "LEDGER_NAME"
	envLedgerRegion    = "LEDGER_REGION"
	envMaxSessions     = "MAX_SESSIONS_PER_LAMBDA"
	envMaxOCCRetries   = "MAX_OCC_RETRIES"
	envStrictMode      = "STRICT_MODE"
	envRevisionWriter  = "REVISION_WRITER"
	envLoadEventMapper = "LOAD_EVENT_MAPPER"
	envBeforeImage     = "BEFORE_IMAGE_FIELD_NAME"
	envDispatchChannel = "DISPATCH_CHANNEL"
	envMappingFile     = "MAPPING_FILE"
)

// Defaults for options spec.md §6 lists as optional.
const (
	DefaultMaxSessionsPerLambda = 1
	DefaultMaxOCCRetries        = 3
	DefaultStrictMode           = true
	DefaultRevisionWriter       = "back-link"
	DefaultBeforeImageField     = "before-image"
)

// Load resolves Config entirely from the process environment. LEDGER_NAME
// is the only required option; the options with a default constant above
// fall back to it when unset, and the rest stay empty.
func Load() (*Config, error) {
	cfg := &Config{
		LedgerName:           strings.TrimSpace(os.Getenv(envLedgerName)),
		LedgerRegion:         strings.TrimSpace(os.Getenv(envLedgerRegion)),
		MaxSessionsPerLambda: DefaultMaxSessionsPerLambda,
		MaxOCCRetries:        DefaultMaxOCCRetries,
		StrictMode:           DefaultStrictMode,
		RevisionWriter:       DefaultRevisionWriter,
		LoadEventMapper:      "",
		BeforeImageFieldName: DefaultBeforeImageField,
	}

	if cfg.LedgerName == "" {
		return nil, fmt.Errorf("config: %s is required", envLedgerName)
	}

	if v := os.Getenv(envMaxSessions); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("config: %s must be a positive integer, got %q", envMaxSessions, v)
		}
		cfg.MaxSessionsPerLambda = n
	}

	if v := os.Getenv(envMaxOCCRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("config: %s must be a non-negative integer, got %q", envMaxOCCRetries, v)
		}
		cfg.MaxOCCRetries = n
	}

	if v := os.Getenv(envStrictMode); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: %s must be a boolean, got %q", envStrictMode, v)
		}
		cfg.StrictMode = b
	}

	if v := os.Getenv(envRevisionWriter); v != "" {
		cfg.RevisionWriter = v
	}

	if v := os.Getenv(envLoadEventMapper); v != "" {
		cfg.LoadEventMapper = v
	}

	if v := os.Getenv(envBeforeImage); v != "" {
		cfg.BeforeImageFieldName = v
	}

	cfg.DispatchChannel = strings.TrimSpace(os.Getenv(envDispatchChannel))
	cfg.MappingFile = strings.TrimSpace(os.Getenv(envMappingFile))

	return cfg, nil
}
