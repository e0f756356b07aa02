package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/qldb-ledger-load-go/internal/config"
)

func TestLoadRequiresLedgerName(t *testing.T) {
	t.Setenv("LEDGER_NAME", "")
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_NAME")
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("LEDGER_NAME", "my-ledger")
	t.Setenv("LEDGER_REGION", "")
	t.Setenv("MAX_SESSIONS_PER_LAMBDA", "")
	t.Setenv("MAX_OCC_RETRIES", "")
	t.Setenv("STRICT_MODE", "")
	t.Setenv("REVISION_WRITER", "")
	t.Setenv("LOAD_EVENT_MAPPER", "")
	t.Setenv("BEFORE_IMAGE_FIELD_NAME", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "my-ledger", cfg.LedgerName)
	assert.Equal(t, config.DefaultMaxSessionsPerLambda, cfg.MaxSessionsPerLambda)
	assert.Equal(t, config.DefaultMaxOCCRetries, cfg.MaxOCCRetries)
	assert.Equal(t, config.DefaultStrictMode, cfg.StrictMode)
	assert.Equal(t, config.DefaultRevisionWriter, cfg.RevisionWriter)
	assert.Equal(t, config.DefaultBeforeImageField, cfg.BeforeImageFieldName)
	assert.Empty(t, cfg.LoadEventMapper)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("LEDGER_NAME", "my-ledger")
	t.Setenv("LEDGER_REGION", "us-east-1")
	t.Setenv("MAX_SESSIONS_PER_LAMBDA", "4")
	t.Setenv("MAX_OCC_RETRIES", "10")
	t.Setenv("STRICT_MODE", "false")
	t.Setenv("REVISION_WRITER", "identity-field")
	t.Setenv("LOAD_EVENT_MAPPER", "file")
	t.Setenv("BEFORE_IMAGE_FIELD_NAME", "beforeImage")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.LedgerRegion)
	assert.Equal(t, 4, cfg.MaxSessionsPerLambda)
	assert.Equal(t, 10, cfg.MaxOCCRetries)
	assert.False(t, cfg.StrictMode)
	assert.Equal(t, "identity-field", cfg.RevisionWriter)
	assert.Equal(t, "file", cfg.LoadEventMapper)
	assert.Equal(t, "beforeImage", cfg.BeforeImageFieldName)
}

func TestLoadRejectsMalformedNumeric(t *testing.T) {
	t.Setenv("LEDGER_NAME", "my-ledger")
	t.Setenv("MAX_OCC_RETRIES", "not-a-number")
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_OCC_RETRIES")
}

func TestLoadRejectsMalformedBool(t *testing.T) {
	t.Setenv("LEDGER_NAME", "my-ledger")
	t.Setenv("STRICT_MODE", "sort-of")
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRICT_MODE")
}
