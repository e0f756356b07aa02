package mappingconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `[
  {
    "source-table": "person",
    "target-table": "Person",
    "id-field": "gov_id",
    "fields": [
      {"source-field": "gov_id", "target-field": "GovId"},
      {"source-field": "first_name", "target-field": "FirstName"},
      {"source-field": "last_name", "target-field": "LastName"}
    ]
  }
]`

func TestLoadValid(t *testing.T) {
	mappings, err := Load(strings.NewReader(sampleJSON))
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "person", mappings[0].SourceTable)
	assert.Equal(t, "Person", mappings[0].TargetTable)
	assert.Equal(t, "gov_id", mappings[0].IDField)
	assert.Equal(t, "GovId", mappings[0].FieldMap["gov_id"])
}

func TestLoadRejectsDuplicateSourceTable(t *testing.T) {
	_, err := Load(strings.NewReader(`[
		{"source-table":"person","target-table":"Person","id-field":"id","fields":[]},
		{"source-table":"person","target-table":"Other","id-field":"id","fields":[]}
	]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source-table")
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	_, err := Load(strings.NewReader(`[{"source-table":"person","fields":[]}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target-table is required")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load(strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/mapping.json")
	require.Error(t, err)
}
