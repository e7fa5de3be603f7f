package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedRows = `[{"name":"a","likes":1},{"name":"b"}]`

func TestSchema_Text(t *testing.T) {
	data := writeFile(t, t.TempDir(), "rows.json", mixedRows)

	out, _, err := runCommand(t, NewSchemaCommand(testOptions(t, "text")), data)
	require.NoError(t, err)
	assert.Equal(t, "{name: string, likes?: number}\n", out)
}

func TestSchema_CUE(t *testing.T) {
	data := writeFile(t, t.TempDir(), "rows.json", mixedRows)

	out, _, err := runCommand(t, NewSchemaCommand(testOptions(t, "text")), "--as", "cue", data)
	require.NoError(t, err)
	assert.Equal(t, "#Row: {\n\tname!: string\n\tlikes?: number\n\t...\n}\n", out)
}

func TestSchema_JSONSchema(t *testing.T) {
	data := writeFile(t, t.TempDir(), "rows.json", mixedRows)

	out, _, err := runCommand(t, NewSchemaCommand(testOptions(t, "text")), "--as", "jsonschema", data)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, []any{"name"}, doc["required"])
	assert.Contains(t, out, "\n  \"properties\"")
}

func TestSchema_JSONOutput(t *testing.T) {
	data := writeFile(t, t.TempDir(), "rows.yaml", "- {name: a, likes: 1}\n- {name: b}\n")

	out, _, err := runCommand(t, NewSchemaCommand(testOptions(t, "json")), data)
	require.NoError(t, err)

	var payload struct {
		Rows       int            `json:"rows"`
		Descriptor string         `json:"descriptor"`
		JSONSchema map[string]any `json:"json_schema"`
		CUE        string         `json:"cue"`
	}
	resp := decodeResponse(t, out, &payload)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, payload.Rows)
	assert.Equal(t, "{name: string, likes?: number}", payload.Descriptor)
	assert.Equal(t, "object", payload.JSONSchema["type"])
	assert.Contains(t, payload.CUE, "likes?: number")
}

func TestSchema_UnknownNotation(t *testing.T) {
	data := writeFile(t, t.TempDir(), "rows.json", mixedRows)

	out, _, err := runCommand(t, NewSchemaCommand(testOptions(t, "json")), "--as", "xsd", data)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeBadFormat, decodeResponse(t, out, nil).Error.Code)
}
