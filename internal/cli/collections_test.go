package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/equery/internal/store"
)

// importTweets stores tweetsJSON as the tweets collection in opts' database.
func importTweets(t *testing.T, opts *RootOptions) {
	t.Helper()
	data := writeFile(t, t.TempDir(), "tweets.json", tweetsJSON)
	_, _, err := runCommand(t, NewImportCommand(opts), "tweets", data)
	require.NoError(t, err)
}

func TestImport_ReplaceThenUnchanged(t *testing.T) {
	opts := testOptions(t, "text")
	data := writeFile(t, t.TempDir(), "tweets.json", tweetsJSON)

	out, _, err := runCommand(t, NewImportCommand(opts), "tweets", data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓ Imported 3 row(s) into tweets (fingerprint "), out)

	out, _, err = runCommand(t, NewImportCommand(opts), "tweets", data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓ tweets unchanged (3 row(s), fingerprint "), out)
}

func TestImport_Append(t *testing.T) {
	opts := testOptions(t, "text")
	importTweets(t, opts)

	more := writeFile(t, t.TempDir(), "more.yaml", "- {name: Kim, likes: 1}\n")
	out, _, err := runCommand(t, NewImportCommand(opts), "--append", "tweets", more)
	require.NoError(t, err)
	assert.Equal(t, "✓ Appended 1 row(s) to tweets (4 total)\n", out)
}

func TestImport_JSONFromStdin(t *testing.T) {
	opts := testOptions(t, "json")
	cmd := NewImportCommand(opts)
	cmd.SetIn(strings.NewReader(`[{"a": 1}, {"a": 2}]`))

	out, _, err := runCommand(t, cmd, "numbers")
	require.NoError(t, err)

	var payload ImportOutput
	resp := decodeResponse(t, out, &payload)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "numbers", payload.Collection.Name)
	assert.Equal(t, 2, payload.Imported)
	assert.EqualValues(t, 2, payload.Collection.Rows)
	assert.NotEmpty(t, payload.Collection.Fingerprint)
	assert.False(t, payload.Unchanged)
}

func TestImport_BadDataset(t *testing.T) {
	data := writeFile(t, t.TempDir(), "bad.json", `{"a": 1}`)

	out, _, err := runCommand(t, NewImportCommand(testOptions(t, "json")), "tweets", data)
	require.Error(t, err)
	assert.Equal(t, ErrCodeDataset, decodeResponse(t, out, nil).Error.Code)
}

func TestCollections_Empty(t *testing.T) {
	out, _, err := runCommand(t, NewCollectionsCommand(testOptions(t, "text")))
	require.NoError(t, err)
	assert.Equal(t, "No collections.\n", out)
}

func TestCollections_List(t *testing.T) {
	opts := testOptions(t, "text")
	importTweets(t, opts)

	out, _, err := runCommand(t, NewCollectionsCommand(opts))
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 3, out)
	assert.Equal(t, "tweets", fields[0])
	assert.Equal(t, "3", fields[1])

	opts.Format = "json"
	out, _, err = runCommand(t, NewCollectionsCommand(opts))
	require.NoError(t, err)
	var infos []store.CollectionInfo
	decodeResponse(t, out, &infos)
	require.Len(t, infos, 1)
	assert.Equal(t, "tweets", infos[0].Name)
	assert.Equal(t, fields[2], infos[0].Fingerprint)
}

func TestCollections_Show(t *testing.T) {
	opts := testOptions(t, "text")
	importTweets(t, opts)

	out, _, err := runCommand(t, NewCollectionsCommand(opts), "tweets")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "tweets: 3 row(s), fingerprint "), out)
	assert.NotContains(t, out, "Lucas")

	out, _, err = runCommand(t, NewCollectionsCommand(opts), "--rows", "tweets")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Lucas"`)

	opts.Format = "json"
	out, _, err = runCommand(t, NewCollectionsCommand(opts), "--rows", "tweets")
	require.NoError(t, err)
	var payload struct {
		Name string           `json:"name"`
		Rows int              `json:"rows"`
		Data []map[string]any `json:"data"`
	}
	decodeResponse(t, out, &payload)
	assert.Equal(t, "tweets", payload.Name)
	assert.Equal(t, 3, payload.Rows)
	require.Len(t, payload.Data, 3)
	assert.Equal(t, "Zoe", payload.Data[2]["name"])
}

func TestCollections_ShowMissing(t *testing.T) {
	out, _, err := runCommand(t, NewCollectionsCommand(testOptions(t, "json")), "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decodeResponse(t, out, nil).Error.Code)
}

func TestCollections_Contains(t *testing.T) {
	opts := testOptions(t, "text")
	importTweets(t, opts)

	out, _, err := runCommand(t, NewCollectionsCommand(opts), "--contains", `{"likes": 20, "name": "Amy"}`)
	require.NoError(t, err)
	assert.Equal(t, "tweets #2\n", out)

	out, _, err = runCommand(t, NewCollectionsCommand(opts), "--contains", `{"name": "Amy"}`)
	require.NoError(t, err)
	assert.Equal(t, "Not found.\n", out)

	opts.Format = "json"
	out, _, err = runCommand(t, NewCollectionsCommand(opts), "--contains", `[1]`)
	require.Error(t, err)
	assert.Equal(t, ErrCodeDataset, decodeResponse(t, out, nil).Error.Code)

	out, _, err = runCommand(t, NewCollectionsCommand(opts), "--contains", `{"name": `)
	require.Error(t, err)
	assert.Equal(t, ErrCodeReadFailed, decodeResponse(t, out, nil).Error.Code)
}

func TestCollections_Drop(t *testing.T) {
	opts := testOptions(t, "text")
	importTweets(t, opts)

	out, _, err := runCommand(t, NewCollectionsCommand(opts), "--drop", "tweets")
	require.NoError(t, err)
	assert.Equal(t, "✓ Dropped tweets\n", out)

	out, _, err = runCommand(t, NewCollectionsCommand(opts), "--drop", "tweets")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)

	out, _, err = runCommand(t, NewCollectionsCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "No collections.\n", out)
}
