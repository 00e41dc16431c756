package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/activity/internal/storage"
)

func TestImport_JSONArray(t *testing.T) {
	e := testEnv(t)

	data := `[
		{"url": "https://example.com/a", "title": "A", "last_visit_date": 1710151200000, "metadata_source": "Embedly"},
		{"url": "https://example.com/b", "title": "B", "last_visit_date": 1710151260000, "source": "firefox"}
	]`

	cmd := &ImportCommand{Source: "import", globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.run(e, strings.NewReader(data)))
	})
	assert.Contains(t, output, "Imported 2 visits (0 excluded, 0 invalid)")

	visits, err := e.store.ListVisits(context.Background(), storage.ListQuery{})
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "B", visits[0].Title)
	assert.JSONEq(t, `"firefox"`, string(visits[0].Extra["source"]))
	assert.NotContains(t, visits[1].Extra, "source", "the --source label stays out of the record")
	assert.JSONEq(t, `"Embedly"`, string(visits[1].Extra["metadata_source"]))

	firefox, err := e.store.ListVisits(context.Background(), storage.ListQuery{Source: "firefox"})
	require.NoError(t, err)
	assert.Len(t, firefox, 1)

	imported, err := e.store.ListVisits(context.Background(), storage.ListQuery{Source: "import"})
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "A", imported[0].Title)
}

func TestImport_RecordUnchangedByImport(t *testing.T) {
	e := testEnv(t)

	record := `{"url":"https://example.com/clip","title":"Clip","last_visit_date":1710151200000,` +
		`"media":{"type":"video","preview_url":"p","duration":30},"images":[{"url":"https://i"}]}`

	cmd := &ImportCommand{Source: "import", globals: &GlobalFlags{}}
	captureOutput(t, func() {
		require.NoError(t, cmd.run(e, strings.NewReader(record)))
	})

	visits, err := e.store.ListVisits(context.Background(), storage.ListQuery{})
	require.NoError(t, err)
	require.Len(t, visits, 1)

	got := visits[0]
	got.ID = ""
	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, record, string(out))
}

func TestImport_JSONLinesCountsInvalidAndExcluded(t *testing.T) {
	e := testEnv(t)

	data := strings.Join([]string{
		`{"url": "https://example.com/a", "title": "A", "last_visit_date": 1710151200000}`,
		``,
		`{"url": "https://example.com/b", "title": "B", "last_visit_date": "yesterday"}`,
		`{"title": "no url"}`,
		`not json at all`,
		`{"url": "https://accounts.google.com/signin", "title": "Sign in"}`,
	}, "\n")

	cmd := &ImportCommand{globals: &GlobalFlags{JSON: true}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.run(e, strings.NewReader(data)))
	})

	var res importResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Excluded)
	assert.Equal(t, 2, res.Invalid)
	assert.Len(t, res.Errors, 2)

	visits, err := e.store.ListVisits(context.Background(), storage.ListQuery{})
	require.NoError(t, err)
	require.Len(t, visits, 2)
	// A string timestamp is dropped rather than guessed.
	for _, v := range visits {
		if v.Title == "B" {
			assert.Nil(t, v.LastVisitDate)
		}
	}
}

func TestImport_EmptyInput(t *testing.T) {
	e := testEnv(t)

	cmd := &ImportCommand{globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.run(e, strings.NewReader("  \n")))
	})
	assert.Contains(t, output, "Imported 0 visits")
}

func TestImport_MalformedArray(t *testing.T) {
	e := testEnv(t)

	cmd := &ImportCommand{globals: &GlobalFlags{}}
	err := cmd.run(e, strings.NewReader(`[{"url": "https://example.com"`))
	assert.Error(t, err)
}
