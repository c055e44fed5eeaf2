package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/raine/rapidlisting/internal/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPromptCmd_AutoParts(t *testing.T) {
	out, err := runCmd(t, "prompt", "--mode", "auto",
		"--set", "make=Toyota", "--set", "model=Camry", "--set", "partName=Headlight")
	require.NoError(t, err)

	item := listing.NewAutoPartItem()
	item.Make = "Toyota"
	item.Model = "Camry"
	item.PartName = "Headlight"
	assert.Equal(t, listing.BuildPrompt(item), out)
}

func TestPromptCmd_GeneralItems(t *testing.T) {
	out, err := runCmd(t, "prompt", "-m", "general", "-s", "itemName=Nintendo Switch", "-s", "notes=a=b")
	require.NoError(t, err)
	assert.Contains(t, out, "Nintendo Switch")
	assert.Contains(t, out, "a=b")
	assert.NotContains(t, out, "Make:")
}

func TestPromptCmd_Errors(t *testing.T) {
	cases := map[string][]string{
		"unknown mode":  {"prompt", "--mode", "boats"},
		"missing value": {"prompt", "--set", "make"},
		"empty key":     {"prompt", "--set", "=Toyota"},
		"unknown field": {"prompt", "--mode", "auto", "--set", "upc=123"},
		"bad condition": {"prompt", "--set", "condition=Mint"},
		"extra args":    {"prompt", "toyota"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runCmd(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestPromptCmd_GenerateNeedsRequiredFields(t *testing.T) {
	_, err := runCmd(t, "prompt", "--mode", "auto", "--set", "make=Toyota", "--generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partName")
}

func TestParseModeFlag(t *testing.T) {
	for _, s := range []string{"auto", "AUTO", "auto-parts", "AUTO_PARTS"} {
		m, err := parseModeFlag(s)
		require.NoError(t, err, s)
		assert.Equal(t, listing.ModeAutoParts, m)
	}
	for _, s := range []string{"general", "General-Items", "GENERAL_ITEMS"} {
		m, err := parseModeFlag(s)
		require.NoError(t, err, s)
		assert.Equal(t, listing.ModeGeneralItems, m)
	}
	_, err := parseModeFlag("")
	assert.ErrorIs(t, err, listing.ErrUnknownMode)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	result := &listing.Result{
		EbayTitle:             "et",
		EbayDescription:       "ed",
		FacebookTitle:         "ft",
		FacebookDescription:   "fd",
		CraigslistTitle:       "ct",
		CraigslistDescription: "cd",
	}
	require.NoError(t, printResult(&buf, result))

	out := buf.String()
	for _, f := range listing.ResultFields() {
		assert.Contains(t, out, f.Platform+" "+f.Label)
		assert.Contains(t, out, "\n"+result.Get(f.Key)+"\n")
	}
}

func TestExtractCmd_MissingFile(t *testing.T) {
	_, err := runCmd(t, "extract", filepath.Join(t.TempDir(), "nope.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read image")
}

func TestExtractCmd_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0644))

	_, err := runCmd(t, "extract", path)
	assert.Error(t, err)
}

func TestLogFileFlag(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rapidlisting.log")
	_, err := runCmd(t, "--log-file", logPath, "prompt")
	require.NoError(t, err)
	assert.FileExists(t, logPath)
}

func TestOpenCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := openCache(path)
	require.NoError(t, err)
	require.NoError(t, store.SetExtraction("hash", "gemini-2.5-flash", "OEM 1"))
	require.NoError(t, store.Close())

	store, err = openCache(path)
	require.NoError(t, err)
	defer store.Close()
	entries, err := store.CountExtractions()
	require.NoError(t, err)
	assert.Equal(t, 1, entries)
}
