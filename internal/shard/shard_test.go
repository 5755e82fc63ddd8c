package shard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, sheets map[string][][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestConvertExcel_OneShardPerSheet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")
	writeWorkbook(t, path, map[string][][]string{
		"A": {{"id", "name"}, {"1", "alpha"}},
		"B": {{"needle", "value"}, {"x", "y"}},
	})

	sheets, err := ConvertExcel(path)
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	var foundB bool
	for _, s := range sheets {
		if s.SheetName == "B" {
			foundB = true
			require.Contains(t, s.Text, "needle")
		}
	}
	require.True(t, foundB)
}

func TestExtractAll_SpreadsheetProducesTracedShards(t *testing.T) {
	root := t.TempDir()
	writeWorkbook(t, filepath.Join(root, "report.xlsx"), map[string][][]string{
		"A": {{"id", "name"}, {"1", "alpha"}},
		"B": {{"needle", "value"}, {"x", "y"}},
	})

	shardsDir := t.TempDir()
	m, err := ExtractAll(root, shardsDir)
	require.NoError(t, err)
	require.Len(t, m.IDToFile, 2)

	var matchID string
	for id, origin := range m.IDToFile {
		data, readErr := os.ReadFile(filepath.Join(shardsDir, id+".txt"))
		require.NoError(t, readErr)
		if origin.Sheet == "B" {
			require.Contains(t, string(data), "needle")
			matchID = id
		}
	}
	require.NotEmpty(t, matchID)

	wantAbs, err := filepath.Abs(filepath.Join(root, "report.xlsx"))
	require.NoError(t, err)

	origin := m.IDToFile[matchID]
	require.Equal(t, wantAbs, origin.OriginalFile)
	require.Equal(t, "B", origin.Sheet)
	require.Equal(t, "sheet: B", origin.Label())
}

func TestReclaimOrphans_RemovesUntrackedShardFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "99.txt"), []byte("stale"), 0o644))

	m := NewMap()
	m.Add(1, OriginRef{OriginalFile: "doc.pdf", Page: 1})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.txt"), []byte("kept"), 0o644))

	require.NoError(t, reclaimOrphans(dir, m))

	_, err := os.Stat(filepath.Join(dir, "99.txt"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
}

func TestSplitFormFeed_DropsBlankPages(t *testing.T) {
	pages := splitFormFeed("first\fsecond\f\f  \fthird")
	require.Equal(t, []string{"first", "second", "third"}, pages)
}

func TestBinaryExtensionSet_ContainsIsCaseInsensitive(t *testing.T) {
	set := NewBinaryExtensionSet([]string{".PNG", ".jpg"})
	require.True(t, set.Contains(".png"))
	require.True(t, set.Contains(".JPG"))
	require.False(t, set.Contains(".py"))
}

func TestShardMap_SaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	m := NewMap()
	m.Add(1, OriginRef{OriginalFile: "a.pdf", Page: 1})
	m.Add(2, OriginRef{OriginalFile: "a.pdf", Page: 2})
	require.NoError(t, m.Save(dir))

	loaded, err := LoadMap(dir)
	require.NoError(t, err)
	require.Equal(t, m.IDToFile, loaded.IDToFile)
	require.Equal(t, m.RelativePathToID, loaded.RelativePathToID)
}
