package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uni_directory/internal/app"
	"uni_directory/internal/compare"
	"uni_directory/internal/domain"
	"uni_directory/internal/storage/memory"
)

func setupTestQueries(t *testing.T) {
	t.Helper()
	store, err := memory.NewSeeded()
	require.NoError(t, err)
	SetQueries(app.NewQueryService(store, nil, 0))

	universityFlags, facultyFlags = listFlags{}, listFlags{}
	compareType, compareIDs, compareJSON = string(compare.Universities), nil, false
	t.Cleanup(func() { SetQueries(nil) })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "unictl", rootCmd.Use)
	for _, name := range []string{"universities", "faculties", "distance", "compare"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}
}

func TestUniversitiesCmd_FiltersAndSorts(t *testing.T) {
	setupTestQueries(t)

	out, err := run(t, "universities", "--min-rating", "8.5", "--sort", "rating")

	require.NoError(t, err)
	assert.Contains(t, out, "The American University in Cairo")
	assert.Contains(t, out, "German University in Cairo")
	assert.NotContains(t, out, "Alexandria University")
	assert.Less(t, strings.Index(out, "The American University"), strings.Index(out, "Cairo University  "))
	assert.Contains(t, out, "9.1")
}

func TestUniversitiesCmd_NoMatches(t *testing.T) {
	setupTestQueries(t)

	out, err := run(t, "universities", "--query", "no such place")

	require.NoError(t, err)
	assert.Contains(t, out, "No universities match.")
}

func TestUniversitiesCmd_NearNeedsTwoValues(t *testing.T) {
	setupTestQueries(t)

	_, err := run(t, "universities", "--sort", "distance", "--near", "30.0")

	assert.Error(t, err)
}

func TestFacultiesCmd_JSON(t *testing.T) {
	setupTestQueries(t)

	out, err := run(t, "faculties", "--max-fees", "5000", "--json")
	require.NoError(t, err)

	var got []domain.FacultyView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 4)
	for _, f := range got {
		require.NotNil(t, f.AnnualFeesEGP)
		assert.LessOrEqual(t, *f.AnnualFeesEGP, 5000.0)
		assert.NotNil(t, f.UniversityName)
	}
}

func TestFacultiesCmd_Table(t *testing.T) {
	setupTestQueries(t)

	out, err := run(t, "faculties", "--query", "energy")

	require.NoError(t, err)
	assert.Contains(t, out, "Faculty of Energy Engineering")
	assert.Contains(t, out, "Aswan University")
	assert.Contains(t, out, compare.NA)
}

func TestDistanceCmd(t *testing.T) {
	out, err := run(t, "distance", "30.0444", "31.2357", "31.2001", "29.9187")

	require.NoError(t, err)
	assert.Contains(t, out, "km")
	assert.True(t, strings.HasPrefix(out, "17") || strings.HasPrefix(out, "18"), out)
}

func TestDistanceCmd_RejectsBadInput(t *testing.T) {
	_, err := run(t, "distance", "30", "abc", "31", "29")
	assert.Error(t, err)

	_, err = run(t, "distance", "95", "31", "31", "29")
	assert.Error(t, err)

	_, err = run(t, "distance", "30", "31")
	assert.Error(t, err)
}

func TestCompareCmd_RendersTable(t *testing.T) {
	setupTestQueries(t)

	out, err := run(t, "compare", "--type", "universities", "--ids", "1,4")

	require.NoError(t, err)
	assert.Contains(t, out, "Overall Rating")
	assert.Contains(t, out, "Cairo University")
	assert.Contains(t, out, "The American University in Cairo")
	assert.Contains(t, out, "8.7")
}

func TestCompareCmd_NeedsTwoItems(t *testing.T) {
	setupTestQueries(t)

	out, err := run(t, "compare", "--ids", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Select at least two items")
}

func TestCompareCmd_LimitReached(t *testing.T) {
	setupTestQueries(t)

	_, err := run(t, "compare", "--ids", "1,2,3,4")

	require.Error(t, err)
	assert.Equal(t, compare.LimitMessage, err.Error())
}

func TestCompareCmd_DuplicatesCountOnce(t *testing.T) {
	setupTestQueries(t)

	out, err := run(t, "compare", "--type", "faculties", "--ids", "1,1,2", "--json")
	require.NoError(t, err)

	var table compare.Table
	require.NoError(t, json.Unmarshal([]byte(out), &table))
	assert.Len(t, table.Columns, 2)
}

func TestCompareCmd_UnknownItem(t *testing.T) {
	setupTestQueries(t)

	_, err := run(t, "compare", "--type", "faculties", "--ids", "1,99")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompareCmd_BadType(t *testing.T) {
	setupTestQueries(t)

	_, err := run(t, "compare", "--type", "dorms", "--ids", "1,2")

	assert.Error(t, err)
}
