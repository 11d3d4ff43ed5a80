package capability

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

func capsA() *models.Capabilities {
	return &models.Capabilities{
		MakeModel:  "HP LaserJet 600",
		Throughput: 40,
		PDLs:       []string{"application/pdf", "image/urf"},
		Keywords: map[string][]string{
			models.AttrMedia:     {"iso_a4_210x297mm", "na_letter_8.5x11in"},
			models.AttrColorMode: {"monochrome"},
			models.AttrSides:     {"one-sided", "two-sided-long-edge"},
		},
		Resolutions: []models.Resolution{{X: 600, Y: 600}, {X: 300, Y: 300}},
		MediaSizes:  []models.MediaSize{{Width: 21000, Height: 29700}},
		Enums:       map[string][]int{models.AttrFinishings: {3}},
		Margins:     map[string][]int{"media-left-margin-supported": {423}},
		Defaults: map[string]string{
			models.AttrMedia:     "iso_a4_210x297mm",
			models.AttrColorMode: "monochrome",
		},
		DefaultResolution: &models.Resolution{X: 600, Y: 600},
	}
}

func capsB() *models.Capabilities {
	return &models.Capabilities{
		MakeModel:  "HP Color LaserJet",
		Throughput: 20,
		PDLs:       []string{"application/pdf", "application/postscript"},
		Keywords: map[string][]string{
			models.AttrMedia:     {"iso_a4_210x297mm"},
			models.AttrColorMode: {"monochrome", "color"},
			models.AttrSides:     {"one-sided"},
		},
		Resolutions: []models.Resolution{{X: 1200, Y: 1200}, {X: 600, Y: 600}},
		MediaSizes:  []models.MediaSize{{Width: 21000, Height: 29700}, {Width: 21590, Height: 27940}},
		Enums:       map[string][]int{models.AttrFinishings: {3, 4}},
		Margins:     map[string][]int{"media-left-margin-supported": {300}},
		Defaults:    map[string]string{models.AttrColorMode: "color"},
	}
}

func TestMergeUnions(t *testing.T) {
	merged := Merge([]*models.Capabilities{capsA(), capsB()})
	caps := merged.Capabilities

	assert.ElementsMatch(t,
		[]string{"application/pdf", "image/urf", "application/postscript"}, caps.PDLs)

	assert.Equal(t,
		[]string{"iso_a4_210x297mm", "na_letter_8.5x11in"}, caps.Keywords[models.AttrMedia])

	assert.Equal(t, []string{"monochrome", "color"}, caps.Keywords[models.AttrColorMode])

	// Resolutions are ordered by (x asc, y asc).
	require.Equal(t, []models.Resolution{
		{X: 300, Y: 300}, {X: 600, Y: 600}, {X: 1200, Y: 1200},
	}, caps.Resolutions)

	assert.Equal(t, []int{3, 4}, caps.Enums[models.AttrFinishings])
	assert.Equal(t, []int{300, 423}, caps.Margins["media-left-margin-supported"])
	assert.Len(t, caps.MediaSizes, 2)
}

func TestMergeDefaultsFromCanonicalProvider(t *testing.T) {
	merged := Merge([]*models.Capabilities{capsA(), capsB()})
	caps := merged.Capabilities

	// A has the higher throughput and is the canonical provider.
	assert.Equal(t, "HP LaserJet 600", caps.MakeModel)
	assert.Equal(t, "iso_a4_210x297mm", caps.Defaults[models.AttrMedia])
	assert.Equal(t, "monochrome", caps.Defaults[models.AttrColorMode])
	require.NotNil(t, caps.DefaultResolution)
	assert.Equal(t, models.Resolution{X: 600, Y: 600}, *caps.DefaultResolution)
	assert.Equal(t, 40, caps.Throughput)
}

func TestMergeAutoSubstitution(t *testing.T) {
	a := capsA()
	delete(a.Defaults, models.AttrColorMode)

	b := capsB()
	b.Throughput = 10
	delete(b.Defaults, models.AttrColorMode)

	merged := Merge([]*models.Capabilities{a, b})

	// Two color modes in the union, no explicit default on the provider.
	assert.Equal(t, AutoValue, merged.Capabilities.Defaults[models.AttrColorMode])
}

func TestMergeSingleValueNoAuto(t *testing.T) {
	a := capsA()
	a.Keywords[models.AttrColorMode] = []string{"monochrome"}
	delete(a.Defaults, models.AttrColorMode)

	merged := Merge([]*models.Capabilities{a})

	assert.Equal(t, "monochrome", merged.Capabilities.Defaults[models.AttrColorMode])
}

// Running the merger twice on the same member set yields identical output.
func TestMergeIdempotent(t *testing.T) {
	members := []*models.Capabilities{capsA(), capsB()}

	first := Merge(members)
	second := Merge(members)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("merge is not deterministic:\n%#v\nvs\n%#v", first, second)
	}
}

func TestConflicts(t *testing.T) {
	// A prints two-sided but only monochrome; B prints color but only
	// one-sided. color + two-sided is satisfiable by nobody.
	merged := Merge([]*models.Capabilities{capsA(), capsB()})

	want := ConstraintPair{
		First:  OptionValue{Keyword: models.AttrColorMode, Value: "color"},
		Second: OptionValue{Keyword: models.AttrSides, Value: "two-sided-long-edge"},
	}

	var found, foundMirror bool

	for _, pair := range merged.Conflicts {
		if pair == want {
			found = true
		}

		if pair == mirror(want) {
			foundMirror = true
		}
	}

	assert.True(t, found, "expected color/two-sided constraint")
	assert.True(t, foundMirror, "expected mirrored constraint")

	// monochrome + one-sided works on both members: no constraint.
	for _, pair := range merged.Conflicts {
		if pair.First.Value == "monochrome" && pair.Second.Value == "one-sided" {
			t.Fatalf("unexpected constraint %+v", pair)
		}
	}
}

func TestConflictsSkipAuto(t *testing.T) {
	a := capsA()
	a.Keywords[models.AttrColorMode] = []string{"monochrome", AutoValue}

	b := capsB()

	merged := Merge([]*models.Capabilities{a, b})

	for _, pair := range merged.Conflicts {
		if pair.First.Value == AutoValue || pair.Second.Value == AutoValue {
			t.Fatalf("constraint involves auto: %+v", pair)
		}
	}
}

func TestConflictsEmittedOnce(t *testing.T) {
	merged := Merge([]*models.Capabilities{capsA(), capsB()})

	seen := make(map[ConstraintPair]int)
	for _, pair := range merged.Conflicts {
		seen[pair]++
	}

	for pair, n := range seen {
		if n != 1 {
			t.Fatalf("constraint %+v emitted %d times", pair, n)
		}
	}
}

func TestMergeSingleMemberHasNoConflicts(t *testing.T) {
	merged := Merge([]*models.Capabilities{capsA()})
	assert.Empty(t, merged.Conflicts)
}

func TestMergeNilMembersIgnored(t *testing.T) {
	merged := Merge([]*models.Capabilities{nil, capsA(), nil})
	assert.Equal(t, "HP LaserJet 600", merged.Capabilities.MakeModel)
}

func TestMediaColSanitisedUnion(t *testing.T) {
	a := capsA()
	a.MediaCols = []models.MediaCol{{Width: 21000, Height: 29700, Source: "Main Tray", Type: "Plain Paper"}}

	b := capsB()
	b.MediaCols = []models.MediaCol{{Width: 21000, Height: 29700, Source: "main-tray", Type: "plain-paper"}}

	merged := Merge([]*models.Capabilities{a, b})

	require.Len(t, merged.Capabilities.MediaCols, 1)
	assert.Equal(t, "main-tray", merged.Capabilities.MediaCols[0].Source)
}
