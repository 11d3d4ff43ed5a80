package descriptor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zdohnal/cups-browsed/pkg/capability"
	"github.com/zdohnal/cups-browsed/pkg/models"
)

func testCaps() *models.Capabilities {
	return &models.Capabilities{
		MakeModel: "HP LaserJet 600",
		Keywords: map[string][]string{
			models.AttrMedia:     {"iso_a4_210x297mm", "na_letter_8.5x11in"},
			models.AttrColorMode: {"monochrome", "color"},
			models.AttrSides:     {"one-sided", "two-sided-long-edge"},
		},
		Resolutions: []models.Resolution{{X: 300, Y: 300}, {X: 600, Y: 600}},
		Defaults: map[string]string{
			models.AttrMedia: "iso_a4_210x297mm",
		},
		DefaultResolution: &models.Resolution{X: 600, Y: 600},
	}
}

func TestGenerate(t *testing.T) {
	gen := NewPPDGenerator(t.TempDir())

	path, err := gen.Generate("HP_LJ__alpha", testCaps(), nil)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	ppd := string(content)

	assert.True(t, strings.HasPrefix(ppd, "*PPD-Adobe:"))
	assert.Contains(t, ppd, `*NickName: "HP LaserJet 600, driverless"`)
	assert.Contains(t, ppd, "*DefaultPageSize: A4")
	assert.Contains(t, ppd, "*PageSize Letter:")
	assert.Contains(t, ppd, "*Duplex DuplexNoTumble/Long-Edge Binding:")
	assert.Contains(t, ppd, "*DefaultResolution: 600dpi")
	assert.Contains(t, ppd, "*ColorDevice: true")
}

func TestGenerateConstraints(t *testing.T) {
	gen := NewPPDGenerator(t.TempDir())

	conflicts := []capability.ConstraintPair{
		{
			First:  capability.OptionValue{Keyword: models.AttrColorMode, Value: "color"},
			Second: capability.OptionValue{Keyword: models.AttrSides, Value: "two-sided-long-edge"},
		},
	}

	path, err := gen.Generate("q", testCaps(), conflicts)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(content),
		`*UIConstraints: "*ColorModel RGB *Duplex DuplexNoTumble"`)
}

func TestGenerateNilCapabilities(t *testing.T) {
	gen := NewPPDGenerator(t.TempDir())

	_, err := gen.Generate("q", nil, nil)
	assert.Error(t, err)
}

func TestEditInsertsFilterAndRemoteDirective(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ppd")

	ppd := "*PPD-Adobe: \"4.3\"\n*NickName: \"HP LaserJet 600, driverless\"\n*DefaultPageSize: A4\n"
	require.NoError(t, os.WriteFile(path, []byte(ppd), 0o644))

	nickname, err := Edit(path, &EditOptions{RemoteQueueID: "lj"})
	require.NoError(t, err)
	assert.Equal(t, "HP LaserJet 600, driverless", nickname)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(string(content), "\n")
	require.GreaterOrEqual(t, len(lines), 3)

	// The filter redirection sits directly below the header.
	assert.Equal(t, `*cupsFilter2: "application/vnd.cups-pdf application/pdf 0 -"`, lines[1])
	assert.Equal(t, `*cupsRemoteQueue: "lj"`, lines[2])
}

func TestEditRestoresDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ppd")

	ppd := "*PPD-Adobe: \"4.3\"\n*DefaultPageSize: A4\n*DefaultDuplex: None\n"
	require.NoError(t, os.WriteFile(path, []byte(ppd), 0o644))

	_, err := Edit(path, &EditOptions{
		Defaults: map[string]string{
			"PageSize":  "Letter",
			"Duplex":    "DuplexNoTumble",
			"OutputBin": "Tray2",
		},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	ppdOut := string(content)

	assert.Contains(t, ppdOut, "*DefaultPageSize: Letter")
	assert.Contains(t, ppdOut, "*DefaultDuplex: DuplexNoTumble")
	assert.NotContains(t, ppdOut, "*DefaultPageSize: A4")

	// Unmentioned options are appended.
	assert.Contains(t, ppdOut, "*DefaultOutputBin: Tray2")
}

func TestNickname(t *testing.T) {
	assert.Equal(t, "X", Nickname("*PPD-Adobe: \"4.3\"\n*NickName: \"X\"\n"))
	assert.Equal(t, "", Nickname("*PPD-Adobe: \"4.3\"\n"))
}
