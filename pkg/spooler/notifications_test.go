package spooler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Build a Get-Notifications style response with the writer and make sure the
// parser recovers the event groups, including 1setOf continuation values.
func TestParseIPPMessageEventGroups(t *testing.T) {
	var w ippWriter

	w.header(0x0000, 1) // status successful-ok
	w.group(tagOperationGroup)
	w.charsetAndLanguage()
	w.group(tagEventGroup)
	w.attr(tagKeyword, "notify-subscribed-event", "printer-deleted")
	w.attr(tagKeyword, "printer-name", "HP_LJ__alpha")
	w.attrInt(tagInteger, "notify-sequence-number", 7)
	w.group(tagEventGroup)
	w.attr(tagKeyword, "notify-subscribed-event", "job-state")
	w.attrInt(tagInteger, "notify-job-id", 42)
	w.attrInt(tagEnum, "job-state", 5)
	w.attr(tagKeyword, "marker", "a")
	w.attr(tagKeyword, "", "b") // additional value of "marker"
	w.end()

	status, groups, err := parseIPPMessage(w.bytes())
	require.NoError(t, err)
	assert.Equal(t, int16(0), status)
	require.Len(t, groups, 3)

	first := groups[1]
	assert.Equal(t, tagEventGroup, first.tag)

	event, ok := first.stringValue("notify-subscribed-event")
	assert.True(t, ok)
	assert.Equal(t, "printer-deleted", event)

	seq, ok := first.intValue("notify-sequence-number")
	assert.True(t, ok)
	assert.Equal(t, 7, seq)

	second := groups[2]

	jobID, ok := second.intValue("notify-job-id")
	assert.True(t, ok)
	assert.Equal(t, 42, jobID)

	state, ok := second.intValue("job-state")
	assert.True(t, ok)
	assert.Equal(t, 5, state)

	assert.Equal(t, []interface{}{"a", "b"}, second.attrs["marker"])
}

func TestParseIPPMessageTruncated(t *testing.T) {
	var w ippWriter

	w.header(0x0000, 1)
	w.group(tagOperationGroup)
	w.attr(tagKeyword, "attributes-charset", "utf-8")
	// No end-of-attributes delimiter.

	_, _, err := parseIPPMessage(w.bytes())
	assert.ErrorIs(t, err, errShortResponse)

	_, _, err = parseIPPMessage([]byte{0x02, 0x00})
	assert.ErrorIs(t, err, errShortResponse)
}

func TestStatusToError(t *testing.T) {
	assert.NoError(t, statusToError("op", 0x0000))
	assert.NoError(t, statusToError("op", 0x0001))
	assert.ErrorIs(t, statusToError("op", statusNotFound), ErrNotFound)
	assert.ErrorIs(t, statusToError("op", statusNotPossible), ErrNotPossible)

	var serr *StatusError

	err := statusToError("op", 0x0400)
	require.Error(t, err)
	assert.ErrorAs(t, err, &serr)
}
