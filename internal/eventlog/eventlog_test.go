package eventlog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLWriterOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLWriter(&buf)

	require.NoError(t, sink.Append(Event{Type: Candle, Fields: map[string]any{"t": 1, "c": "100"}}))
	require.NoError(t, sink.Append(Event{Type: Done, Fields: nil}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "candle", first["type"])
	assert.Equal(t, float64(1), first["t"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "done", second["type"])
}

func TestMemorySinkPreservesOrder(t *testing.T) {
	sink := NewMemorySink()
	require.NoError(t, sink.Append(Event{Type: Init}))
	require.NoError(t, sink.Append(Event{Type: Candle}))
	require.NoError(t, sink.Append(Event{Type: Done}))

	require.Len(t, sink.Events, 3)
	assert.Equal(t, Init, sink.Events[0].Type)
	assert.Equal(t, Candle, sink.Events[1].Type)
	assert.Equal(t, Done, sink.Events[2].Type)
}
