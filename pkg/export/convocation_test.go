package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConvocation() Convocation {
	return Convocation{
		EventTitle:      "Analyse 2",
		EventKind:       "EXAM",
		Date:            "2026-06-10",
		StartTime:       "08:00",
		EndTime:         "10:00",
		RoomName:        "Amphi B",
		SeatNumber:      3,
		ParticipantName: "Bennis Omar",
		ExternalRef:     "CNE100",
		QRPayload:       "event-1|CNE100|room-b|3",
	}
}

func TestConvocationRender(t *testing.T) {
	renderer := NewConvocationRenderer(true)

	data, err := renderer.Render(sampleConvocation())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestConvocationRenderWithoutQR(t *testing.T) {
	renderer := NewConvocationRenderer(false)

	data, err := renderer.Render(sampleConvocation())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestConvocationRenderRequiresTitle(t *testing.T) {
	renderer := NewConvocationRenderer(false)

	conv := sampleConvocation()
	conv.EventTitle = ""
	_, err := renderer.Render(conv)
	require.Error(t, err)
}

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	data, err := exporter.Render(Dataset{
		Headers: []string{"Room", "Seat", "Ref"},
		Rows: [][]string{
			{"Amphi B", "1", "CNE010"},
			{"Amphi B", "2", "CNE050"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "Room,Seat,Ref")
	assert.Contains(t, string(data), "Amphi B,2,CNE050")
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()

	data, err := exporter.Render(Dataset{
		Headers: []string{"Room", "Seat"},
		Rows:    [][]string{{"Amphi B", "1"}},
	}, "Analyse 2")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
