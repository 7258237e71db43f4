package analytics

import (
	"bytes"
	"testing"

	"github.com/hupe1980/viewflow/logging"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	props := map[string]any{"project_id": 1}
	r.Track("Viewed Project", props)
	r.Track("Bookmarked", nil)
	r.Track("Viewed Project", nil)

	props["project_id"] = 2

	assert.Equal(t, []string{"Viewed Project", "Bookmarked", "Viewed Project"}, r.Names())
	assert.Equal(t, 2, r.Count("Viewed Project"))
	assert.Equal(t, 1, r.Events()[0].Properties["project_id"], "properties are copied")
	assert.Nil(t, r.Events()[1].Properties)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	Multi{a, nil, b}.Track("Searched", map[string]any{"q": "cat"})

	assert.Equal(t, []string{"Searched"}, a.Names())
	assert.Equal(t, []string{"Searched"}, b.Names())
}

func TestLogTracker(t *testing.T) {
	var buf bytes.Buffer
	cfg := logging.DefaultLoggerConfig()
	cfg.Output = &buf
	NewLogTracker(logging.NewLogger(cfg)).Track("Viewed Search", map[string]any{"source": "discovery"})

	assert.Contains(t, buf.String(), `"event":"Viewed Search"`)
	assert.Contains(t, buf.String(), `"source":"discovery"`)

	NewLogTracker(nil).Track("ignored", nil)
}
