package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	d := NewWithWriter(&buf, false, true)

	d.Successf("exported %d workflows", 12)
	d.Warnf("manifest degraded")
	d.Errorf("dump failed")
	d.Infof("plain line")
	d.Detailf("detail line")

	out := buf.String()
	assert.Contains(t, out, "✓ exported 12 workflows")
	assert.Contains(t, out, "⚠ manifest degraded")
	assert.Contains(t, out, "✗ dump failed")
	assert.Contains(t, out, "plain line")
	assert.Contains(t, out, "  detail line")
}

func TestQuietSuppressesAllButWarnings(t *testing.T) {
	var buf bytes.Buffer
	d := NewWithWriter(&buf, true, true)

	d.Successf("hidden")
	d.Infof("hidden")
	d.Detailf("hidden")
	d.Header("hidden")
	d.KeyValue("hidden", "hidden")
	d.Warnf("still visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "⚠ still visible")
}

func TestHeaderUnderline(t *testing.T) {
	var buf bytes.Buffer
	d := NewWithWriter(&buf, false, true)

	d.Header("Summary")
	assert.Contains(t, buf.String(), "Summary\n=======\n")
}

func TestKeyValueAlignment(t *testing.T) {
	var buf bytes.Buffer
	d := NewWithWriter(&buf, false, true)

	d.KeyValue("Workflows", "12 records")
	assert.Contains(t, buf.String(), "Workflows:")
	assert.Contains(t, buf.String(), "12 records")
}

func TestHumanCount(t *testing.T) {
	assert.Equal(t, "1 set", HumanCount(1, "set"))
	assert.Equal(t, "0 sets", HumanCount(0, "set"))
	assert.Equal(t, "7 records", HumanCount(7, "record"))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", HumanSize(512))
	assert.Equal(t, "1.0 KiB", HumanSize(1024))
	assert.Equal(t, "1.5 MiB", HumanSize(3*1024*1024/2))
	assert.Equal(t, "2.0 GiB", HumanSize(2*1024*1024*1024))
}
