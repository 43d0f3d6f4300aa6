package diagnostic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Warnf_RecordsAndMirrors(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	log.Warnf("track %d: %s", 18, "no sync mark")

	assert.Equal(t, []string{"track 18: no sync mark"}, log.Warnings)
	assert.Equal(t, "warning: track 18: no sync mark\n", buf.String())
}

func Test_Discard_RecordsWithoutMirroring(t *testing.T) {
	log := Discard()
	log.Warnf("ignored")
	assert.Equal(t, []string{"ignored"}, log.Warnings)
}
