package arabic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTashkeel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ذهب الولد", StripTashkeel("ذَهَبَ الوَلَدُ"))
	assert.Equal(t, "plain", StripTashkeel("plain"))
}

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	got := SplitSentences("ذهب الولد.  جاء   المعلم. . ")
	assert.Equal(t, []string{"ذهب الولد", "جاء المعلم"}, got)
	assert.Empty(t, SplitSentences("  "))
}

func TestNormalizeSpace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", NormalizeSpace(" a \n b\t\tc "))
}

func TestNormalizeSpaceReplacesNonBreakingSpace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ذهب الولد", NormalizeSpace("ذهب\u00a0الولد"))
}
