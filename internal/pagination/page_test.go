package pagination

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPages(t *testing.T) {
	cases := []struct {
		total int
		want  int
	}{
		{0, 0},
		{1, 1},
		{49, 1},
		{50, 1},
		{51, 2},
		{100, 2},
		{101, 3},
		{-3, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Pages(tc.total), "total=%d", tc.total)
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(0))
	assert.Equal(t, 50, Offset(1))
	assert.Equal(t, 350, Offset(7))
	assert.Equal(t, 0, Offset(-1))
}

func TestOffset_HugePageSaturates(t *testing.T) {
	huge := math.MaxInt/2 + 1
	assert.Equal(t, MaxPage*PageSize, Offset(huge))
	assert.Positive(t, Offset(huge))
	assert.Positive(t, Offset(math.MaxInt))
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage("")
	require.NoError(t, err)
	assert.Equal(t, 0, page)

	page, err = ParsePage(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	_, err = ParsePage("abc")
	assert.Error(t, err)

	_, err = ParsePage("-1")
	assert.Error(t, err)

	page, err = ParsePage(strconv.Itoa(MaxPage))
	require.NoError(t, err)
	assert.Equal(t, MaxPage, page)

	_, err = ParsePage(strconv.Itoa(MaxPage + 1))
	assert.Error(t, err)

	_, err = ParsePage("4611686018427387904")
	assert.Error(t, err)
}
