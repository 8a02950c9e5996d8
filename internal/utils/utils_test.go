package utils

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTPCode_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestJoinOTPDigits(t *testing.T) {
	assert.Equal(t, "012345", JoinOTPDigits([]string{"0", "1", "2", "3", "4", "5"}))
	assert.Equal(t, "", JoinOTPDigits(nil))
}

func TestParseDueDate(t *testing.T) {
	due, err := ParseDueDate("2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), due)

	due, err = ParseDueDate(" 2030-01-01 ")
	require.NoError(t, err)
	assert.Equal(t, 2030, due.Year())

	for _, bad := range []string{"not-a-date", "", "2025-13-01", "15/03/2025"} {
		_, err := ParseDueDate(bad)
		assert.Error(t, err, bad)
	}
}
