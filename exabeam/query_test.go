package exabeam_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	siemfeed "github.com/tphakala/go-siemfeed"
	"github.com/tphakala/go-siemfeed/exabeam"
)

func intPtr(n int) *int {
	return &n
}

func TestPageWindow(t *testing.T) {
	t.Run("valid windows", func(t *testing.T) {
		tests := []struct {
			name     string
			page     *int
			pageSize *int
			limit    *int
			wantFrom int
			wantSize int
		}{
			{"defaults", nil, nil, nil, 0, 50},
			{"limit alone", nil, nil, intPtr(100), 0, 100},
			{"first page", intPtr(1), intPtr(50), nil, 0, 50},
			{"second page", intPtr(2), intPtr(5), nil, 5, 5},
			{"later page", intPtr(3), intPtr(25), nil, 50, 25},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				from, size, err := exabeam.PageWindow(tt.page, tt.pageSize, tt.limit)
				require.NoError(t, err)
				assert.Equal(t, tt.wantFrom, from)
				assert.Equal(t, tt.wantSize, size)
			})
		}
	})

	t.Run("invalid combinations", func(t *testing.T) {
		tests := []struct {
			name     string
			page     *int
			pageSize *int
			limit    *int
			wantMsg  string
		}{
			{"limit with page pair", intPtr(1), intPtr(50), intPtr(100),
				"You can only provide 'limit' alone or 'page' and 'page_size' together."},
			{"limit with page", intPtr(1), nil, intPtr(100),
				"You can only provide 'limit' alone or 'page' and 'page_size' together."},
			{"page without page_size", intPtr(1), nil, nil,
				"You can only provide 'limit' alone or 'page' and 'page_size' together."},
			{"page_size without page", nil, intPtr(50), nil,
				"You can only provide 'limit' alone or 'page' and 'page_size' together."},
			{"zero page", intPtr(0), intPtr(50), nil,
				"'page' and 'page_size' must be positive integers"},
			{"negative page_size", intPtr(1), intPtr(-1), nil,
				"'page' and 'page_size' must be positive integers"},
			{"zero limit", nil, nil, intPtr(0),
				"'limit' must be a positive integer"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := exabeam.PageWindow(tt.page, tt.pageSize, tt.limit)
				require.Error(t, err)

				var validationErr *siemfeed.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.wantMsg, validationErr.Message)
			})
		}
	})
}

func TestDatesInRange(t *testing.T) {
	t.Run("expands each day in the range", func(t *testing.T) {
		dates, err := exabeam.DatesInRange("2024-05-01", "2024-05-10")
		require.NoError(t, err)

		assert.Equal(t, []string{
			"2024.05.01", "2024.05.02", "2024.05.03", "2024.05.04", "2024.05.05",
			"2024.05.06", "2024.05.07", "2024.05.08", "2024.05.09", "2024.05.10",
		}, dates)
	})

	t.Run("two day range", func(t *testing.T) {
		dates, err := exabeam.DatesInRange("2024-05-01", "2024-05-02")
		require.NoError(t, err)
		assert.Equal(t, []string{"2024.05.01", "2024.05.02"}, dates)
	})

	t.Run("crosses a month boundary", func(t *testing.T) {
		dates, err := exabeam.DatesInRange("2024-04-29", "2024-05-02")
		require.NoError(t, err)
		assert.Equal(t, []string{"2024.04.29", "2024.04.30", "2024.05.01", "2024.05.02"}, dates)
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := exabeam.DatesInRange("2024-05-10", "2024-05-01")
		require.Error(t, err)

		var validationErr *siemfeed.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "Start time must be before end time", validationErr.Message)
	})

	t.Run("start equal to end", func(t *testing.T) {
		_, err := exabeam.DatesInRange("2024-05-01", "2024-05-01")
		require.Error(t, err)

		var validationErr *siemfeed.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "Start time must be before end time", validationErr.Message)
	})

	t.Run("range of eleven days is rejected", func(t *testing.T) {
		_, err := exabeam.DatesInRange("2024-05-01", "2024-05-11")
		require.Error(t, err)

		var validationErr *siemfeed.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t,
			"Difference between start time and end time must be less than or equal to 10 days",
			validationErr.Message)
	})

	t.Run("wider range is rejected", func(t *testing.T) {
		_, err := exabeam.DatesInRange("2024-05-01", "2024-05-15")
		require.Error(t, err)

		var validationErr *siemfeed.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("invalid start time", func(t *testing.T) {
		_, err := exabeam.DatesInRange("01/05/2024", "2024-05-02")
		require.Error(t, err)

		var validationErr *siemfeed.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("invalid end time", func(t *testing.T) {
		_, err := exabeam.DatesInRange("2024-05-01", "next tuesday")
		require.Error(t, err)

		var validationErr *siemfeed.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})
}
