package database

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionsQuery(t *testing.T) {
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no filter", func(t *testing.T) {
		query, args := collectionsQuery(CollectionFilter{}, today)
		assert.Equal(t, []interface{}{today}, args)
		assert.Contains(t, query, "WHERE 1=1\n")
		assert.Contains(t, query, "due_date < $1")
	})

	t.Run("course and years", func(t *testing.T) {
		query, args := collectionsQuery(CollectionFilter{
			Course:        " Computer Science ",
			AcademicYears: []string{"2023-2024", "2024-2025"},
		}, today)
		require.Len(t, args, 3)
		assert.Equal(t, "Computer Science", args[1])
		assert.Equal(t, pq.Array([]string{"2023-2024", "2024-2025"}), args[2])
		assert.Contains(t, query, "LOWER(plan_course) = LOWER($2)")
		assert.Contains(t, query, "academic_year = ANY($3)")
	})

	t.Run("years only", func(t *testing.T) {
		query, args := collectionsQuery(CollectionFilter{AcademicYears: []string{"2023-2024"}}, today)
		require.Len(t, args, 2)
		assert.Contains(t, query, "academic_year = ANY($2)")
	})
}
