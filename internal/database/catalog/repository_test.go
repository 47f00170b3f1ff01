package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *database.Database) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db
}

func seedCatalog(t *testing.T, repo *Repository) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.AddBook(ctx, "0316769487", "The Catcher in the Rye", []string{"J. D. Salinger"})
	require.NoError(t, err)
	_, err = repo.AddBook(ctx, "0679601384", "Nine Stories", []string{"J. D. Salinger"})
	require.NoError(t, err)
	_, err = repo.AddBook(ctx, "0262033844", "Introduction to Algorithms", []string{"Thomas H. Cormen", "Charles E. Leiserson", "Ronald L. Rivest"})
	require.NoError(t, err)
}

func TestRepository_AddBook(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	t.Run("creates book with authors", func(t *testing.T) {
		book, err := repo.AddBook(ctx, "0262033844", "Introduction to Algorithms", []string{"Thomas H. Cormen", " Ronald L. Rivest ", ""})
		require.NoError(t, err)
		assert.Equal(t, "0262033844", book.ISBN)
		assert.Len(t, book.Authors, 2)
	})

	t.Run("reuses existing authors", func(t *testing.T) {
		_, err := repo.AddBook(ctx, "0070131511", "Algorithms Unlocked", []string{"Thomas H. Cormen"})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.DB.Model(&entities.Author{}).Where("name = ?", "Thomas H. Cormen").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("duplicate isbn is rejected", func(t *testing.T) {
		_, err := repo.AddBook(ctx, "0262033844", "Another Title", nil)
		require.Error(t, err)
		assert.True(t, database.IsDuplicateKey(err))
	})
}

func TestRepository_GetBook(t *testing.T) {
	repo, _ := setupTestDB(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	t.Run("existing book with sorted authors", func(t *testing.T) {
		book, err := repo.GetBook(ctx, "0262033844")
		require.NoError(t, err)
		assert.Equal(t, "Introduction to Algorithms", book.Title)
		assert.Equal(t, []string{"Charles E. Leiserson", "Ronald L. Rivest", "Thomas H. Cormen"}, book.AuthorNames())
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := repo.GetBook(ctx, "0000000000")
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	})
}

func TestRepository_Exists(t *testing.T) {
	repo, _ := setupTestDB(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "0316769487")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "0000000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_Search(t *testing.T) {
	repo, _ := setupTestDB(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	titles := func(books []entities.Book) []string {
		out := make([]string, 0, len(books))
		for _, b := range books {
			out = append(out, b.Title)
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"title substring is case insensitive", "catcher", []string{"The Catcher in the Rye"}},
		{"author substring matches all their books ordered by title", "salinger", []string{"Nine Stories", "The Catcher in the Rye"}},
		{"co-author matches", "rivest", []string{"Introduction to Algorithms"}},
		{"exact isbn", "0679601384", []string{"Nine Stories"}},
		{"no match", "tolstoy", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := repo.Search(ctx, tt.query)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, titles(books)); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}

	t.Run("results carry authors", func(t *testing.T) {
		books, err := repo.Search(ctx, "0316769487")
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, []string{"J. D. Salinger"}, books[0].AuthorNames())
		assert.WithinDuration(t, time.Now(), books[0].CreatedAt, time.Minute)
	})
}

func TestRepository_Count(t *testing.T) {
	repo, _ := setupTestDB(t)
	seedCatalog(t, repo)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
