// Package catalog stores books and their authors.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// AddBook inserts a catalog entry and links it to the named authors, creating
// authors that do not exist yet. Inserting an ISBN twice fails with a
// duplicate key error.
func (r *Repository) AddBook(ctx context.Context, isbn, title string, authorNames []string) (*entities.Book, error) {
	book := &entities.Book{ISBN: isbn, Title: title}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool, len(authorNames))
		for _, name := range authorNames {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			var author entities.Author
			if err := tx.Where(entities.Author{Name: name}).FirstOrCreate(&author).Error; err != nil {
				return fmt.Errorf("failed to resolve author %q: %w", name, err)
			}
			book.Authors = append(book.Authors, author)
		}

		// Authors already exist, only the join rows are written.
		return tx.Omit("Authors.*").Create(book).Error
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (r *Repository) GetBook(ctx context.Context, isbn string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Preload("Authors", orderAuthors).
		Where("isbn = ?", isbn).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Exists reports whether a catalog entry with this ISBN exists.
func (r *Repository) Exists(ctx context.Context, isbn string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Where("isbn = ?", isbn).Count(&count).Error
	return count > 0, err
}

// Search matches the query as an exact ISBN or as a case-insensitive
// substring of the title or of any author name. Results are ordered by title.
func (r *Repository) Search(ctx context.Context, query string) ([]entities.Book, error) {
	db := r.db.WithContext(ctx)
	pattern := "%" + strings.ToLower(query) + "%"

	byAuthor := db.Table("book_authors").
		Select("book_authors.isbn").
		Joins("JOIN authors ON authors.id = book_authors.author_id").
		Where("LOWER(authors.name) LIKE ?", pattern)

	var books []entities.Book
	err := db.Preload("Authors", orderAuthors).
		Where("isbn = ? OR LOWER(title) LIKE ? OR isbn IN (?)", query, pattern, byAuthor).
		Order("title ASC, isbn ASC").
		Find(&books).Error
	return books, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}

func orderAuthors(db *gorm.DB) *gorm.DB {
	return db.Order("authors.name ASC")
}
