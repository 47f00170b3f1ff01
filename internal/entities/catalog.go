package entities

import "time"

// Book is a catalog entry identified by its ISBN. The library holds a single
// copy of each title.
type Book struct {
	ISBN      string    `gorm:"primaryKey;column:isbn;size:13" json:"isbn"`
	Title     string    `gorm:"index;size:512;not null" json:"title"`
	Authors   []Author  `gorm:"many2many:book_authors;joinForeignKey:ISBN;joinReferences:AuthorID" json:"authors,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Author struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:256;not null" json:"name"`
}

// AuthorNames returns the author names in association order.
func (b Book) AuthorNames() []string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.Name)
	}
	return names
}

// CatalogEntry is a search result row: a book with its authors and whether it
// can be checked out right now.
type CatalogEntry struct {
	ISBN      string   `json:"isbn"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Available bool     `json:"available"`
}

func (Book) TableName() string {
	return "books"
}

func (Author) TableName() string {
	return "authors"
}
