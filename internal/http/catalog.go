package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	searcher CatalogSearcher
}

func NewCatalogController(searcher CatalogSearcher) *CatalogController {
	return &CatalogController{searcher: searcher}
}

// Search handles GET /api/books/search?q=
func (cc *CatalogController) Search(c *gin.Context) {
	results, err := cc.searcher.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondCirculationError(c, err, "search catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}
