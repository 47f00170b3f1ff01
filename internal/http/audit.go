package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	auditRepo "github.com/mrlokans/librarydesk/internal/database/audit"
	"github.com/mrlokans/librarydesk/internal/entities"
)

type AuditController struct {
	reader AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{reader: reader}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?type=&card_id=&entity_id=&limit=&offset=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, offset := parsePagination(c)
	filter := auditRepo.Filter{
		EventType: entities.AuditEventType(c.Query("type")),
		CardID:    c.Query("card_id"),
		EntityID:  c.Query("entity_id"),
	}

	events, total, err := ac.reader.Events(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
