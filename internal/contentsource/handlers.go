package contentsource

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"literacy-screening-platform/backend/internal/analysisservice"
)

// ItemsHandler serves GET /screening/levels/:level/items.
func (p *Provider) ItemsHandler(c *gin.Context) {
	level, err := strconv.Atoi(c.Param("level"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid level format"})
		return
	}

	items, err := p.ItemsForLevel(c.Request.Context(), level)
	if err != nil {
		if errors.Is(err, analysisservice.ErrContentService) {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Content service unavailable: %v", err)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, items)
}
