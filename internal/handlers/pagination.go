package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var errInvalidPagination = errors.New("invalid pagination params")

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(defaultPageLimit)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, errInvalidPagination
		}
		limit = min(l, maxPageLimit)
	}

	return page, limit, nil
}

func paginated(data any, page, limit, total int64) gin.H {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return gin.H{
		"data": data,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	}
}
