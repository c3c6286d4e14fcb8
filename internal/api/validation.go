package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
	"github.com/2001Abhinav/job-posting-platform/internal/workflow"
)

// parseListQuery reads the public search parameters. Bounds and defaults
// for page and limit are applied by the service.
func parseListQuery(c *gin.Context) (workflow.ListQuery, error) {
	q := workflow.ListQuery{
		Search:     c.Query("search"),
		Location:   c.Query("location"),
		Type:       c.Query("type"),
		Experience: c.Query("experience"),
	}

	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return workflow.ListQuery{}, err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return workflow.ListQuery{}, err
	}
	return q, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	s := c.Query(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.Invalid(name, "must be an integer")
	}
	return n, nil
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid(field, fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}
