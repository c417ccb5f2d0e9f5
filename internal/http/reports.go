package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/labelgw/label-gateway/internal/model"
	"github.com/labelgw/label-gateway/internal/repository"
)

func listJobsHandler(chRepo repository.CHJobsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID := strings.TrimSpace(c.QueryParam("account_id"))
		if accountID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "account_id required"})
		}

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var st model.JobStatus
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			tmp := model.JobStatus(raw)
			if tmp.Valid() {
				st = tmp
			}
		}

		jobs, err := chRepo.ListByAccount(c.Request().Context(), accountID, st, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(jobs),
			"results": jobs,
		})
	}
}
