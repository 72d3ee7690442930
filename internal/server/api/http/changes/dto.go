package changes

import (
	"time"

	"pinvault/internal/domain/record"
)

type listInput struct {
	Since time.Time `query:"since" doc:"Only changes strictly after this timestamp"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Changes []record.ChangeEvent `json:"changes"`
}
