package cursor

import (
	"pinvault/internal/domain/record"
)

type getOutput struct {
	Body getResponse
}

type getResponse struct {
	Cursor record.SyncCursor `json:"cursor"`
}

type putInput struct {
	Body record.SyncCursor
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}
