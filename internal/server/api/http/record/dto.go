package record

import (
	"pinvault/internal/domain/record"
)

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Records []record.CloudRecord `json:"records"`
}

type findInput struct {
	ID int64 `path:"id" example:"1714070000000" doc:"Record id"`
}

type findOutput struct {
	Body record.CloudRecord
}

type putInput struct {
	ID   int64 `path:"id" example:"1714070000000" doc:"Record id"`
	Body record.CloudRecord
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}
