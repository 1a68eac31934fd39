package models

// Requests for screen HTTP endpoints. Defined in domain for consistency and reuse.

type RunScreenRequest struct {
	From    string `query:"from" json:"from" validate:"required"`
	To      string `query:"to" json:"to" validate:"required"`
	OnError string `query:"on_error" json:"on_error" validate:"omitempty,oneof=abort skip"`
}

type JobStatusRequest struct {
	ID string `param:"id" json:"id" validate:"required"`
}
