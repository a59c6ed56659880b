package dto

// ActionResponse is the payload of every engine trigger endpoint.
type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
