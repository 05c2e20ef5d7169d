package client

import (
	"encoding/json"

	"custodian-migrator/migrator/errors"
)

const (
	StatusOK   = "OK"
	StatusFail = "FAIL"
)

//Response of the custodian API: {"status": "OK"|"FAIL", "data": ..., "error": ...}.
//Bodies which are not JSON keep only the HTTP status and the raw body.
type Response struct {
	StatusCode int
	Body       []byte
	Status     string
	Data       json.RawMessage
	Error      *errors.RemoteError
	TotalCount int
}

func NewResponse(statusCode int, body []byte) *Response {
	response := &Response{StatusCode: statusCode, Body: body}
	var decoded struct {
		Status     string              `json:"status"`
		Data       json.RawMessage     `json:"data"`
		Error      *errors.RemoteError `json:"error"`
		TotalCount int                 `json:"total_count"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil {
		response.Status = decoded.Status
		response.Data = decoded.Data
		response.Error = decoded.Error
		response.TotalCount = decoded.TotalCount
	}
	return response
}

func (r *Response) IsOK() bool {
	return r.Status == StatusOK
}

func (r *Response) IsFail() bool {
	return r.Status == StatusFail
}

//ErrorCode returns the code of the error body, empty if there is none.
func (r *Response) ErrorCode() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

func (r *Response) String() string {
	return string(r.Body)
}
