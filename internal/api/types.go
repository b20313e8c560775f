package api

type LoadByEmployeeNumberRequest struct {
	EmployeeNumber string `json:"employeeNumber"`
}

type EnqueueRequest struct {
	Code  string `json:"code"`
	Pass  string `json:"pass"`
	Token string `json:"token"`
}

type EnqueueResponse struct {
	Enqueued bool `json:"enqueued"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
}

type KeyResponse struct {
	Key string `json:"key"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
