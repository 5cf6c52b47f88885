package models

// BasicResponse is the envelope used by simple status endpoints
type BasicResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Endpoint describes one route advertised by the home page
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// HomeResponse is the service descriptor returned by the home endpoint
type HomeResponse struct {
	Service   string     `json:"service"`
	Version   string     `json:"version"`
	Message   string     `json:"message"`
	Model     string     `json:"model"`
	Status    string     `json:"status"`
	Endpoints []Endpoint `json:"endpoints"`
}
