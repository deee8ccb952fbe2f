package domain

// Info is the payload of the directory/address query.
type Info struct {
	IPs  []string `json:"ips"`
	Port int      `json:"port"`
	Dir  string   `json:"dir"`
}

// SetDirRequest is the body of a destination change request.
type SetDirRequest struct {
	Dir string `json:"dir"`
}
