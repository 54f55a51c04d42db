package request

// ScanRequest is the request body for recording an encounter
type ScanRequest struct {
	Code string `json:"code"`
}

// AnnotateRequest is the request body for updating an annotation.
// Omitted or null fields clear the stored value.
type AnnotateRequest struct {
	Note   *string `json:"note"`
	Rating *int    `json:"rating"`
}

// UpdateProfileRequest is the request body for replacing the caller's profile
type UpdateProfileRequest struct {
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name,omitempty"`
	PhotoURL  *string `json:"photo_url,omitempty"`
	Instagram *string `json:"instagram,omitempty"`
	Niche     *string `json:"niche,omitempty"`
	About     *string `json:"about,omitempty"`
	Helpful   *string `json:"helpful,omitempty"`
}
