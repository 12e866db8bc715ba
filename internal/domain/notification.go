package domain

// ConfirmationEmail is everything the mail worker needs to send an activation link.
type ConfirmationEmail struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Link     string `json:"link"`
}
