package shared

// ConfirmDelete is the data of the shared delete confirmation page.
type ConfirmDelete struct {
	Kind    string
	Name    string
	Action  string
	Cancel  string
	Details []string
}

// Confirmed reports whether a delete post came from the confirmation page.
func Confirmed(value string) bool {
	return value == ConfirmValue
}
