package directory

// Person is the minimal display projection of a referenced user, agent or
// client: name, email and phone only. It exists for read-side expansion and
// never asserts that the underlying record is consistent with the reference.
type Person struct {
	ID    string
	Name  string
	Email string
	Phone *string
}
