package user

// User is the caller identity resolved by the HTTP middleware. Id is the finance backend's user id
// and doubles as the draft namespace.
type User struct {
	Id    string
	Email string
}
