package providers

// Environment supplies the fields of a record that the visitor never types.
type Environment interface {
	// Page is the URI of the page the conversation was started from
	Page() string

	// Device is a user-agent-like description of the visitor's client
	Device() string
}

// StaticEnvironment is an Environment with fixed values
type StaticEnvironment struct {
	PageURI   string
	UserAgent string
}

func (e StaticEnvironment) Page() string { return e.PageURI }
func (e StaticEnvironment) Device() string { return e.UserAgent }
