package driving

// AliasService maps short names to usernames.
type AliasService interface {
	// ParseAndUpdate applies "name=value" pairs in one write.
	ParseAndUpdate(pairs []string) (map[string]string, error)

	// Fetch returns the value of name, or "" if it is not an alias.
	Fetch(name string) (string, error)

	// Set stores one alias.
	Set(name, value string) error

	// Unset removes one alias.
	Unset(name string) error

	// UnsetByValue removes every alias pointing at value.
	UnsetByValue(value string) error

	// ByValue returns the first alias pointing at value.
	ByValue(value string) (string, error)

	// List returns every alias.
	List() (map[string]string, error)
}
