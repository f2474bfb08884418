package ports

// TrustRoot is a parsed trust-root pattern that can check whether a
// candidate URL falls within its scope.
type TrustRoot interface {
	// ValidateURL reports whether rawURL is inside the trust root's scope.
	ValidateURL(rawURL string) bool
}

// TrustValidator parses trust-root patterns supplied by relying parties.
type TrustValidator interface {
	// Parse returns the parsed trust root, or an error when the pattern is
	// malformed or too permissive to be honored.
	Parse(trustRoot string) (TrustRoot, error)
}
