package repository

import "errors"

var (
	// ErrInvalidTenant is returned when a tenant key cannot name a directory.
	ErrInvalidTenant = errors.New("invalid tenant key")

	// ErrMissingTenant is returned when neither tenant identifier was supplied.
	ErrMissingTenant = errors.New("missing tenant key")
)

// ResolveKey picks the tenant key: teamID when present, slug otherwise.
// An empty value counts as absent, so teamID "" falls through to slug.
func ResolveKey(teamID, slug string) (string, error) {
	if teamID != "" {
		return teamID, nil
	}
	if slug != "" {
		return slug, nil
	}
	return "", ErrMissingTenant
}
