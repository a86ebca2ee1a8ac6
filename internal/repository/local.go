package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TenantStore maps tenant keys to flat directories under BaseDir.
//
// The layout is {BaseDir}/{tenant}/{artifact}. Nothing besides the files
// themselves is stored: size and recency come from the filesystem.
type TenantStore struct {
	BaseDir string
}

func NewTenantStore(baseDir string) *TenantStore {
	return &TenantStore{BaseDir: baseDir}
}

// Dir returns the directory owned by tenant. Keys that would escape BaseDir
// are rejected.
func (s *TenantStore) Dir(tenant string) (string, error) {
	if err := ValidateKey(tenant); err != nil {
		return "", err
	}
	return filepath.Join(s.BaseDir, tenant), nil
}

// ValidateKey reports whether tenant names a single path component.
func ValidateKey(tenant string) error {
	switch {
	case tenant == "":
		return ErrMissingTenant
	case tenant == "." || tenant == "..":
		return fmt.Errorf("%w: %q", ErrInvalidTenant, tenant)
	case strings.ContainsAny(tenant, `/\`) || strings.ContainsRune(tenant, 0):
		return fmt.Errorf("%w: %q", ErrInvalidTenant, tenant)
	}
	return nil
}

// Tenants lists the tenant directories currently present under BaseDir.
// A missing BaseDir yields no tenants.
func (s *TenantStore) Tenants() ([]string, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list tenants in %s: %w", s.BaseDir, err)
	}

	var tenants []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if ValidateKey(e.Name()) != nil {
			continue
		}
		tenants = append(tenants, e.Name())
	}
	return tenants, nil
}
