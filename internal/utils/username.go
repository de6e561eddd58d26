package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"hms/internal/models"
)

// GenerateUsername builds first.last@domain, appending a numeric suffix
// to the local part until the result is free in the tenant store.
func GenerateUsername(ctx context.Context, store *gorm.DB, firstName, lastName, domain string) (string, error) {
	base := strings.ToLower(fmt.Sprintf("%s.%s", sanitizeNamePart(firstName), sanitizeNamePart(lastName)))
	candidate := fmt.Sprintf("%s@%s", base, domain)
	for suffix := 1; ; suffix++ {
		var existing models.User
		err := store.WithContext(ctx).First(&existing, "username = ?", candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d@%s", base, suffix, domain)
	}
}

func sanitizeNamePart(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
