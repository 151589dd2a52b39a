package policy

import (
	"testing"

	"github.com/leafsii/leafsii-cms/internal/db/entities"
	"github.com/leafsii/leafsii-cms/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRequireRole(t *testing.T) {
	admin := &domain.Caller{UserID: "1", Role: entities.RoleAdmin}
	author := &domain.Caller{UserID: "2", Role: entities.RoleAuthor}
	stranger := &domain.Caller{UserID: "3", Role: "guest"}

	tests := []struct {
		name   string
		caller *domain.Caller
		role   string
		want   error
	}{
		{"admin as admin", admin, entities.RoleAdmin, nil},
		{"admin as author", admin, entities.RoleAuthor, nil},
		{"author as author", author, entities.RoleAuthor, nil},
		{"author as admin", author, entities.RoleAdmin, domain.ErrPermissionDenied},
		{"unknown role as author", stranger, entities.RoleAuthor, domain.ErrPermissionDenied},
		{"anonymous", nil, entities.RoleAuthor, domain.ErrUnauthenticated},
		{"empty caller", &domain.Caller{}, entities.RoleAuthor, domain.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.caller, tt.role)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	assert.Error(t, RequireRole(admin, "owner"))
}

func TestRequireSelfOrRole(t *testing.T) {
	author := &domain.Caller{UserID: "2", Role: entities.RoleAuthor}

	assert.NoError(t, RequireSelfOrRole(author, "2", entities.RoleAdmin))
	assert.ErrorIs(t, RequireSelfOrRole(author, "1", entities.RoleAdmin), domain.ErrPermissionDenied)
	assert.ErrorIs(t, RequireSelfOrRole(nil, "1", entities.RoleAdmin), domain.ErrUnauthenticated)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("admin"))
	assert.True(t, ValidRole("author"))
	assert.False(t, ValidRole("editor"))
}
