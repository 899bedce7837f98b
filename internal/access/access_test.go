package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTaskChecks(t *testing.T) {
	t.Parallel()

	creator := uuid.New()
	assignee := uuid.New()
	stranger := uuid.New()

	task := domain.NewTask("Write report", "", creator, time.Now())
	task.AssignedTo = &assignee

	tests := []struct {
		name       string
		principal  Principal
		wantView   bool
		wantUpdate bool
		wantDelete bool
	}{
		{"creator", Principal{creator, domain.RoleUser}, true, true, true},
		{"assignee", Principal{assignee, domain.RoleUser}, true, true, false},
		{"stranger", Principal{stranger, domain.RoleUser}, false, false, false},
		{"manager", Principal{stranger, domain.RoleManager}, true, true, true},
		{"admin", Principal{stranger, domain.RoleAdmin}, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantView, CanViewTask(tt.principal, task))
			assert.Equal(t, tt.wantUpdate, CanMutateTask(tt.principal, task, ActionUpdate))
			assert.Equal(t, tt.wantDelete, CanMutateTask(tt.principal, task, ActionDelete))

			err := AuthorizeMutateTask(tt.principal, task, ActionDelete)
			if tt.wantDelete {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
				assert.Contains(t, err.Error(), "delete task")
			}
		})
	}

	assert.False(t, CanViewTask(Principal{creator, domain.RoleAdmin}, nil))
	assert.ErrorIs(t, AuthorizeViewTask(Principal{stranger, domain.RoleUser}, task), ErrForbidden)
}

func TestUserChecks(t *testing.T) {
	t.Parallel()

	self := uuid.New()
	other := uuid.New()

	user := Principal{self, domain.RoleUser}
	manager := Principal{self, domain.RoleManager}
	admin := Principal{self, domain.RoleAdmin}

	assert.True(t, CanMutateUser(user, self, FieldProfile))
	assert.False(t, CanMutateUser(user, other, FieldProfile))
	assert.True(t, CanMutateUser(manager, other, FieldProfile))

	assert.False(t, CanMutateUser(user, self, FieldRole))
	assert.False(t, CanMutateUser(manager, other, FieldRole))
	assert.True(t, CanMutateUser(admin, other, FieldRole))
	assert.False(t, CanMutateUser(manager, other, FieldActive))
	assert.True(t, CanMutateUser(admin, other, FieldActive))

	assert.True(t, CanMutateUser(admin, other, FieldDeletion))
	assert.False(t, CanMutateUser(admin, self, FieldDeletion))
	assert.False(t, CanMutateUser(manager, other, FieldDeletion))

	assert.True(t, CanViewUserStats(user, self))
	assert.False(t, CanViewUserStats(user, other))
	assert.True(t, CanViewUserStats(manager, other))

	err := AuthorizeMutateUser(manager, other, FieldRole)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "change user role")
	assert.ErrorIs(t, AuthorizeViewUserStats(user, other), ErrForbidden)
	assert.NoError(t, AuthorizeViewUserStats(admin, other))
}

func TestPrincipalFor(t *testing.T) {
	t.Parallel()

	u := &domain.User{ID: uuid.New(), Role: domain.RoleManager}
	assert.Equal(t, Principal{UserID: u.ID, Role: domain.RoleManager}, PrincipalFor(u))
}
