package service

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUser(role domain.Role) *domain.User {
	user, err := domain.NewUser("Ada Lovelace", uuid.NewString()[:8]+"@example.com", "hashed:Secret123", role, fixedNow)
	if err != nil {
		panic(err)
	}
	return user
}

func newUserServiceForTest() (*UserServiceImpl, *mocks.MockRepository) {
	repo := mocks.NewMockRepository()
	svc := NewUserService(repo, &mocks.MockPasswordHasher{}, discardLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func newTaskServiceForTest() (*TaskServiceImpl, *mocks.MockRepository, *mocks.RecordingEmitter) {
	repo := mocks.NewMockRepository()
	emitter := &mocks.RecordingEmitter{}
	svc := NewTaskService(repo, emitter, discardLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, emitter
}
