package mongo

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/store"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// MapError translates driver errors into store sentinels.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	if mongodriver.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
