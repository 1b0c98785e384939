package allocator

import (
	"errors"

	"github.com/okian/teamalloc/internal/domain/model"
)

// Sentinel kinds for allocator contract violations. Both indicate a bug in
// unit resolution and abort the run.
var (
	ErrInvalidUnit      = model.ErrInvalidUnit
	ErrDuplicateStudent = errors.New("student appears in more than one unit")
)
