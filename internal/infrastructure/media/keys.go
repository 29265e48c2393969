package media

import (
	"fmt"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/pkg/utils"

	"github.com/google/uuid"
)

// objectKey files uploads as kind/yyyy/mm/uuid_name.
func objectKey(kind domain.MediaKind, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%02d/%s_%s",
		kind,
		now.Year(),
		now.Month(),
		uuid.New().String(),
		utils.SanitizeFilename(filename),
	)
}
