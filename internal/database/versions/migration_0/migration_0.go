package migration_0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Submission struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceId sql.NullString

	OriginalName string
	SizeBytes    int64
	Pages        int

	Parameters datatypes.JSON

	Status     string `gorm:"size:20;not null;index"`
	ExitStatus sql.NullInt64
	ErrorKind  sql.NullString `gorm:"size:40"`
	DurationMs int64          `gorm:"default:0"`

	CreationTime   time.Time `gorm:"index"`
	StartTime      sql.NullTime
	CompletionTime sql.NullTime
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&Submission{}); err != nil {
		return fmt.Errorf("error creating submissions table: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&Submission{}); err != nil {
		return fmt.Errorf("error dropping submissions table: %w", err)
	}
	return nil
}
