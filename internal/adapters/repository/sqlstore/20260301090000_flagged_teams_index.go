package sqlstore

import (
	"github.com/ottomillrath/goose/v2"
	"gorm.io/gorm"
)

func init() {
	goose.AddMigration(gooseService, upFlaggedTeamsIndex, downFlaggedTeamsIndex)
}

// Coordinators list flagged teams per contest; only a small share is flagged.
func upFlaggedTeamsIndex(tx *gorm.DB) error {
	return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_teams_flagged ON teams (contest_id, university_id) WHERE flagged`).Error
}

func downFlaggedTeamsIndex(tx *gorm.DB) error {
	return tx.Exec(`DROP INDEX IF EXISTS idx_teams_flagged`).Error
}
