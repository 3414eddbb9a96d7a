package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"engram/infrastructure/persistence/schema"
)

// FactRecordUpgrader lifts fact items written by older builds to the
// current layout on read. Version 1 predates the slot and temporal
// indexes: those records carry no GSI keys and no normalized term
// keys, so the v1->v2 step derives them from the item itself.
type FactRecordUpgrader struct {
	evolution *schema.Evolution[factItem]
	logger    *zap.Logger
}

// NewFactRecordUpgrader creates the upgrader with the known chain
func NewFactRecordUpgrader(logger *zap.Logger) *FactRecordUpgrader {
	evolution := schema.NewEvolution[factItem](CurrentFactSchemaVersion)

	// v1 -> v2: backfill index keys and normalized term keys
	if err := evolution.RegisterUpgrade(schema.Upgrade[factItem]{
		FromVersion: 1,
		ToVersion:   2,
		Description: "backfill slot, temporal and id index keys",
		Apply:       upgradeFactV1toV2,
	}); err != nil {
		// Registration only fails on a programming error in the chain
		panic(err)
	}

	return &FactRecordUpgrader{
		evolution: evolution,
		logger:    logger,
	}
}

// Upgrade lifts an item to the current layout. A failed upgrade logs
// and returns the item as stored; the read path then serves what it
// can instead of failing the query.
func (u *FactRecordUpgrader) Upgrade(ctx context.Context, item factItem) factItem {
	upgraded, version, err := u.evolution.UpgradeToLatest(item, item.SchemaVersion)
	if err != nil {
		u.logger.Warn("Fact record upgrade failed",
			zap.String("factID", item.FactID),
			zap.Int("schemaVersion", item.SchemaVersion),
			zap.Error(err),
		)
		return item
	}
	upgraded.SchemaVersion = version
	return upgraded
}

func upgradeFactV1toV2(item factItem) (factItem, error) {
	if item.SubjectKey == "" {
		item.SubjectKey = strings.ToLower(item.Subject)
	}
	if item.ObjectKey == "" {
		item.ObjectKey = strings.ToLower(item.Object)
	}
	if item.LastAssertedAt == "" {
		item.LastAssertedAt = item.Timestamp
	}
	if item.MentionCount < 1 {
		item.MentionCount = 1
	}

	ts, err := time.Parse(time.RFC3339Nano, item.Timestamp)
	if err != nil {
		return item, fmt.Errorf("invalid timestamp %q: %w", item.Timestamp, err)
	}

	// v1 records stored trimmed timestamps; normalizing to the
	// fixed-width layout keeps the lexical range filters uniform
	item.Timestamp = timestampKey(ts)
	if la, err := time.Parse(time.RFC3339Nano, item.LastAssertedAt); err == nil {
		item.LastAssertedAt = timestampKey(la)
	}

	ownerKey := strings.TrimPrefix(item.PK, "OWNER#")
	if item.GSI1PK == "" {
		item.GSI1PK = slotGSI1PK(ownerKey, item.SubjectKey, item.Predicate)
		item.GSI1SK = activeGSI1SK(item.Active, ts)
	}
	if item.GSI2PK == "" {
		item.GSI2PK = item.PK
		item.GSI2SK = temporalGSI2SK(ts)
	}
	if item.GSI3PK == "" {
		item.GSI3PK = fmt.Sprintf("FACTID#%s", item.FactID)
		item.GSI3SK = "METADATA"
	}

	return item, nil
}
