package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

const (
	settingKeySchema   = "schema"
	settingKeyNodePriv = "nodePriv"

	schemaVersion = "1"
)

// Setting is a key/value row.
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// Peer is the last known state of a remote node.
type Peer struct {
	ID           uint      `gorm:"primaryKey"`
	PeerID       string    `gorm:"uniqueIndex;not null"`
	Addrs        string
	Reachability string
	LastSeenAt   time.Time `gorm:"index"`
	LastPingRTT  time.Duration
	LastPingOK   bool
}

// EventRecord is one journaled hub event.
type EventRecord struct {
	ID      string    `gorm:"primaryKey"`
	Name    string    `gorm:"index;not null"`
	Payload string    `gorm:"not null"`
	At      time.Time `gorm:"index"`
}

// Init opens (or creates) the sqlite database at path and migrates it.
func Init(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return err
	}

	DB = database

	if err := DB.AutoMigrate(&Setting{}, &Peer{}, &EventRecord{}); err != nil {
		return err
	}

	return initDefaultSettings()
}

// Close releases the underlying connection pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func initDefaultSettings() error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := createSettingIfMissing(tx, settingKeySchema, schemaVersion); err != nil {
			return err
		}
		if err := createSettingIfMissing(tx, settingKeyNodePriv, ""); err != nil {
			return err
		}
		return nil
	})
}

func createSettingIfMissing(tx *gorm.DB, key, defaultValue string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Setting{Key: key, Value: defaultValue}).Error
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}

func getSettingOrDefault(key, fallback string) (string, error) {
	var s Setting
	err := DB.Where("key = ?", key).First(&s).Error
	if err == nil {
		return s.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	return "", err
}

func LoadNodePrivateKey() (string, error) {
	return getSettingOrDefault(settingKeyNodePriv, "")
}

func SaveNodePrivateKey(nodePriv string) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		return upsertSetting(tx, settingKeyNodePriv, nodePriv)
	})
}

// SettingsKeyStore keeps the node identity in the settings table.
type SettingsKeyStore struct{}

func (SettingsKeyStore) LoadNodePrivateKey() (string, error) {
	return LoadNodePrivateKey()
}

func (SettingsKeyStore) SaveNodePrivateKey(encoded string) error {
	return SaveNodePrivateKey(encoded)
}

type PeerRepository struct{}

func NewPeerRepository() *PeerRepository {
	return &PeerRepository{}
}

func (r *PeerRepository) UpsertLastSeen(ctx context.Context, peerID, remoteAddr string, at time.Time) error {
	peer := Peer{
		PeerID:       peerID,
		Addrs:        remoteAddr,
		Reachability: "online",
		LastSeenAt:   at,
	}

	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "peer_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"addrs":        peer.Addrs,
				"reachability": peer.Reachability,
				"last_seen_at": peer.LastSeenAt,
			}),
		}).Create(&peer).Error
	})
}

func (r *PeerRepository) MarkOffline(ctx context.Context, peerID string) error {
	return DB.WithContext(ctx).
		Model(&Peer{}).
		Where("peer_id = ?", peerID).
		Update("reachability", "offline").Error
}

func (r *PeerRepository) UpdatePingResult(ctx context.Context, peerID string, ok bool, rtt time.Duration, at time.Time) error {
	updates := map[string]interface{}{
		"last_ping_ok":  ok,
		"last_ping_rtt": rtt,
	}
	if ok {
		updates["last_seen_at"] = at
		updates["reachability"] = "online"
	}
	return DB.WithContext(ctx).
		Model(&Peer{}).
		Where("peer_id = ?", peerID).
		Updates(updates).Error
}

func (r *PeerRepository) List(ctx context.Context) ([]Peer, error) {
	var peers []Peer
	err := DB.WithContext(ctx).Order("last_seen_at desc").Find(&peers).Error
	return peers, err
}

type EventRepository struct{}

func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

func (r *EventRepository) Append(ctx context.Context, rec EventRecord) error {
	return DB.WithContext(ctx).Create(&rec).Error
}

// Recent returns up to limit records, newest first.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []EventRecord
	err := DB.WithContext(ctx).Order("at desc").Limit(limit).Find(&records).Error
	return records, err
}

// PruneBefore deletes records older than cutoff and reports how many went.
func (r *EventRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := DB.WithContext(ctx).Where("at < ?", cutoff).Delete(&EventRecord{})
	return res.RowsAffected, res.Error
}
