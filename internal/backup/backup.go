// Package backup uploads encrypted snapshots of the local store to
// S3-compatible storage and restores them.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/store"
	"github.com/google/uuid"
)

var (
	ErrNotConfigured = errors.New("backup not configured: S3 credentials missing")
	ErrNoPassphrase  = errors.New("backup passphrase required")
	ErrInProgress    = errors.New("backup already in progress")
	ErrBadSnapshot   = errors.New("invalid backup snapshot")
)

const (
	keyPrefix       = "lifeos/"
	snapshotVersion = 1
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Snapshotter is the store being backed up. store.LocalStore implements it.
type Snapshotter interface {
	All() (map[string]string, error)
	ReplaceAll(entries map[string]string) error
}

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration. Scheduled backups run only when
// both Interval and Passphrase are set.
type Config struct {
	S3         S3Config
	Passphrase string
	Interval   time.Duration
	Retention  time.Duration
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// snapshot is the plaintext written to storage before encryption.
type snapshot struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Entries   map[string]string `json:"entries"`
}

type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	running  bool

	source  Snapshotter
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, source Snapshotter, backups *store.BackupStore, callback StatusCallback, logger *slog.Logger) *Manager {
	var client s3Client
	if cfg.S3.complete() {
		client = newS3Client(cfg.S3)
	}
	return newManager(cfg, source, backups, client, callback, logger)
}

func newManager(cfg Config, source Snapshotter, backups *store.BackupStore, client s3Client, callback StatusCallback, logger *slog.Logger) *Manager {
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	m := &Manager{
		cfg:      cfg,
		source:   source,
		backups:  backups,
		client:   client,
		callback: callback,
		logger:   logger.With("component", "backup"),
		status:   Status{State: StateDisabled},
	}
	if client != nil {
		m.status.State = StateIdle
		if backups != nil {
			if last, err := backups.LatestCompleted(); err == nil && last != nil {
				m.status.LastBackup = last.CompletedAt
				m.status.LastKey = last.ObjectKey
			}
		}
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether storage is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the scheduled backup loop. It does nothing when storage, an
// interval, or a passphrase is missing.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil || m.cfg.Interval <= 0 || m.cfg.Passphrase == "" {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	m.logger.Info("scheduled backups enabled", "interval", interval)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.scheduled(ctx)
			}
		}
	}()
}

// Stop stops the scheduled loop and waits for a running backup to finish.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
		s.LastKey = m.status.LastKey
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) scheduled(ctx context.Context) {
	if _, err := m.RunNow(ctx, ""); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
		return
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow snapshots the local store, encrypts it with passphrase (or the
// configured one when empty) and uploads it.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (*model.Backup, error) {
	m.mu.Lock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	if passphrase == "" {
		passphrase = m.cfg.Passphrase
	}
	if client == nil {
		m.mu.Unlock()
		return nil, ErrNotConfigured
	}
	if passphrase == "" {
		m.mu.Unlock()
		return nil, ErrNoPassphrase
	}
	if m.running {
		m.mu.Unlock()
		return nil, ErrInProgress
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	now := time.Now().UTC()
	key := fmt.Sprintf("%sbackup-%s-%s.json.enc", keyPrefix, now.Format("20060102T150405Z"), uuid.NewString()[:8])

	record, err := m.backups.Create(key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(err error) (*model.Backup, error) {
		if uerr := m.backups.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("mark backup failed", "id", record.ID, "error", uerr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}

	entries, err := m.source.All()
	if err != nil {
		return fail(fmt.Errorf("read local store: %w", err))
	}
	plain, err := json.Marshal(snapshot{Version: snapshotVersion, CreatedAt: now, Entries: entries})
	if err != nil {
		return fail(fmt.Errorf("encode snapshot: %w", err))
	}
	enc, err := Encrypt(plain, passphrase)
	if err != nil {
		return fail(fmt.Errorf("encrypt: %w", err))
	}

	m.backups.UpdateStatus(record.ID, model.BackupStatusUploading, "")
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(enc),
		ContentLength: aws.Int64(int64(len(enc))),
	})
	if err != nil {
		return fail(fmt.Errorf("upload to s3: %w", err))
	}

	if err := m.backups.UpdateCompleted(record.ID, int64(len(enc)), len(entries)); err != nil {
		m.logger.Error("mark backup completed", "id", record.ID, "error", err)
	}

	done := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &done, LastKey: key})

	m.logger.Info("backup uploaded", "key", key, "entries", len(entries), "bytes", len(enc))

	record.Status = model.BackupStatusCompleted
	record.SizeBytes = int64(len(enc))
	record.Entries = len(entries)
	record.CompletedAt = &done
	return record, nil
}

// Restore downloads the backup stored under key, decrypts it and replaces
// every local entry with the snapshot's contents.
func (m *Manager) Restore(ctx context.Context, key, passphrase string) (int, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	if passphrase == "" {
		passphrase = m.cfg.Passphrase
	}
	m.mu.RUnlock()

	if client == nil {
		return 0, ErrNotConfigured
	}
	if passphrase == "" {
		return 0, ErrNoPassphrase
	}
	if !strings.HasPrefix(key, keyPrefix) {
		return 0, fmt.Errorf("%w: key %q is not a lifeos backup", ErrBadSnapshot, key)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	enc, err := io.ReadAll(result.Body)
	if err != nil {
		return 0, fmt.Errorf("read backup body: %w", err)
	}
	plain, err := Decrypt(enc, passphrase)
	if err != nil {
		return 0, err
	}

	var snap snapshot
	if err := json.Unmarshal(plain, &snap); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, snap.Version)
	}
	if snap.Entries == nil {
		snap.Entries = map[string]string{}
	}

	if err := m.source.ReplaceAll(snap.Entries); err != nil {
		return 0, fmt.Errorf("replace local store: %w", err)
	}
	m.logger.Info("backup restored", "key", key, "entries", len(snap.Entries), "created_at", snap.CreatedAt)
	return len(snap.Entries), nil
}

// List returns the most recent backup records.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.backups.List(limit)
}

// Cleanup deletes backups older than the retention period from storage and
// from the backup history.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	retention := m.cfg.Retention
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	keys, err := m.backups.DeleteOlderThan(time.Now().UTC().Add(-retention))
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}
	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete s3 object", "key", key, "error", err)
		}
	}
	return nil
}
