package admin

import (
	"context"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ummitifli/storefront/internal/domain"
)

// Audit actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionImport = "import"
)

// LogRepository stores admin audit rows.
type LogRepository interface {
	// Create inserts a new audit log entry
	Create(ctx context.Context, log *domain.AdminLog) error

	// List returns the latest entries, newest first
	List(ctx context.Context, limit int) ([]domain.AdminLog, error)

	// DeleteBefore removes entries older than t
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
}

// Operator identifies who performs an admin mutation.
type Operator struct {
	Name string
	IP   string
}

type operatorKey struct{}

// WithOperator attaches the acting admin to ctx for audit logging.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom returns the admin attached to ctx.
func OperatorFrom(ctx context.Context) Operator {
	op, _ := ctx.Value(operatorKey{}).(Operator)
	if op.Name == "" {
		op.Name = "system"
	}
	return op
}

// Auditor writes audit rows with snowflake ids.
type Auditor struct {
	repo LogRepository
	node *snowflake.Node
}

func NewAuditor(repo LogRepository, nodeID int64) (*Auditor, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrap(err, "snowflake node")
	}
	return &Auditor{repo: repo, node: node}, nil
}

// Record appends an entry. Failures are logged, never returned.
func (a *Auditor) Record(ctx context.Context, action, productID, desc string) {
	if a == nil || a.repo == nil {
		return
	}
	op := OperatorFrom(ctx)
	entry := &domain.AdminLog{
		ID:        a.node.Generate().Int64(),
		OprName:   op.Name,
		OprIp:     op.IP,
		OptAction: action,
		ProductID: productID,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		zap.L().Warn("write admin log failed", zap.Error(err), zap.String("action", action),
			zap.String("namespace", "admin"))
	}
}

// Recent lists the latest entries.
func (a *Auditor) Recent(ctx context.Context, limit int) ([]domain.AdminLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return a.repo.List(ctx, limit)
}

// Purge drops entries older than the retention window.
func (a *Auditor) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return a.repo.DeleteBefore(ctx, time.Now().Add(-retention))
}

// GormLogRepository is the GORM implementation of LogRepository
type GormLogRepository struct {
	db *gorm.DB
}

func NewGormLogRepository(db *gorm.DB) *GormLogRepository {
	return &GormLogRepository{db: db}
}

func (r *GormLogRepository) Create(ctx context.Context, log *domain.AdminLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *GormLogRepository) List(ctx context.Context, limit int) ([]domain.AdminLog, error) {
	var logs []domain.AdminLog
	err := r.db.WithContext(ctx).
		Order("opt_time DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *GormLogRepository) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("opt_time < ?", t).Delete(&domain.AdminLog{})
	return res.RowsAffected, res.Error
}

var logsBucket = []byte("admin_log")

// BoltLogRepository keeps audit rows in a bbolt bucket keyed by big-endian id,
// so cursor order is id order and therefore time order.
type BoltLogRepository struct {
	db *bolt.DB
}

func NewBoltLogRepository(db *bolt.DB) (*BoltLogRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(logsBucket)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "create admin_log bucket")
	}
	return &BoltLogRepository{db: db}, nil
}

func logKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func (r *BoltLogRepository) Create(_ context.Context, log *domain.AdminLog) error {
	data, err := jsoniter.Marshal(log)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(logsBucket).Put(logKey(log.ID), data)
	})
}

func (r *BoltLogRepository) List(_ context.Context, limit int) ([]domain.AdminLog, error) {
	var logs []domain.AdminLog
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(logsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(logs) < limit; k, v = c.Prev() {
			var l domain.AdminLog
			if err := jsoniter.Unmarshal(v, &l); err != nil {
				return err
			}
			logs = append(logs, l)
		}
		return nil
	})
	return logs, err
}

func (r *BoltLogRepository) DeleteBefore(_ context.Context, t time.Time) (int64, error) {
	var n int64
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(logsBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var l domain.AdminLog
			if err := jsoniter.Unmarshal(v, &l); err != nil {
				return err
			}
			if l.OptTime.Before(t) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// MemoryLogRepository keeps audit rows in process.
type MemoryLogRepository struct {
	mu   sync.Mutex
	logs []domain.AdminLog
}

func NewMemoryLogRepository() *MemoryLogRepository {
	return &MemoryLogRepository{}
}

func (r *MemoryLogRepository) Create(_ context.Context, log *domain.AdminLog) error {
	r.mu.Lock()
	r.logs = append(r.logs, *log)
	r.mu.Unlock()
	return nil
}

func (r *MemoryLogRepository) List(_ context.Context, limit int) ([]domain.AdminLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AdminLog, len(r.logs))
	copy(out, r.logs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryLogRepository) DeleteBefore(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.logs[:0]
	var n int64
	for _, l := range r.logs {
		if l.OptTime.Before(t) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.logs = kept
	return n, nil
}
