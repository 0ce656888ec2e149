// Package storage provides entity storage for vistaflow using NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/vistaflow/pipeline"
	"github.com/c360studio/vistaflow/pipeline/validation"
)

// EntityType represents the type of entity stored in KV.
type EntityType string

const (
	EntityTypePipeline EntityType = "pipeline"
	EntityTypeAsset    EntityType = "asset"
	EntityTypeAudit    EntityType = "audit"
)

// Bucket names for each entity type.
const (
	BucketPipelines = "VISTAFLOW_PIPELINES"
	BucketAssets    = "VISTAFLOW_ASSETS"
	BucketAudit     = "VISTAFLOW_AUDIT"
)

// EntityID represents a typed entity identifier.
type EntityID struct {
	Type EntityType
	ID   string
}

// String returns the string representation of the entity ID.
func (e EntityID) String() string {
	return fmt.Sprintf("%s:%s", e.Type, e.ID)
}

// ParseEntityID parses an entity ID string into its components.
func ParseEntityID(s string) (EntityID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return EntityID{}, fmt.Errorf("invalid entity ID format: %s", s)
	}
	entityType := EntityType(parts[0])
	switch entityType {
	case EntityTypePipeline, EntityTypeAsset, EntityTypeAudit:
		return EntityID{Type: entityType, ID: parts[1]}, nil
	default:
		return EntityID{}, fmt.Errorf("unknown entity type: %s", parts[0])
	}
}

// NewEntityID generates a new unique entity ID for the given type.
func NewEntityID(t EntityType) EntityID {
	return EntityID{
		Type: t,
		ID:   uuid.New().String(),
	}
}

// AssetRecord is the stored form of an asset: the asset plus its owning
// pipeline.
type AssetRecord struct {
	PipelineID string `json:"pipeline_id"`
	pipeline.Asset
}

// Store provides entity storage operations backed by NATS KV.
type Store struct {
	pipelines jetstream.KeyValue
	assets    jetstream.KeyValue
	audit     jetstream.KeyValue
}

// NewStore creates a new Store with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	pipelines, err := getOrCreateBucket(ctx, js, BucketPipelines)
	if err != nil {
		return nil, fmt.Errorf("create pipelines bucket: %w", err)
	}

	assets, err := getOrCreateBucket(ctx, js, BucketAssets)
	if err != nil {
		return nil, fmt.Errorf("create assets bucket: %w", err)
	}

	audit, err := getOrCreateBucket(ctx, js, BucketAudit)
	if err != nil {
		return nil, fmt.Errorf("create audit bucket: %w", err)
	}

	return &Store{
		pipelines: pipelines,
		assets:    assets,
		audit:     audit,
	}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Vistaflow %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// CreatePipeline stores a new pipeline and returns its ID.
func (s *Store) CreatePipeline(ctx context.Context, p *pipeline.Pipeline) (EntityID, error) {
	id := NewEntityID(EntityTypePipeline)
	p.ID = id.ID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = pipeline.StatusActive
	}

	data, err := json.Marshal(p)
	if err != nil {
		return EntityID{}, fmt.Errorf("marshal pipeline: %w", err)
	}

	if _, err := s.pipelines.Create(ctx, id.ID, data); err != nil {
		return EntityID{}, fmt.Errorf("store pipeline: %w", err)
	}

	return id, nil
}

// GetPipeline retrieves a pipeline snapshot by ID.
func (s *Store) GetPipeline(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	entry, err := s.pipelines.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pipeline: %w", err)
	}

	var p pipeline.Pipeline
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline: %w", err)
	}

	return &p, nil
}

// PutPipeline persists a pipeline snapshot.
func (s *Store) PutPipeline(ctx context.Context, p *pipeline.Pipeline) error {
	if p.ID == "" {
		return fmt.Errorf("pipeline has no ID")
	}
	p.UpdatedAt = time.Now()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}

	if _, err := s.pipelines.Put(ctx, p.ID, data); err != nil {
		return fmt.Errorf("update pipeline: %w", err)
	}

	return nil
}

// ListPipelines returns all pipelines.
func (s *Store) ListPipelines(ctx context.Context) ([]*pipeline.Pipeline, error) {
	keys, err := s.pipelines.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list pipeline keys: %w", err)
	}

	pipelines := make([]*pipeline.Pipeline, 0, len(keys))
	for _, key := range keys {
		entry, err := s.pipelines.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var p pipeline.Pipeline
		if err := json.Unmarshal(entry.Value(), &p); err != nil {
			continue
		}
		pipelines = append(pipelines, &p)
	}

	return pipelines, nil
}

// SetApproval records human sign-off on a review step's output. Only steps 1
// and 2 carry approval flags.
func (s *Store) SetApproval(ctx context.Context, pipelineID string, key pipeline.StepKey, approved bool) error {
	p, err := s.GetPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}

	switch key {
	case pipeline.StepKeyAnalysisReview:
		p.Step1Approved = approved
	case pipeline.StepKeyStyle:
		p.Step2Approved = approved
	default:
		return fmt.Errorf("step %s has no approval flag", key)
	}

	return s.PutPipeline(ctx, p)
}

// CreateAsset stores a new asset and returns its ID.
func (s *Store) CreateAsset(ctx context.Context, rec *AssetRecord) (EntityID, error) {
	if rec.PipelineID == "" {
		return EntityID{}, fmt.Errorf("asset has no pipeline ID")
	}
	id := NewEntityID(EntityTypeAsset)
	rec.Asset.ID = id.ID
	if rec.Asset.Status == "" {
		rec.Asset.Status = pipeline.AssetPending
	}
	rec.Asset.UpdatedAt = time.Now()

	data, err := json.Marshal(rec)
	if err != nil {
		return EntityID{}, fmt.Errorf("marshal asset: %w", err)
	}

	if _, err := s.assets.Create(ctx, id.ID, data); err != nil {
		return EntityID{}, fmt.Errorf("store asset: %w", err)
	}

	return id, nil
}

// GetAsset retrieves an asset by ID.
func (s *Store) GetAsset(ctx context.Context, id string) (*AssetRecord, error) {
	rec, _, err := s.getAssetRevision(ctx, id)
	return rec, err
}

func (s *Store) getAssetRevision(ctx context.Context, id string) (*AssetRecord, uint64, error) {
	entry, err := s.assets.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("get asset: %w", err)
	}

	var rec AssetRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, 0, fmt.Errorf("unmarshal asset: %w", err)
	}

	return &rec, entry.Revision(), nil
}

// PutAsset persists an asset. Writes against a locked asset are rejected
// with ErrLocked: human approval is authoritative and only a step reset
// recreates the asset.
func (s *Store) PutAsset(ctx context.Context, rec *AssetRecord) error {
	if rec.Asset.ID == "" {
		return fmt.Errorf("asset has no ID")
	}

	current, _, err := s.getAssetRevision(ctx, rec.Asset.ID)
	if err != nil && err != ErrNotFound {
		return err
	}
	if current != nil && current.LockedApproved {
		return ErrLocked
	}

	rec.Asset.UpdatedAt = time.Now()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal asset: %w", err)
	}

	if _, err := s.assets.Put(ctx, rec.Asset.ID, data); err != nil {
		return fmt.Errorf("update asset: %w", err)
	}

	return nil
}

// ApproveAsset latches the approval lock on an asset. The write is
// revision-guarded: a concurrent QA or generation write between read and
// update fails the CAS instead of racing the human decision.
func (s *Store) ApproveAsset(ctx context.Context, id string) (*AssetRecord, error) {
	rec, revision, err := s.getAssetRevision(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.LockedApproved {
		return rec, ErrLocked
	}

	rec.Status = pipeline.AssetApproved
	rec.LockedApproved = true
	rec.Asset.UpdatedAt = time.Now()

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal asset: %w", err)
	}

	if _, err := s.assets.Update(ctx, id, data, revision); err != nil {
		return nil, fmt.Errorf("approve asset: %w", err)
	}

	return rec, nil
}

// ListAssetsByPipeline returns all assets belonging to a pipeline.
func (s *Store) ListAssetsByPipeline(ctx context.Context, pipelineID string) ([]*AssetRecord, error) {
	keys, err := s.assets.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list asset keys: %w", err)
	}

	records := make([]*AssetRecord, 0)
	for _, key := range keys {
		entry, err := s.assets.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec AssetRecord
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		if rec.PipelineID == pipelineID {
			records = append(records, &rec)
		}
	}

	return records, nil
}

// ResetStep applies a cascading step reset: the pipeline snapshot is rewound
// to the step's checkpoint phase and every asset produced at or after the
// step is deleted, locked or not. Returns the applied plan.
func (s *Store) ResetStep(ctx context.Context, pipelineID string, step int) (*pipeline.ResetPlan, error) {
	p, err := s.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	plan, err := pipeline.PlanReset(p, step)
	if err != nil {
		return nil, err
	}
	plan.Apply(p)

	if err := s.PutPipeline(ctx, p); err != nil {
		return nil, err
	}

	invalidated := make(map[pipeline.AssetKind]bool)
	for _, kind := range pipeline.KindsForStep(step) {
		invalidated[kind] = true
	}
	if len(invalidated) == 0 {
		return plan, nil
	}

	records, err := s.ListAssetsByPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if !invalidated[rec.Kind] {
			continue
		}
		if err := s.assets.Delete(ctx, rec.Asset.ID); err != nil {
			return nil, fmt.Errorf("delete asset %s: %w", rec.Asset.ID, err)
		}
	}

	return plan, nil
}

// ApplyRecovery applies automated corrections to a pipeline and writes one
// audit record per correction. The corrected snapshot is persisted after all
// corrections run.
func (s *Store) ApplyRecovery(ctx context.Context, p *pipeline.Pipeline, corrections []validation.Correction) ([]validation.AuditRecord, error) {
	if p == nil || len(corrections) == 0 {
		return nil, nil
	}

	records := make([]validation.AuditRecord, 0, len(corrections))
	for _, c := range corrections {
		if c.Apply == nil {
			continue
		}
		c.Apply(p)
		records = append(records, validation.NewAuditRecord(p.ID, c.FindingID, c.Reason))
	}

	if err := s.PutPipeline(ctx, p); err != nil {
		return nil, err
	}

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal audit record: %w", err)
		}
		if _, err := s.audit.Create(ctx, rec.ID, data); err != nil {
			return nil, fmt.Errorf("store audit record: %w", err)
		}
	}

	return records, nil
}

// ListAuditByPipeline returns the audit trail for a pipeline.
func (s *Store) ListAuditByPipeline(ctx context.Context, pipelineID string) ([]*validation.AuditRecord, error) {
	keys, err := s.audit.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list audit keys: %w", err)
	}

	records := make([]*validation.AuditRecord, 0)
	for _, key := range keys {
		entry, err := s.audit.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec validation.AuditRecord
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		if rec.PipelineID == pipelineID {
			records = append(records, &rec)
		}
	}

	return records, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
