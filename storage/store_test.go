package storage

import (
	"testing"

	"github.com/c360studio/vistaflow/pipeline"
)

func TestEntityID(t *testing.T) {
	t.Run("NewEntityID generates valid ID", func(t *testing.T) {
		id := NewEntityID(EntityTypePipeline)
		if id.Type != EntityTypePipeline {
			t.Errorf("expected type %s, got %s", EntityTypePipeline, id.Type)
		}
		if id.ID == "" {
			t.Error("expected non-empty ID")
		}
	})

	t.Run("String returns correct format", func(t *testing.T) {
		id := EntityID{Type: EntityTypeAsset, ID: "abc123"}
		expected := "asset:abc123"
		if id.String() != expected {
			t.Errorf("expected %s, got %s", expected, id.String())
		}
	})

	t.Run("ParseEntityID parses valid ID", func(t *testing.T) {
		id, err := ParseEntityID("pipeline:abc123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id.Type != EntityTypePipeline {
			t.Errorf("expected type %s, got %s", EntityTypePipeline, id.Type)
		}
		if id.ID != "abc123" {
			t.Errorf("expected ID abc123, got %s", id.ID)
		}
	})

	t.Run("ParseEntityID handles all types", func(t *testing.T) {
		tests := []struct {
			input    string
			expected EntityType
		}{
			{"pipeline:123", EntityTypePipeline},
			{"asset:456", EntityTypeAsset},
			{"audit:789", EntityTypeAudit},
		}

		for _, tc := range tests {
			id, err := ParseEntityID(tc.input)
			if err != nil {
				t.Errorf("unexpected error for %s: %v", tc.input, err)
				continue
			}
			if id.Type != tc.expected {
				t.Errorf("for %s: expected type %s, got %s", tc.input, tc.expected, id.Type)
			}
		}
	})

	t.Run("ParseEntityID rejects invalid format", func(t *testing.T) {
		invalidIDs := []string{
			"invalid",
			"no-colon",
			"",
			"unknown:123",
		}

		for _, input := range invalidIDs {
			_, err := ParseEntityID(input)
			if err == nil {
				t.Errorf("expected error for %q, got nil", input)
			}
		}
	})

	t.Run("Round trip ID conversion", func(t *testing.T) {
		original := NewEntityID(EntityTypeAudit)
		str := original.String()
		parsed, err := ParseEntityID(str)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed.Type != original.Type {
			t.Errorf("type mismatch: expected %s, got %s", original.Type, parsed.Type)
		}
		if parsed.ID != original.ID {
			t.Errorf("ID mismatch: expected %s, got %s", original.ID, parsed.ID)
		}
	})
}

func TestAssetRecord(t *testing.T) {
	t.Run("AssetRecord fields", func(t *testing.T) {
		rec := AssetRecord{
			PipelineID: "pipe-1",
			Asset: pipeline.Asset{
				ID:      "asset-1",
				SpaceID: "space-1",
				Kind:    pipeline.AssetKindRender,
				Status:  pipeline.AssetPending,
			},
		}

		if rec.PipelineID != "pipe-1" {
			t.Errorf("unexpected pipeline ID: %s", rec.PipelineID)
		}
		if rec.Kind != pipeline.AssetKindRender {
			t.Errorf("unexpected kind: %s", rec.Kind)
		}
		if rec.LockedApproved {
			t.Error("new record should not be locked")
		}
	})
}

func TestBucketNames(t *testing.T) {
	t.Run("Bucket names are set", func(t *testing.T) {
		if BucketPipelines != "VISTAFLOW_PIPELINES" {
			t.Errorf("unexpected pipelines bucket: %s", BucketPipelines)
		}
		if BucketAssets != "VISTAFLOW_ASSETS" {
			t.Errorf("unexpected assets bucket: %s", BucketAssets)
		}
		if BucketAudit != "VISTAFLOW_AUDIT" {
			t.Errorf("unexpected audit bucket: %s", BucketAudit)
		}
	})
}
